package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/prodpulse/internal/application/analysis"
	domain "github.com/bryanwahyu/prodpulse/internal/domain/analysis"
	"github.com/bryanwahyu/prodpulse/internal/logging"
	"github.com/bryanwahyu/prodpulse/internal/middleware"
)

const (
	ServiceName    = "ProdPulse.AI Backend"
	apiVersion     = "1.0.0"
	maxBodyBytes   = 2 * middleware.MaxLogBytes
)

// AnalysisService is the application surface the router needs.
type AnalysisService interface {
	Analyze(ctx context.Context, cmd appanalysis.AnalyzeCommand) (appanalysis.AnalyzeResult, error)
	Quota(ctx context.Context, identity string) (appanalysis.QuotaStatus, error)
	History(ctx context.Context, identity string, within time.Duration, limit int) ([]*domain.Event, error)
	RetryAfter(ctx context.Context, identity string) (time.Duration, error)
}

type Options struct {
	Service     AnalysisService
	Logger      *slog.Logger
	Metrics     *middleware.Metrics
	Burst       *middleware.BurstLimiter
	Checkers    map[string]middleware.HealthChecker
	CORSOrigins []string
}

type Router struct {
	svc      AnalysisService
	metrics  *middleware.Metrics
	checkers map[string]middleware.HealthChecker
}

func NewRouter(opts Options) http.Handler {
	r := &Router{svc: opts.Service, metrics: opts.Metrics, checkers: opts.Checkers}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(middleware.Logging(logger))
	mux.Use(chimw.Recoverer)
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{"Retry-After", middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	mux.Get("/healthz", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.HealthHandler(ServiceName, opts.Checkers))
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics.Handler())
	}

	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/", r.handleInfo)
		rt.Get("/health", r.handleHealth)
		rt.Get("/rate-limit-status", r.wrap(r.handleRateLimitStatus))
		rt.Get("/history", r.wrap(r.handleHistory))

		analyze := rt.With()
		if opts.Burst != nil {
			analyze = rt.With(opts.Burst.Middleware(ClientIP, r.denyBurst))
		}
		analyze.Post("/analyze", r.wrap(r.handleAnalyze))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			r.writeError(w, req, err)
		}
	}
}

type analyzeRequest struct {
	Logs *string `json:"logs" validate:"required,maxbytes"`
}

// POST /api/analyze
// Body: {"logs": "<error log>"}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	var body analyzeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &requestError{message: "Malformed request body", details: err.Error()}
	}
	if err := middleware.ValidateStruct(body); err != nil {
		return &requestError{message: "Validation failed", details: err.Error()}
	}

	ip := ClientIP(req)
	logging.From(req.Context()).Info("received log analysis request", "ip", ip)

	res, err := r.svc.Analyze(req.Context(), appanalysis.AnalyzeCommand{Logs: *body.Logs, Identity: ip})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

type rateLimitStatus struct {
	RemainingRequests int    `json:"remainingRequests"`
	Limit             int    `json:"limit"`
	WindowHours       int    `json:"windowHours"`
	IPAddress         string `json:"ipAddress"`
}

// GET /api/rate-limit-status
func (r *Router) handleRateLimitStatus(w http.ResponseWriter, req *http.Request) error {
	ip := ClientIP(req)
	q, err := r.svc.Quota(req.Context(), ip)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rateLimitStatus{
		RemainingRequests: q.Remaining,
		Limit:             q.Limit,
		WindowHours:       int(q.Window / time.Hour),
		IPAddress:         ip,
	})
	return nil
}

type historyQuery struct {
	Hours int `json:"hours" validate:"min=0,max=720"`
	Limit int `json:"limit" validate:"min=0,max=100"`
}

type historyItem struct {
	AnalysisID domain.EventID  `json:"analysisId"`
	Severity   domain.Severity `json:"severity"`
	Title      string          `json:"title"`
	Logs       string          `json:"logs"`
	Content    string          `json:"content"`
	Timestamp  string          `json:"timestamp"`
}

type historyResponse struct {
	IPAddress string        `json:"ipAddress"`
	Count     int           `json:"count"`
	Items     []historyItem `json:"items"`
}

// GET /api/history?hours=&limit=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	var q historyQuery
	var err error
	if q.Hours, err = intParam(req, "hours"); err != nil {
		return err
	}
	if q.Limit, err = intParam(req, "limit"); err != nil {
		return err
	}
	if err := middleware.ValidateStruct(q); err != nil {
		return &requestError{message: "Validation failed", details: err.Error()}
	}

	ip := ClientIP(req)
	events, err := r.svc.History(req.Context(), ip, time.Duration(q.Hours)*time.Hour, middleware.ValidateLimit(q.Limit))
	if err != nil {
		return err
	}

	resp := historyResponse{IPAddress: ip, Count: len(events), Items: make([]historyItem, 0, len(events))}
	for _, ev := range events {
		resp.Items = append(resp.Items, historyItem{
			AnalysisID: ev.ID,
			Severity:   ev.Severity,
			Title:      ev.Title,
			Logs:       ev.InputText,
			Content:    ev.DiagnosisText,
			Timestamp:  ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

// GET /api/health
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
	defer cancel()
	health := middleware.RunChecks(ctx, ServiceName, r.checkers)
	status := http.StatusOK
	if health.Status != "UP" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// GET /api/
func (r *Router) handleInfo(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "ProdPulse.AI API",
		"version":     apiVersion,
		"description": "AI-powered production log analyzer",
		"endpoints": map[string]string{
			"POST /api/analyze":          "Analyze production error logs",
			"GET /api/health":            "Health check",
			"GET /api/rate-limit-status": "Check remaining requests",
			"GET /api/history":           "List your recent analyses",
		},
	})
}

func (r *Router) denyBurst(w http.ResponseWriter, req *http.Request) {
	if r.metrics != nil {
		r.metrics.ObserveBurstRejected()
	}
	writeErrorPayload(w, req, http.StatusTooManyRequests, errorPayload{
		Kind:    string(domain.KindRateLimited),
		Message: "Too many requests",
		Details: "Please slow down and retry in a moment.",
	})
}

func intParam(req *http.Request, name string) (int, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &requestError{message: "Validation failed", details: name + " must be an integer"}
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
