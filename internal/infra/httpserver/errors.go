package httpserver

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	domain "github.com/bryanwahyu/prodpulse/internal/domain/analysis"
	"github.com/bryanwahyu/prodpulse/internal/logging"
)

// requestError is a malformed or invalid request caught before the service.
type requestError struct {
	message string
	details string
}

func (e *requestError) Error() string { return e.message + ": " + e.details }

type errorPayload struct {
	Status    int    `json:"status"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeErrorPayload(w, req, http.StatusBadRequest, errorPayload{
			Kind:    string(domain.KindInvalidInput),
			Message: reqErr.message,
			Details: reqErr.details,
		})
		return
	}

	switch kind := domain.KindOf(err); kind {
	case domain.KindInvalidInput:
		writeErrorPayload(w, req, http.StatusBadRequest, errorPayload{
			Kind:    string(kind),
			Message: err.Error(),
		})
	case domain.KindRateLimited:
		var rl *domain.RateLimitedError
		errors.As(err, &rl)
		w.Header().Set("Retry-After", strconv.Itoa(r.retryAfterSeconds(req, rl.Window)))
		writeErrorPayload(w, req, http.StatusTooManyRequests, errorPayload{
			Kind:    string(kind),
			Message: err.Error(),
			Details: "Please try again later. Your quota resets on a rolling " + domain.FormatWindow(rl.Window) + " window.",
		})
	default:
		logging.From(req.Context()).Error("request failed", "error", err, "kind", kind)
		writeErrorPayload(w, req, http.StatusInternalServerError, errorPayload{
			Kind:    string(kind),
			Message: "An unexpected error occurred",
		})
	}
}

// retryAfterSeconds falls back to the full window when the estimate fails.
func (r *Router) retryAfterSeconds(req *http.Request, window time.Duration) int {
	d, err := r.svc.RetryAfter(req.Context(), ClientIP(req))
	if err != nil || d <= 0 {
		d = window
	}
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func writeErrorPayload(w http.ResponseWriter, req *http.Request, status int, p errorPayload) {
	p.Status = status
	p.Timestamp = time.Now().UTC().Format(time.RFC3339)
	p.Path = req.URL.Path
	writeJSON(w, status, p)
}
