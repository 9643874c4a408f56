package analysis

import (
	"context"
	"time"

	"github.com/bryanwahyu/prodpulse/internal/application"
	appdiag "github.com/bryanwahyu/prodpulse/internal/application/diagnosis"
	"github.com/bryanwahyu/prodpulse/internal/application/ratelimit"
	domain "github.com/bryanwahyu/prodpulse/internal/domain/analysis"
	"github.com/bryanwahyu/prodpulse/internal/logging"
)

const (
	persistTimeout = 10 * time.Second
	archiveTimeout = 5 * time.Second
)

// Producer yields a diagnosis for every input; see appdiag.Service.
type Producer interface {
	Produce(ctx context.Context, logText string) appdiag.Outcome
}

// RateLimiter decides admission per identity.
type RateLimiter interface {
	CheckAndAdmit(ctx context.Context, identity string, now time.Time) (ratelimit.Decision, error)
	Remaining(ctx context.Context, identity string, now time.Time) (int, error)
	Limit() int
	Window() time.Duration
}

// Observer receives orchestration outcomes, e.g. for metrics.
type Observer interface {
	ObserveDiagnosis(severity domain.Severity)
	ObserveRejected(kind domain.Kind)
}

// Service implements use-cases untuk analisa log.
// Service is safe for concurrent use.
type Service struct {
	Store    domain.HistoryStore
	Limiter  RateLimiter
	Provider Producer
	Clock    application.Clock
	Limits   Limits

	// Archive optionally receives a copy of every persisted event.
	Archive domain.Archive
	// Observer is optional.
	Observer Observer
	// Strict serializes check-then-append per identity so the quota is exact.
	Strict bool

	locks identityLocks
}

// AnalyzeCommand untuk satu request analisa
type AnalyzeCommand struct {
	Logs     string
	Identity string
}

type AnalyzeResult struct {
	Severity   domain.Severity `json:"severity"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	Timestamp  string          `json:"timestamp"`
	AnalysisID domain.EventID  `json:"analysisId"`
}

// QuotaStatus is the read-only view of an identity's quota.
type QuotaStatus struct {
	Remaining int
	Limit     int
	Window    time.Duration
}

// Analyze validates, admits, diagnoses, classifies and persists one request.
// Errors returned are *domain.InvalidInputError, *domain.RateLimitedError or
// *domain.PersistenceError.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (AnalyzeResult, error) {
	logger := logging.From(ctx).With("identity", cmd.Identity)

	if err := s.Limits.Validate(cmd.Logs); err != nil {
		logger.Info("log input rejected", "error", err)
		s.rejected(domain.KindOf(err))
		return AnalyzeResult{}, err
	}

	if s.Strict {
		unlock := s.locks.lock(cmd.Identity)
		defer unlock()
	}

	decision, err := s.Limiter.CheckAndAdmit(ctx, cmd.Identity, s.now())
	if err != nil {
		logger.Error("rate limit check failed", "error", err)
		s.rejected(domain.KindPersistenceFailure)
		return AnalyzeResult{}, &domain.PersistenceError{Cause: err}
	}
	if !decision.Admitted {
		logger.Warn("rate limit exceeded", "count", decision.Count, "limit", decision.Limit)
		s.rejected(domain.KindRateLimited)
		return AnalyzeResult{}, &domain.RateLimitedError{Limit: decision.Limit, Window: decision.Window}
	}

	outcome := s.Provider.Produce(ctx, cmd.Logs)

	ev := &domain.Event{
		Identity:      cmd.Identity,
		InputText:     cmd.Logs,
		DiagnosisText: outcome.Text,
		Severity:      domain.SeverityOf(cmd.Logs),
		Title:         domain.TitleOf(cmd.Logs),
		Backend:       outcome.Backend,
		CreatedAt:     s.now(),
	}

	// persist even if the caller went away during the diagnosis
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	id, err := s.Store.Append(pctx, ev)
	if err != nil {
		logger.Error("failed to persist analysis", "error", err, "severity", ev.Severity)
		s.rejected(domain.KindPersistenceFailure)
		return AnalyzeResult{}, &domain.PersistenceError{Cause: err}
	}

	s.archive(ctx, ev)
	if s.Observer != nil {
		s.Observer.ObserveDiagnosis(ev.Severity)
	}

	logger.Info("analysis completed",
		"analysis_id", id,
		"severity", ev.Severity,
		"backend", ev.Backend,
		"fallback", outcome.Fallback,
	)

	return AnalyzeResult{
		Severity:   ev.Severity,
		Title:      ev.Title,
		Content:    ev.DiagnosisText,
		Timestamp:  ev.CreatedAt.Format(time.RFC3339Nano),
		AnalysisID: id,
	}, nil
}

// Quota reports remaining requests without admitting anything.
func (s *Service) Quota(ctx context.Context, identity string) (QuotaStatus, error) {
	remaining, err := s.Limiter.Remaining(ctx, identity, s.now())
	if err != nil {
		return QuotaStatus{}, &domain.PersistenceError{Cause: err}
	}
	return QuotaStatus{
		Remaining: remaining,
		Limit:     s.Limiter.Limit(),
		Window:    s.Limiter.Window(),
	}, nil
}

// History lists the identity's events newer than now-within, newest first.
func (s *Service) History(ctx context.Context, identity string, within time.Duration, limit int) ([]*domain.Event, error) {
	if within <= 0 {
		within = s.Limiter.Window()
	}
	events, err := s.Store.ListSince(ctx, identity, s.now().Add(-within), limit)
	if err != nil {
		return nil, &domain.PersistenceError{Cause: err}
	}
	return events, nil
}

func (s *Service) archive(ctx context.Context, ev *domain.Event) {
	if s.Archive == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	url, err := s.Archive.Put(actx, ev)
	if err != nil {
		logging.From(ctx).Warn("failed to archive diagnosis", "analysis_id", ev.ID, "error", err)
		return
	}
	logging.From(ctx).Debug("diagnosis archived", "analysis_id", ev.ID, "url", url)
}

func (s *Service) rejected(kind domain.Kind) {
	if s.Observer != nil {
		s.Observer.ObserveRejected(kind)
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now().UTC()
}

// RetryAfter estimates how long until identity is admitted again. It is zero
// when a request would be admitted now.
func (s *Service) RetryAfter(ctx context.Context, identity string) (time.Duration, error) {
	now := s.now()
	window := s.Limiter.Window()
	events, err := s.Store.ListSince(ctx, identity, now.Add(-window), 0)
	if err != nil {
		return 0, &domain.PersistenceError{Cause: err}
	}
	// events terbaru dulu; slot pertama terbuka saat event ke-(excess+1) tertua keluar window
	excess := len(events) - s.Limiter.Limit()
	if excess < 0 {
		return 0, nil
	}
	d := events[len(events)-1-excess].CreatedAt.Add(window).Sub(now)
	if d < 0 {
		return 0, nil
	}
	return d, nil
}
