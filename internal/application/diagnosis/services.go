package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bryanwahyu/prodpulse/internal/domain/analysis"
	domain "github.com/bryanwahyu/prodpulse/internal/domain/diagnosis"
	"github.com/bryanwahyu/prodpulse/internal/logging"
)

// FallbackObserver is notified every time the fallback document is served.
type FallbackObserver interface {
	ObserveFallback(backend string)
}

// Outcome is the result of one Produce call. Text is always non-empty.
type Outcome struct {
	Text     string
	Backend  string
	Fallback bool
	// Cause is the backend failure that triggered the fallback, for logging only.
	Cause error
}

// Service wraps a Backend and guarantees a diagnosis for every call.
// Service is safe for concurrent use when the Backend is.
type Service struct {
	backend  domain.Backend
	observer FallbackObserver
}

type Option func(*Service)

func WithFallbackObserver(o FallbackObserver) Option {
	return func(s *Service) { s.observer = o }
}

func NewService(backend domain.Backend, opts ...Option) *Service {
	s := &Service{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BackendName returns the configured backend's name, or "none".
func (s *Service) BackendName() string {
	if s.backend == nil {
		return "none"
	}
	return s.backend.Name()
}

// Produce calls the backend exactly once, without retry. Any failure is
// logged and replaced by FallbackDocument.
func (s *Service) Produce(ctx context.Context, logText string) Outcome {
	name := s.BackendName()
	text, err := s.call(ctx, logText)
	if err == nil && strings.TrimSpace(text) == "" {
		err = domain.ErrEmptyResponse
	}
	if err == nil {
		return Outcome{Text: text, Backend: name}
	}

	logger := logging.From(ctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("diagnosis backend timed out, serving fallback", "backend", name, "error", err)
	case errors.Is(err, domain.ErrQuotaExceeded):
		logger.Warn("diagnosis backend quota exceeded, serving fallback", "backend", name, "error", err)
	default:
		logger.Error("diagnosis backend failed, serving fallback", "backend", name, "error", err)
	}
	if s.observer != nil {
		s.observer.ObserveFallback(name)
	}

	return Outcome{
		Text:     FallbackDocument(logText),
		Backend:  analysis.BackendFallback,
		Fallback: true,
		Cause:    err,
	}
}

func (s *Service) call(ctx context.Context, logText string) (text string, err error) {
	if s.backend == nil {
		return "", errors.New("no diagnosis backend configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("diagnosis backend panic: %v", r)
		}
	}()
	return s.backend.Diagnose(ctx, logText)
}
