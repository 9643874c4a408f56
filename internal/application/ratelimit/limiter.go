package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultMaxRequests = 10
	DefaultWindow      = 24 * time.Hour
)

// Counter is the slice of HistoryStore the limiter needs.
type Counter interface {
	CountSince(ctx context.Context, identity string, since time.Time) (int, error)
}

// Decision is the outcome of CheckAndAdmit.
type Decision struct {
	Admitted bool
	// Count is the number of events already in the window.
	Count  int
	Limit  int
	Window time.Duration
}

// Limiter enforces a strict trailing-window quota per identity. The window
// count is recomputed from the store on every call; nothing is cached.
type Limiter struct {
	store  Counter
	limit  int
	window time.Duration
}

func New(store Counter, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{store: store, limit: limit, window: window}
}

func (l *Limiter) Limit() int { return l.limit }
func (l *Limiter) Window() time.Duration { return l.window }

// CheckAndAdmit denies once count >= limit.
func (l *Limiter) CheckAndAdmit(ctx context.Context, identity string, now time.Time) (Decision, error) {
	count, err := l.count(ctx, identity, now)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Admitted: count < l.limit,
		Count:    count,
		Limit:    l.limit,
		Window:   l.window,
	}, nil
}

// Remaining reports how many requests identity may still make in the
// current window. It does not admit anything.
func (l *Limiter) Remaining(ctx context.Context, identity string, now time.Time) (int, error) {
	count, err := l.count(ctx, identity, now)
	if err != nil {
		return 0, err
	}
	return max(0, l.limit-count), nil
}

func (l *Limiter) count(ctx context.Context, identity string, now time.Time) (int, error) {
	return l.store.CountSince(ctx, identity, now.Add(-l.window))
}
