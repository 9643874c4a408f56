package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bryanwahyu/prodpulse/internal/domain/analysis"
)

var ErrNilEvent = errors.New("event required")

// HistoryRepository keeps events in process memory. Useful for development and tests.
type HistoryRepository struct {
	mu         sync.RWMutex
	lastID     analysis.EventID
	byIdentity map[string][]analysis.Event
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{byIdentity: make(map[string][]analysis.Event)}
}

func (r *HistoryRepository) Append(ctx context.Context, ev *analysis.Event) (analysis.EventID, error) {
	if ev == nil {
		return 0, ErrNilEvent
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	ev.ID = r.lastID
	r.byIdentity[ev.Identity] = append(r.byIdentity[ev.Identity], *ev)
	return ev.ID, nil
}

func (r *HistoryRepository) CountSince(ctx context.Context, identity string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.byIdentity[identity] {
		if !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *HistoryRepository) ListSince(ctx context.Context, identity string, since time.Time, limit int) ([]*analysis.Event, error) {
	r.mu.RLock()
	out := make([]*analysis.Event, 0)
	for _, e := range r.byIdentity[identity] {
		if !e.CreatedAt.Before(since) {
			cp := e
			out = append(out, &cp)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *HistoryRepository) Ping(ctx context.Context) error { return nil }

func (r *HistoryRepository) Close() error { return nil }
