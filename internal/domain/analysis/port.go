package analysis

import (
	"context"
	"time"
)

// HistoryStore port (interface untuk persistence)
//
// Append assigns ev.ID and returns it. CountSince and ListSince include events
// whose CreatedAt is at or after since. ListSince returns newest first.
type HistoryStore interface {
	Append(ctx context.Context, ev *Event) (EventID, error)
	CountSince(ctx context.Context, identity string, since time.Time) (int, error)
	ListSince(ctx context.Context, identity string, since time.Time, limit int) ([]*Event, error)
	Ping(ctx context.Context) error
	Close() error
}

// Archive port (interface untuk penyimpanan dokumen diagnosis)
type Archive interface {
	Put(ctx context.Context, ev *Event) (string, error)
}
