// Package storetest holds behaviour checks shared by every HistoryStore.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/prodpulse/internal/domain/analysis"
)

// Run exercises store. identityPrefix keeps runs against shared databases apart.
func Run(t *testing.T, store analysis.HistoryStore, identityPrefix string) {
	t.Helper()
	base := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	id := func(s string) string { return identityPrefix + s }

	t.Run("append assigns increasing ids", func(t *testing.T) {
		ctx := context.Background()
		var last analysis.EventID
		for i := 0; i < 3; i++ {
			ev := newEvent(id("ids"), base.Add(time.Duration(i)*time.Second))
			got, err := store.Append(ctx, ev)
			require.NoError(t, err)
			assert.Greater(t, got, last)
			assert.Equal(t, got, ev.ID)
			last = got
		}
	})

	t.Run("count since is inclusive and per identity", func(t *testing.T) {
		ctx := context.Background()
		for _, at := range []time.Time{base.Add(-2 * time.Hour), base.Add(-time.Hour), base} {
			_, err := store.Append(ctx, newEvent(id("count"), at))
			require.NoError(t, err)
		}
		_, err := store.Append(ctx, newEvent(id("count-other"), base))
		require.NoError(t, err)

		n, err := store.CountSince(ctx, id("count"), base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = store.CountSince(ctx, id("count"), base.Add(time.Nanosecond))
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		n, err = store.CountSince(ctx, id("nobody"), time.Time{})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("list since newest first with limit", func(t *testing.T) {
		ctx := context.Background()
		for i := 0; i < 4; i++ {
			ev := newEvent(id("list"), base.Add(time.Duration(i)*time.Minute))
			ev.Title = string(rune('a' + i))
			_, err := store.Append(ctx, ev)
			require.NoError(t, err)
		}

		events, err := store.ListSince(ctx, id("list"), base.Add(time.Minute), 0)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "d", events[0].Title)
		assert.Equal(t, "b", events[2].Title)

		events, err = store.ListSince(ctx, id("list"), time.Time{}, 2)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "d", events[0].Title)
		assert.Equal(t, "c", events[1].Title)

		got := events[0]
		assert.Equal(t, id("list"), got.Identity)
		assert.Equal(t, "ERROR: payment service timeout", got.InputText)
		assert.Equal(t, "<div>diagnosis</div>", got.DiagnosisText)
		assert.Equal(t, analysis.SeverityWarning, got.Severity)
		assert.Equal(t, "offline", got.Backend)
		assert.True(t, got.CreatedAt.Equal(base.Add(3*time.Minute)), "created_at %s", got.CreatedAt)
	})

	t.Run("concurrent appends get distinct ids", func(t *testing.T) {
		ctx := context.Background()
		const n = 20
		ids := make(chan analysis.EventID, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := store.Append(ctx, newEvent(id("concurrent"), base))
				if assert.NoError(t, err) {
					ids <- got
				}
			}()
		}
		wg.Wait()
		close(ids)

		seen := map[analysis.EventID]bool{}
		for got := range ids {
			assert.False(t, seen[got], "duplicate id %d", got)
			seen[got] = true
		}
		assert.Len(t, seen, n)

		count, err := store.CountSince(ctx, id("concurrent"), base)
		require.NoError(t, err)
		assert.Equal(t, n, count)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(context.Background()))
	})
}

func newEvent(identity string, at time.Time) *analysis.Event {
	return &analysis.Event{
		Identity:      identity,
		InputText:     "ERROR: payment service timeout",
		DiagnosisText: "<div>diagnosis</div>",
		Severity:      analysis.SeverityWarning,
		Title:         "ERROR: payment service timeout",
		Backend:       "offline",
		CreatedAt:     at,
	}
}
