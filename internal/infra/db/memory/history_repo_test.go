package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/prodpulse/internal/domain/analysis"
	"github.com/bryanwahyu/prodpulse/internal/infra/db/memory"
	"github.com/bryanwahyu/prodpulse/internal/infra/db/storetest"
)

func TestHistoryStoreContract(t *testing.T) {
	storetest.Run(t, memory.NewHistoryRepository(), "")
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	repo := memory.NewHistoryRepository()
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	var last analysis.EventID
	for i := 0; i < 5; i++ {
		ev := &analysis.Event{Identity: "10.0.0.1", InputText: "error", CreatedAt: now}
		id, err := repo.Append(ctx, ev)
		require.NoError(t, err)
		assert.Greater(t, id, last)
		assert.Equal(t, id, ev.ID)
		last = id
	}

	_, err := repo.Append(ctx, nil)
	assert.ErrorIs(t, err, memory.ErrNilEvent)
}

func TestAppendConcurrentIDsUnique(t *testing.T) {
	repo := memory.NewHistoryRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[analysis.EventID]bool{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := repo.Append(ctx, &analysis.Event{Identity: "x", CreatedAt: time.Now()})
			assert.NoError(t, err)
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

func TestCountAndListSince(t *testing.T) {
	repo := memory.NewHistoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	for i, offset := range []time.Duration{-3 * time.Hour, -2 * time.Hour, -1 * time.Hour, 0} {
		_, err := repo.Append(ctx, &analysis.Event{
			Identity:  "1.2.3.4",
			Title:     []string{"a", "b", "c", "d"}[i],
			CreatedAt: base.Add(offset),
		})
		require.NoError(t, err)
	}
	_, err := repo.Append(ctx, &analysis.Event{Identity: "5.6.7.8", CreatedAt: base})
	require.NoError(t, err)

	// boundary is inclusive
	n, err := repo.CountSince(ctx, "1.2.3.4", base.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = repo.CountSince(ctx, "unknown", base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	list, err := repo.ListSince(ctx, "1.2.3.4", base.Add(-2*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "d", list[0].Title)
	assert.Equal(t, "c", list[1].Title)
	assert.Equal(t, "b", list[2].Title)

	limited, err := repo.ListSince(ctx, "1.2.3.4", base.Add(-24*time.Hour), 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "d", limited[0].Title)

	// returned events are copies
	limited[0].Title = "mutated"
	again, err := repo.ListSince(ctx, "1.2.3.4", base, 1)
	require.NoError(t, err)
	assert.Equal(t, "d", again[0].Title)
}
