package inmemory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/memflow/memory"
	"github.com/BaSui01/memflow/testutil"
	"github.com/BaSui01/memflow/types"
)

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	return New(cfg, zap.NewNop())
}

func TestStore_StoreAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{})

	require.NoError(t, s.Store(ctx, "lang", "Go is simple", types.CategoryCore))

	entry, err := s.Get(ctx, "lang")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Go is simple", entry.Content)
	assert.Equal(t, types.CategoryCore, entry.Category)
	assert.NotEmpty(t, entry.ID)
	assert.Nil(t, entry.Score)

	missing, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_OverwriteKeepsID(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(t, Config{Now: func() time.Time { return fixed }})

	require.NoError(t, s.Store(ctx, "k", "v1", types.CategoryCore))
	first, _ := s.Get(ctx, "k")
	require.NoError(t, s.Store(ctx, "k", "v2", types.CategoryDaily))
	second, _ := s.Get(ctx, "k")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "v2", second.Content)
	assert.Equal(t, types.CategoryDaily, second.Category)
	assert.Equal(t, "2024-01-01T00:00:00Z", second.Timestamp)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_RecallRanksByTermHits(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{})

	require.NoError(t, s.Store(ctx, "a", "Rust is fast", types.CategoryCore))
	require.NoError(t, s.Store(ctx, "b", "Rust is fast and safe", types.CategoryCore))
	require.NoError(t, s.Store(ctx, "c", "Python is easy", types.CategoryCore))

	results, err := s.Recall(ctx, "rust safe", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Key)
	assert.Equal(t, "a", results[1].Key)
	require.NotNil(t, results[0].Score)
	assert.Equal(t, 1.0, *results[0].Score)
	assert.Equal(t, 0.5, *results[1].Score)
}

func TestStore_RecallEdgeCases(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{})
	require.NoError(t, s.Store(ctx, "a", "alpha", types.CategoryCore))

	tests := []struct {
		name  string
		query string
		limit int
	}{
		{"no match", "zzz", 5},
		{"zero limit", "alpha", 0},
		{"blank query", "   ", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.Recall(ctx, tt.query, tt.limit)
			require.NoError(t, err)
			assert.NotNil(t, results)
			assert.Empty(t, results)
		})
	}
}

func TestStore_ListFiltersByCategory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{})

	require.NoError(t, s.Store(ctx, "a", "1", types.CategoryCore))
	require.NoError(t, s.Store(ctx, "b", "2", types.CategoryDaily))
	require.NoError(t, s.Store(ctx, "c", "3", types.CustomCategory("notes")))

	all, err := s.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Key)

	cat := types.CustomCategory("notes")
	notes, err := s.List(ctx, &cat)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "c", notes[0].Key)
}

func TestStore_Forget(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{})
	require.NoError(t, s.Store(ctx, "temp", "temporary", types.CategoryConversation))

	removed, err := s.Forget(ctx, "temp")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Forget(ctx, "temp")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStore_MaxEntriesEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{MaxEntries: 2})

	require.NoError(t, s.Store(ctx, "a", "1", types.CategoryCore))
	require.NoError(t, s.Store(ctx, "b", "2", types.CategoryCore))
	require.NoError(t, s.Store(ctx, "c", "3", types.CategoryCore))

	a, _ := s.Get(ctx, "a")
	assert.Nil(t, a)
	n, _ := s.Count(ctx)
	assert.Equal(t, 2, n)
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newTestStore(t, Config{})

	assert.Error(t, s.Store(ctx, "k", "v", types.CategoryCore))
	_, err := s.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, s.HealthCheck(ctx))
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("k-%d-%d", i, j)
				_ = s.Store(ctx, key, "v", types.CategoryCore)
				_, _ = s.Get(ctx, key)
				_, _ = s.Recall(ctx, "v", 3)
			}
		}(i)
	}
	wg.Wait()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16*50, n)
}

func TestStore_Conformance(t *testing.T) {
	testutil.RunMemoryConformance(t, func(t *testing.T) memory.Memory {
		return newTestStore(t, Config{})
	})
}
