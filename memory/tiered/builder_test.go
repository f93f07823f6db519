package tiered

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/memflow/testutil/mocks"
	"github.com/BaSui01/memflow/types"
)

// recordingObserver 记录观察者事件
type recordingObserver struct {
	mu         sync.Mutex
	hits       map[CacheTier]int
	misses     int
	evictions  int
	promotions int
	backendOps []string
	backendErr int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{hits: make(map[CacheTier]int)}
}

func (o *recordingObserver) RecordHit(tier CacheTier, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits[tier]++
}

func (o *recordingObserver) RecordMiss() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses++
}

func (o *recordingObserver) RecordEviction() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.evictions++
}

func (o *recordingObserver) RecordPromotion() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.promotions++
}

func (o *recordingObserver) ObserveBackend(op string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.backendOps = append(o.backendOps, op)
	if err != nil {
		o.backendErr++
	}
}

func TestBuilder(t *testing.T) {
	backend := mocks.NewMockMemory()
	c := NewBuilder(backend).
		HotCacheSize(3).
		WarmCacheSize(30).
		HotTTL(time.Minute).
		WarmTTL(time.Hour).
		EnablePromotion(false).
		PromotionThreshold(9).
		EnableLRU(false).
		WithLogger(zaptest.NewLogger(t)).
		Build()

	cfg := c.Config()
	assert.Equal(t, 3, cfg.HotCacheSize)
	assert.Equal(t, 30, cfg.WarmCacheSize)
	assert.Equal(t, time.Minute, cfg.HotTTL)
	assert.Equal(t, time.Hour, cfg.WarmTTL)
	assert.False(t, cfg.EnablePromotion)
	assert.Equal(t, uint64(9), cfg.PromotionThreshold)
	assert.False(t, cfg.EnableLRU)
	assert.Same(t, backend, c.Backend())
}

func TestNewWithDefaults(t *testing.T) {
	c := NewWithDefaults(mocks.NewMockMemory())
	assert.Equal(t, DefaultConfig(), c.Config())
}

func TestObserverReceivesEvents(t *testing.T) {
	ctx := context.Background()
	obs := newRecordingObserver()
	backend := mocks.NewMockMemory()
	c := NewBuilder(backend).HotCacheSize(1).WithObserver(obs).Build()

	require.NoError(t, c.Store(ctx, "a", "1", types.CategoryCore))
	require.NoError(t, c.Store(ctx, "b", "2", types.CategoryCore))
	_, _ = c.Get(ctx, "b")
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "missing")

	backend.WithCountError(assert.AnError)
	_, _ = c.Count(ctx)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 1, obs.hits[TierHot])
	assert.Equal(t, 1, obs.hits[TierWarm])
	assert.Equal(t, 1, obs.misses)
	assert.Equal(t, 2, obs.evictions)
	assert.Equal(t, 3, obs.promotions)
	assert.Equal(t, []string{"store", "store", "get", "get", "count"}, obs.backendOps)
	assert.Equal(t, 1, obs.backendErr)
}

func TestRecallDeduplicatesBackendResults(t *testing.T) {
	ctx := context.Background()
	backend := mocks.NewMockMemory()
	c := New(backend, DefaultConfig())

	require.NoError(t, c.Store(ctx, "alpha", "rust is fast", types.CategoryCore))
	backend.WithRecallResults([]types.MemoryEntry{
		types.NewMemoryEntry("alpha", "rust is fast", types.CategoryCore).WithScore(1),
		types.NewMemoryEntry("gamma", "rust again", types.CategoryCore).WithScore(0.5),
	})

	results, err := c.Recall(ctx, "rust", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha", results[0].Key)
	assert.Equal(t, "gamma", results[1].Key)
	require.NotNil(t, results[1].Score)

	// 晋升到热层的副本不携带分数
	promoted, err := c.Get(ctx, "gamma")
	require.NoError(t, err)
	assert.Nil(t, promoted.Score)
}
