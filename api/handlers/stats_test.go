package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/memflow/api"
	"github.com/BaSui01/memflow/memory/tiered"
	"github.com/BaSui01/memflow/testutil/mocks"
	"github.com/BaSui01/memflow/types"
)

func newStatsFixture(t *testing.T) (*tiered.Cache, *http.ServeMux) {
	t.Helper()
	cache := tiered.New(mocks.NewMockMemory(), tiered.DefaultConfig())
	ctx := context.Background()
	require.NoError(t, cache.Store(ctx, "a", "alpha", types.CategoryCore))
	_, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	_, err = cache.Get(ctx, "missing")
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewStatsHandler(cache, "mock", zap.NewNop()).Register(mux)
	return cache, mux
}

func TestStatsHandler_HandleStats(t *testing.T) {
	_, mux := newStatsFixture(t)

	w := do(t, mux, http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	stats := decodeData[api.StatsResponse](t, w)
	assert.True(t, stats.Tiered)
	assert.Equal(t, "mock", stats.Backend)
	assert.Equal(t, uint64(1), stats.Stats.Hits)
	assert.Equal(t, uint64(1), stats.Stats.HotHits)
	assert.Equal(t, uint64(1), stats.Stats.Misses)
	assert.Equal(t, 1, stats.Stats.HotSize)
	assert.Equal(t, 1, stats.Stats.WarmSize)
	assert.InDelta(t, 50.0, stats.HitRate, 0.001)
}

func TestStatsHandler_HandleStats_NoCache(t *testing.T) {
	mux := http.NewServeMux()
	NewStatsHandler(nil, "memory", nil).Register(mux)

	w := do(t, mux, http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeData[api.StatsResponse](t, w)
	assert.False(t, stats.Tiered)
	assert.Equal(t, "memory", stats.Backend)
	assert.Zero(t, stats.HitRate)
}

func TestStatsHandler_HandleStats_BackendError(t *testing.T) {
	cache := tiered.New(mocks.NewMockMemory().WithCountError(errors.New("down")), tiered.DefaultConfig())
	mux := http.NewServeMux()
	NewStatsHandler(cache, "mock", zap.NewNop()).Register(mux)

	w := do(t, mux, http.MethodGet, "/v1/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatsHandler_Stream(t *testing.T) {
	cache, mux := newStatsFixture(t)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stats/stream?interval=100ms"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var first api.StatsResponse
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.True(t, first.Tiered)
	assert.Equal(t, uint64(1), first.Stats.Hits)

	// 下一帧反映新的命中
	_, err = cache.Get(ctx, "a")
	require.NoError(t, err)

	var second api.StatsResponse
	require.NoError(t, wsjson.Read(ctx, conn, &second))
	assert.Equal(t, uint64(2), second.Stats.Hits)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
}

func TestStatsHandler_Close_EndsStream(t *testing.T) {
	cache := tiered.New(mocks.NewMockMemory(), tiered.DefaultConfig())
	h := NewStatsHandler(cache, "mock", zap.NewNop())
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stats/stream?interval=1m"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var frame api.StatsResponse
	require.NoError(t, wsjson.Read(ctx, conn, &frame))

	h.Close()
	h.Close()

	err = wsjson.Read(ctx, conn, &frame)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}

func TestStatsHandler_Stream_InvalidInterval(t *testing.T) {
	_, mux := newStatsFixture(t)

	for _, interval := range []string{"abc", "1ms", "2h"} {
		w := do(t, mux, http.MethodGet, "/v1/stats/stream?interval="+interval, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, interval)
	}
}

func TestParseInterval(t *testing.T) {
	d, err := parseInterval("")
	require.NoError(t, err)
	assert.Equal(t, defaultStreamInterval, d)

	d, err = parseInterval("250ms")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
}
