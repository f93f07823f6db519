package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

func get(t *testing.T, addr string) string {
	t.Helper()
	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	return string(body)
}

// --- DefaultConfig ---

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 1<<20, cfg.MaxHeaderBytes)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

// --- Start / Shutdown lifecycle ---

func TestManager_StartAndShutdown(t *testing.T) {
	m := NewManager("api", okHandler(), testConfig(), zaptest.NewLogger(t))
	assert.False(t, m.IsRunning())
	assert.Equal(t, "api", m.Name())

	require.NoError(t, m.Start())
	assert.True(t, m.IsRunning())
	assert.Equal(t, "ok", get(t, m.Addr()))

	require.NoError(t, m.Shutdown(context.Background()))
	assert.False(t, m.IsRunning())

	// 重复关闭为空操作
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_DoubleStart(t *testing.T) {
	m := NewManager("api", okHandler(), testConfig(), zap.NewNop())
	require.NoError(t, m.Start())
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	assert.ErrorContains(t, m.Start(), "already started")
}

func TestManager_StartAfterShutdown(t *testing.T) {
	m := NewManager("api", okHandler(), testConfig(), zap.NewNop())
	require.NoError(t, m.Start())
	require.NoError(t, m.Shutdown(context.Background()))

	assert.ErrorContains(t, m.Start(), "closed")
}

func TestManager_StartListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cfg := testConfig()
	cfg.Addr = l.Addr().String()
	m := NewManager("api", okHandler(), cfg, nil)

	assert.ErrorContains(t, m.Start(), "failed to listen")
}

func TestManager_AddrBeforeStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = ":9999"
	m := NewManager("metrics", okHandler(), cfg, zap.NewNop())
	assert.Equal(t, ":9999", m.Addr())

	select {
	case <-m.Errors():
		t.Fatal("unexpected error")
	default:
	}
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	m := NewManager("api", okHandler(), testConfig(), zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, m.IsRunning, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "ok", get(t, m.Addr()))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, m.IsRunning())
}

func TestManager_RegisterOnShutdown(t *testing.T) {
	m := NewManager("api", okHandler(), testConfig(), zap.NewNop())
	called := make(chan struct{})
	m.RegisterOnShutdown(func() { close(called) })

	require.NoError(t, m.Start())
	require.NoError(t, m.Shutdown(context.Background()))

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("shutdown hook not called")
	}
}

// --- Run (group) ---

func TestRun_ServersAndTasks(t *testing.T) {
	api := NewManager("api", okHandler(), testConfig(), zap.NewNop())
	metrics := NewManager("metrics", okHandler(), testConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	taskStarted := make(chan struct{})
	task := func(ctx context.Context) error {
		close(taskStarted)
		<-ctx.Done()
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- Run(ctx, []*Manager{api, metrics}, task) }()

	<-taskStarted
	require.Eventually(t, func() bool { return api.IsRunning() && metrics.IsRunning() }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "ok", get(t, api.Addr()))
	assert.Equal(t, "ok", get(t, metrics.Addr()))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRun_TaskFailureStopsServers(t *testing.T) {
	api := NewManager("api", okHandler(), testConfig(), zap.NewNop())
	boom := errors.New("sampler failed")

	err := Run(context.Background(), []*Manager{api}, func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, api.IsRunning())
}
