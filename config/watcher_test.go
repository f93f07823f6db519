package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// --- Constructor ---

func TestNewFileWatcher_Defaults(t *testing.T) {
	f := writeTempConfig(t, "test.yaml", "key: val")

	w, err := NewFileWatcher([]string{f})
	require.NoError(t, err)

	assert.Equal(t, []string{f}, w.Paths())
	assert.False(t, w.IsRunning())
	assert.Equal(t, 100*time.Millisecond, w.debounceDelay)
	assert.Equal(t, time.Second, w.pollInterval)
}

func TestNewFileWatcher_WithOptions(t *testing.T) {
	f := writeTempConfig(t, "test.yaml", "key: val")

	w, err := NewFileWatcher([]string{f},
		WithDebounceDelay(500*time.Millisecond),
		WithPollInterval(20*time.Millisecond),
		WithWatcherLogger(zap.NewNop()),
	)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, w.debounceDelay)
	assert.Equal(t, 20*time.Millisecond, w.pollInterval)
}

func TestNewFileWatcher_NonExistentPath(t *testing.T) {
	w, err := NewFileWatcher([]string{"/nonexistent/path/memflow.yaml"})
	require.NoError(t, err)
	require.NotNil(t, w)
}

// --- Start / Stop / IsRunning lifecycle ---

func TestFileWatcher_Lifecycle(t *testing.T) {
	f := writeTempConfig(t, "memflow.yaml", "key: val")

	w, err := NewFileWatcher([]string{f}, WithDebounceDelay(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())

	err = w.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop())

	// 停止后可以重新启动
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Stop())
}

// --- Change detection ---

func collectEvents(w *FileWatcher) func() []FileEvent {
	var mu sync.Mutex
	var events []FileEvent
	w.OnChange(func(evt FileEvent) {
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
	})
	return func() []FileEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]FileEvent(nil), events...)
	}
}

func TestFileWatcher_DetectsWrite(t *testing.T) {
	f := writeTempConfig(t, "memflow.yaml", "v1")

	w, err := NewFileWatcher([]string{f},
		WithDebounceDelay(20*time.Millisecond),
		WithPollInterval(20*time.Millisecond),
	)
	require.NoError(t, err)
	events := collectEvents(w)

	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(f, future, future))

	require.Eventually(t, func() bool { return len(events()) >= 1 }, 2*time.Second, 10*time.Millisecond)
	got := events()[0]
	assert.Equal(t, f, got.Path)
	assert.Equal(t, FileOpWrite, got.Op)
}

func TestFileWatcher_DetectsCreateAndRemove(t *testing.T) {
	f := filepath.Join(t.TempDir(), "late.yaml")

	w, err := NewFileWatcher([]string{f},
		WithDebounceDelay(10*time.Millisecond),
		WithPollInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	events := collectEvents(w)

	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(f, []byte("v1"), 0644))
	require.Eventually(t, func() bool { return len(events()) >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, FileOpCreate, events()[0].Op)

	require.NoError(t, os.Remove(f))
	require.Eventually(t, func() bool { return len(events()) >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, FileOpRemove, events()[1].Op)
}

func TestFileWatcher_CoalescesSamePath(t *testing.T) {
	f := writeTempConfig(t, "coalesce.yaml", "v0")

	w, err := NewFileWatcher([]string{f}, WithDebounceDelay(50*time.Millisecond), WithPollInterval(time.Hour))
	require.NoError(t, err)
	events := collectEvents(w)

	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	for i := 0; i < 3; i++ {
		w.eventChan <- FileEvent{Path: f, Op: FileOpWrite, Timestamp: time.Now()}
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(events()) == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, events(), 1)
}

func TestFileWatcher_RapidEventsNoRace(t *testing.T) {
	f := writeTempConfig(t, "race.yaml", "v0")

	w, err := NewFileWatcher([]string{f}, WithDebounceDelay(time.Millisecond), WithPollInterval(time.Hour))
	require.NoError(t, err)
	events := collectEvents(w)

	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	for i := 0; i < 50; i++ {
		w.eventChan <- FileEvent{Path: f, Op: FileOpWrite, Timestamp: time.Now()}
	}

	require.Eventually(t, func() bool { return len(events()) >= 1 }, time.Second, 5*time.Millisecond)
}

func TestFileOp_String(t *testing.T) {
	assert.Equal(t, "CREATE", FileOpCreate.String())
	assert.Equal(t, "WRITE", FileOpWrite.String())
	assert.Equal(t, "REMOVE", FileOpRemove.String())
	assert.Equal(t, "UNKNOWN", FileOp(42).String())
}
