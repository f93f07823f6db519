package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	// 创建 miniredis 实例
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// 创建 Manager
	logger := zap.NewNop()
	config := Config{
		Addr:     mr.Addr(),
		Password: "",
		DB:       0,
	}

	manager, err := NewManager(config, logger)
	require.NoError(t, err)

	return mr, manager
}

func TestNewManager(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	assert.NotNil(t, manager)
	assert.NotNil(t, manager.redis)
	assert.NotNil(t, manager.logger)
}

func TestManager_Get(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	require.NoError(t, mr.Set("test-key", "test-value"))

	value, err := manager.Get(context.Background(), "test-key")
	require.NoError(t, err)
	assert.Equal(t, "test-value", value)
}

func TestManager_GetNonExistent(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	// 获取不存在的键
	value, err := manager.Get(ctx, "non-existent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.True(t, IsCacheMiss(err))
	assert.Equal(t, "", value)
}

func TestManager_GetJSON(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	type TestData struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}
	require.NoError(t, mr.Set("test-json", `{"name":"test","value":123}`))

	var result TestData
	err := manager.GetJSON(context.Background(), "test-json", &result)
	require.NoError(t, err)

	assert.Equal(t, "test", result.Name)
	assert.Equal(t, 123, result.Value)
}

func TestManager_GetJSONNonExistent(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	var result map[string]any
	err := manager.GetJSON(ctx, "non-existent", &result)
	assert.Error(t, err)
}

func TestManager_GetJSONInvalidJSON(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	// 设置无效的 JSON 字符串
	require.NoError(t, mr.Set("test-invalid-json", "not a json"))

	// 尝试获取为 JSON
	var result map[string]any
	err := manager.GetJSON(ctx, "test-invalid-json", &result)
	assert.Error(t, err)
}

func TestManager_TTL(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	// 设置带 TTL 的值
	require.NoError(t, mr.Set("test-ttl", "value"))
	mr.SetTTL("test-ttl", 100*time.Millisecond)

	// 立即获取应该成功
	value, err := manager.Get(ctx, "test-ttl")
	require.NoError(t, err)
	assert.Equal(t, "value", value)

	// 快进时间
	mr.FastForward(200 * time.Millisecond)

	// 现在应该过期了
	_, err = manager.Get(ctx, "test-ttl")
	assert.Error(t, err)
}

func TestManager_HealthCheck(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	// Ping 应该成功
	err := manager.Ping(ctx)
	assert.NoError(t, err)
}

func TestManager_HealthCheckFailed(t *testing.T) {
	logger := zap.NewNop()
	config := Config{
		Addr: "localhost:9999", // 不存在的地址
	}

	manager, err := NewManager(config, logger)
	assert.Nil(t, manager)
	assert.Error(t, err)
}

func TestManager_ConcurrentOperations(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	// 并发读改写同一个计数器，乐观事务保证不丢更新
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.Watch(ctx, func(tx *redis.Tx) error {
				n, err := tx.Get(ctx, "counter").Int()
				if err != nil && !errors.Is(err, redis.Nil) {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, "counter", n+1, 0)
					return nil
				})
				return err
			}, 32, "counter")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	value, err := manager.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "10", value)
}

func TestManager_MGet(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()
	require.NoError(t, mr.Set("a", "1"))
	require.NoError(t, mr.Set("c", "3"))

	vals, found, err := manager.MGet(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "", "3"}, vals)
	assert.Equal(t, []bool{true, false, true}, found)

	vals, found, err = manager.MGet(ctx)
	require.NoError(t, err)
	assert.Empty(t, vals)
	assert.Empty(t, found)
}

func TestManager_SortedSetsAndSets(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()
	for i, member := range []string{"first", "second", "third"} {
		_, err := mr.ZAdd("order", float64(i+1), member)
		require.NoError(t, err)
	}
	_, err := mr.SAdd("group", "x", "y")
	require.NoError(t, err)

	asc, err := manager.ZRange(ctx, "order", 0, -1, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, asc)

	desc, err := manager.ZRange(ctx, "order", 0, 1, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second"}, desc)

	require.NoError(t, manager.ZRem(ctx, "order", "second"))
	require.NoError(t, manager.ZRem(ctx, "order"))
	n, err := manager.ZCard(ctx, "order")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	members, err := manager.SMembers(ctx, "group")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, members)
}

func TestManager_WatchRetriesOnConflict(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()
	require.NoError(t, mr.Set("k", "old"))

	attempts := 0
	err := manager.Watch(ctx, func(tx *redis.Tx) error {
		attempts++
		if _, err := tx.Get(ctx, "k").Result(); err != nil {
			return err
		}
		if attempts == 1 {
			// 监视之后被其他客户端改写
			require.NoError(t, mr.Set("k", "changed"))
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, "k", "new", 0)
			return nil
		})
		return err
	}, 3, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	value, err := manager.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "new", value)
}

func TestManager_WatchExhaustsAttempts(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()
	attempts := 0
	err := manager.Watch(ctx, func(tx *redis.Tx) error {
		attempts++
		if _, err := tx.Get(ctx, "k").Result(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		require.NoError(t, mr.Set("k", fmt.Sprint(attempts)))
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, "k", "never", 0)
			return nil
		})
		return err
	}, 2, "k")
	require.ErrorIs(t, err, ErrTxConflict)
	assert.Equal(t, 2, attempts)
}

func TestManager_WatchPassesThroughCallbackError(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	boom := errors.New("boom")
	attempts := 0
	err := manager.Watch(context.Background(), func(tx *redis.Tx) error {
		attempts++
		return boom
	}, 5, "k")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestManager_ClosedOperations(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	ctx := context.Background()
	_, err := manager.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, manager.Watch(ctx, func(*redis.Tx) error { return nil }, 1, "k"), ErrClosed)
	assert.ErrorIs(t, manager.Ping(ctx), ErrClosed)
	_, _, err = manager.MGet(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
}
