// Package cache provides internal cache management.
// This package is internal and should not be imported by external projects.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/memflow/internal/tlsutil"
)

// =============================================================================
// 💾 缓存管理器
// =============================================================================

// Manager Redis 管理器
type Manager struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// Config 缓存配置
type Config struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"-"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// 是否启用 TLS
	TLSEnabled bool `yaml:"tls_enabled" json:"tls_enabled"`

	// 健康检查间隔
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		Password:            "",
		DB:                  0,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// NewManager 创建管理器并验证连接
func NewManager(config Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := &redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	}
	if config.TLSEnabled {
		opts.TLSConfig = tlsutil.DefaultTLSConfig()
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	m := &Manager{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "cache")),
		done:   make(chan struct{}),
	}

	if config.HealthCheckInterval > 0 {
		go m.healthCheckLoop()
	}

	m.logger.Info("cache manager initialized",
		zap.String("addr", config.Addr),
		zap.Int("pool_size", config.PoolSize),
		zap.Bool("tls", config.TLSEnabled),
	)

	return m, nil
}

// =============================================================================
// 🎯 键值操作
// =============================================================================

// Get 获取值，不存在时返回 ErrCacheMiss
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	if err := m.checkOpen(); err != nil {
		return "", err
	}

	val, err := m.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		m.logger.Error("cache get failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("cache get failed: %w", err)
	}

	return val, nil
}

// GetJSON 获取 JSON 值
func (m *Manager) GetJSON(ctx context.Context, key string, dest any) error {
	val, err := m.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return nil
}

// MGet 批量获取，缺失的 key 对应位置为 ""，ok 为 false
func (m *Manager) MGet(ctx context.Context, keys ...string) ([]string, []bool, error) {
	if err := m.checkOpen(); err != nil {
		return nil, nil, err
	}
	if len(keys) == 0 {
		return []string{}, []bool{}, nil
	}

	vals, err := m.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("cache mget failed: %w", err)
	}

	out := make([]string, len(vals))
	found := make([]bool, len(vals))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i], found[i] = s, true
		}
	}
	return out, found, nil
}

// =============================================================================
// 📚 有序集合、集合与乐观事务
// =============================================================================

// Watch 以 WATCH/MULTI/EXEC 执行读改写：fn 内先用 tx 读取，再用
// tx.TxPipelined 提交；被监视的 key 在提交前被改动时整体重试，
// 最多 maxAttempts 次，耗尽后返回 ErrTxConflict
func (m *Manager) Watch(ctx context.Context, fn func(*redis.Tx) error, maxAttempts int, keys ...string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := m.redis.Watch(ctx, fn, keys...)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("cache transaction failed: %w", err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		m.logger.Debug("watched keys changed, retrying",
			zap.Strings("keys", keys),
			zap.Int("attempt", attempt),
		)
	}
	return fmt.Errorf("%w: %v after %d attempts", ErrTxConflict, keys, maxAttempts)
}

// ZRange 按分数顺序返回有序集合成员，rev 为 true 时倒序；stop 为 -1 表示到末尾
func (m *Manager) ZRange(ctx context.Context, key string, start, stop int64, rev bool) ([]string, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	var (
		members []string
		err     error
	)
	if rev {
		members, err = m.redis.ZRevRange(ctx, key, start, stop).Result()
	} else {
		members, err = m.redis.ZRange(ctx, key, start, stop).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("cache zrange failed: %w", err)
	}
	return members, nil
}

// ZCard 返回有序集合大小
func (m *Manager) ZCard(ctx context.Context, key string) (int64, error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}

	n, err := m.redis.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("cache zcard failed: %w", err)
	}
	return n, nil
}

// ZRem 从有序集合删除成员
func (m *Manager) ZRem(ctx context.Context, key string, members ...string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}

	args := make([]any, len(members))
	for i, mem := range members {
		args[i] = mem
	}
	if err := m.redis.ZRem(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("cache zrem failed: %w", err)
	}
	return nil
}

// SMembers 返回集合成员
func (m *Manager) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	members, err := m.redis.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("cache smembers failed: %w", err)
	}
	return members, nil
}

// =============================================================================
// 🔌 生命周期
// =============================================================================

// Ping 检查 Redis 连接
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	return m.redis.Ping(ctx).Err()
}

// Close 关闭管理器
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	close(m.done)
	m.logger.Info("closing cache manager")

	return m.redis.Close()
}

func (m *Manager) checkOpen() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

// healthCheckLoop 健康检查循环
func (m *Manager) healthCheckLoop() {
	ticker := time.NewTicker(m.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := m.Ping(ctx); err != nil {
			m.logger.Error("cache health check failed", zap.Error(err))
		} else {
			m.logger.Debug("cache health check passed")
		}
		cancel()
	}
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

var (
	// ErrCacheMiss 缓存未命中
	ErrCacheMiss = errors.New("cache miss")

	// ErrClosed 管理器已关闭
	ErrClosed = errors.New("cache manager is closed")

	// ErrTxConflict 乐观事务重试耗尽
	ErrTxConflict = errors.New("cache transaction conflict")
)

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
