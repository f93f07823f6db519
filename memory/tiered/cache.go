package tiered

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/memflow/internal/ctxkeys"
	"github.com/BaSui01/memflow/memory"
	"github.com/BaSui01/memflow/types"
)

const tracerName = "github.com/BaSui01/memflow/memory/tiered"

// =============================================================================
// 🗂️ 分层缓存
// =============================================================================

// Cache 分层记忆缓存：热层（进程内）+ 温层（被包装的后端）
type Cache struct {
	backend memory.Memory
	config  Config

	hot   *hotIndex
	lru   *lruQueue
	stats statsRecorder

	observer Observer
	tracer   trace.Tracer
	logger   *zap.Logger
}

// Option 配置 Cache 的可选项
type Option func(*Cache)

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver 设置缓存事件观察者
func WithObserver(o Observer) Option {
	return func(c *Cache) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithTracer 设置后端调用的 tracer
func WithTracer(t trace.Tracer) Option {
	return func(c *Cache) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New 创建分层缓存
func New(backend memory.Memory, config Config, opts ...Option) *Cache {
	c := &Cache{
		backend:  backend,
		hot:      newHotIndex(defaultShardCount),
		lru:      newLRUQueue(),
		observer: noopObserver{},
		tracer:   otel.Tracer(tracerName),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if config.HotCacheSize <= 0 {
		c.logger.Warn("invalid hot cache size, using default",
			zap.Int("hot_cache_size", config.HotCacheSize),
			zap.Int("default", DefaultConfig().HotCacheSize),
		)
		config.HotCacheSize = DefaultConfig().HotCacheSize
	}
	c.config = config
	c.logger = c.logger.With(zap.String("component", "tiered_cache"))

	c.logger.Info("tiered cache initialized",
		zap.String("backend", backend.Name()),
		zap.Int("hot_cache_size", config.HotCacheSize),
		zap.Bool("promotion", config.EnablePromotion),
		zap.Bool("lru", config.EnableLRU),
	)

	return c
}

// NewWithDefaults 使用默认配置创建分层缓存
func NewWithDefaults(backend memory.Memory, opts ...Option) *Cache {
	return New(backend, DefaultConfig(), opts...)
}

// =============================================================================
// 🎯 Memory 接口实现
// =============================================================================

// Name 返回 "tiered"
func (c *Cache) Name() string {
	return "tiered"
}

// Store 写穿后端，成功后按配置晋升新条目
func (c *Cache) Store(ctx context.Context, key, content string, category types.MemoryCategory) error {
	start := time.Now()

	err := c.callBackend(ctx, "store", func(ctx context.Context) error {
		return c.backend.Store(ctx, key, content, category)
	})
	if err != nil {
		return err
	}

	if c.config.EnablePromotion {
		c.promote(types.NewMemoryEntry(key, content, category))
	}
	c.stats.recordOperation()

	c.logger.Debug("stored entry",
		zap.String("key", key),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Get 先查热层，未命中再查后端
func (c *Cache) Get(ctx context.Context, key string) (*types.MemoryEntry, error) {
	start := time.Now()

	if entry, ok := c.hot.touch(key); ok {
		elapsed := time.Since(start)
		c.recordHit(TierHot, elapsed)
		return &entry, nil
	}

	warmStart := time.Now()
	var result *types.MemoryEntry
	err := c.callBackend(ctx, "get", func(ctx context.Context) error {
		var err error
		result, err = c.backend.Get(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	warmElapsed := time.Since(warmStart)

	if result == nil {
		c.stats.recordMiss()
		c.observer.RecordMiss()
		return nil, nil
	}

	if c.config.EnablePromotion {
		c.promote(*result)
	}
	c.recordHit(TierWarm, warmElapsed)
	return result, nil
}

// Recall 热层子串扫描，不足 limit 时由后端补足剩余配额。
// 后端按完整 limit 查询，去掉已由热层给出的 key 后再截断，
// 热层副本排在后端结果之前时不会挤占配额。
func (c *Cache) Recall(ctx context.Context, query string, limit int) ([]types.MemoryEntry, error) {
	if limit <= 0 {
		c.stats.recordOperation()
		return []types.MemoryEntry{}, nil
	}

	start := time.Now()
	hotResults := c.scanHot(query, limit)
	hotCount := len(hotResults)

	if hotCount >= limit {
		c.recordHit(TierHot, time.Since(start))
		return hotResults, nil
	}
	hotElapsed := time.Since(start)

	warmStart := time.Now()
	var warmResults []types.MemoryEntry
	err := c.callBackend(ctx, "recall", func(ctx context.Context) error {
		var err error
		warmResults, err = c.backend.Recall(ctx, query, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	warmElapsed := time.Since(warmStart)

	seen := make(map[string]struct{}, hotCount)
	for _, e := range hotResults {
		seen[e.Key] = struct{}{}
	}

	results := hotResults
	for _, e := range warmResults {
		if len(results) >= limit {
			break
		}
		if _, dup := seen[e.Key]; dup {
			continue
		}
		seen[e.Key] = struct{}{}
		results = append(results, e)
	}
	fromBackend := results[hotCount:]

	if hotCount > 0 {
		c.recordHit(TierHot, hotElapsed)
	}
	if len(fromBackend) > 0 {
		c.recordHit(TierWarm, warmElapsed)
	}

	if c.config.EnablePromotion {
		for _, e := range fromBackend {
			c.promote(e)
		}
	}

	return results, nil
}

// List 直接委托后端
func (c *Cache) List(ctx context.Context, category *types.MemoryCategory) ([]types.MemoryEntry, error) {
	var out []types.MemoryEntry
	err := c.callBackend(ctx, "list", func(ctx context.Context) error {
		var err error
		out, err = c.backend.List(ctx, category)
		return err
	})
	return out, err
}

// Forget 从热层与后端删除，返回后端的删除结果
func (c *Cache) Forget(ctx context.Context, key string) (bool, error) {
	c.lru.remove(key)
	c.hot.remove(key)

	var removed bool
	err := c.callBackend(ctx, "forget", func(ctx context.Context) error {
		var err error
		removed, err = c.backend.Forget(ctx, key)
		return err
	})
	return removed, err
}

// Count 直接委托后端
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	err := c.callBackend(ctx, "count", func(ctx context.Context) error {
		var err error
		n, err = c.backend.Count(ctx)
		return err
	})
	return n, err
}

// HealthCheck 直接委托后端
func (c *Cache) HealthCheck(ctx context.Context) bool {
	return c.backend.HealthCheck(ctx)
}

// =============================================================================
// 📊 统计与访问器
// =============================================================================

// Stats 返回统计快照，热层大小在调用时采样
func (c *Cache) Stats() Stats {
	s := c.stats.snapshot()
	s.HotSize = c.hot.len()
	return s
}

// Snapshot 返回统计快照，并通过后端 Count 采样温层大小
func (c *Cache) Snapshot(ctx context.Context) (Stats, error) {
	s := c.Stats()
	n, err := c.Count(ctx)
	if err != nil {
		return s, err
	}
	s.WarmSize = n
	return s, nil
}

// ResetStats 清零统计
func (c *Cache) ResetStats() {
	c.stats.reset()
}

// Config 返回缓存配置
func (c *Cache) Config() Config {
	return c.config
}

// Backend 返回被包装的后端
func (c *Cache) Backend() memory.Memory {
	return c.backend
}

// AccessCount 返回 key 在热层中的命中次数，不在热层时为 0
func (c *Cache) AccessCount(key string) uint64 {
	return c.hot.accessCount(key)
}

// InHotTier 报告 key 当前是否在热层
func (c *Cache) InHotTier(key string) bool {
	return c.hot.contains(key)
}

// =============================================================================
// 🔧 内部方法
// =============================================================================

// promote 将条目放入热层，热层已满时先淘汰队尾
func (c *Cache) promote(entry types.MemoryEntry) {
	entry = entry.Clone()
	entry.Score = nil

	if !c.hot.contains(entry.Key) {
		for c.hot.len() >= c.config.HotCacheSize {
			if !c.config.EnableLRU {
				c.logger.Debug("hot tier full and lru disabled, skipping promotion",
					zap.String("key", entry.Key),
				)
				return
			}
			victim, ok := c.lru.back()
			if !ok {
				break
			}
			c.evict(victim)
		}
	}

	c.hot.put(entry)
	c.lru.pushFront(entry.Key)
	c.observer.RecordPromotion()
}

// evict 淘汰 key；已被其他调用者移除时不重复计数
func (c *Cache) evict(key string) {
	c.lru.remove(key)
	if !c.hot.remove(key) {
		return
	}
	c.stats.recordEviction()
	c.observer.RecordEviction()
	c.logger.Debug("evicted entry from hot tier", zap.String("key", key))
}

// scanHot 按晋升顺序（最近优先）扫描热层
func (c *Cache) scanHot(query string, limit int) []types.MemoryEntry {
	out := make([]types.MemoryEntry, 0, limit)
	for _, key := range c.lru.keys() {
		if len(out) >= limit {
			break
		}
		entry, ok := c.hot.lookup(key)
		if !ok {
			continue
		}
		if strings.Contains(entry.Content, query) || strings.Contains(entry.Key, query) {
			out = append(out, entry)
		}
	}
	return out
}

func (c *Cache) recordHit(tier CacheTier, elapsed time.Duration) {
	c.stats.recordHit(tier, elapsed)
	c.observer.RecordHit(tier, elapsed)
}

// callBackend 包装后端调用：tracing span + 观察者计时，错误原样返回
func (c *Cache) callBackend(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "tiered.backend."+op,
		trace.WithAttributes(attribute.String("memory.backend", c.backend.Name())),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	c.observer.ObserveBackend(op, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		fields := []zap.Field{zap.String("op", op), zap.Error(err)}
		if id, ok := ctxkeys.RequestID(ctx); ok {
			fields = append(fields, zap.String("request_id", id))
		}
		c.logger.Warn("backend operation failed", fields...)
	}
	return err
}
