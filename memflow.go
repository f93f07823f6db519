// Package memflow 按配置组装记忆后端、向量化提供者与分层缓存。
//
// 用法:
//
//	cfg, _ := config.NewLoader().WithConfigPath("memflow.yaml").Load()
//	inst, err := memflow.Open(ctx, cfg, memflow.WithLogger(logger))
//	defer inst.Close(ctx)
//	_ = inst.Memory().Store(ctx, "user_lang", "prefers Go", types.CategoryCore)
package memflow

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/memflow/config"
	"github.com/BaSui01/memflow/embedding"
	"github.com/BaSui01/memflow/internal/cache"
	"github.com/BaSui01/memflow/internal/database"
	"github.com/BaSui01/memflow/internal/metrics"
	"github.com/BaSui01/memflow/memory"
	"github.com/BaSui01/memflow/memory/inmemory"
	"github.com/BaSui01/memflow/memory/mongostore"
	"github.com/BaSui01/memflow/memory/redisstore"
	"github.com/BaSui01/memflow/memory/sqlstore"
	"github.com/BaSui01/memflow/memory/tiered"
)

// 后端名称
const (
	BackendMemory    = "memory"
	BackendSQL       = "sql"
	BackendSQLPooled = "sql-pooled"
	BackendRedis     = "redis"
	BackendMongo     = "mongo"
)

// ErrUnknownBackend 未知的后端名称
var ErrUnknownBackend = errors.New("unknown memory backend")

// =============================================================================
// ⚙️ 选项
// =============================================================================

type options struct {
	logger    *zap.Logger
	collector *metrics.Collector
	tracer    trace.Tracer
	embedder  embedding.Provider
}

// Option 配置 Open
type Option func(*options)

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCollector 启用 Prometheus 指标：缓存观察者、后端操作与 embedding 请求
func WithCollector(c *metrics.Collector) Option {
	return func(o *options) { o.collector = c }
}

// WithTracer 设置分层缓存后端调用的 tracer
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithEmbedder 使用给定提供者，忽略配置中的 embedding 段
func WithEmbedder(p embedding.Provider) Option {
	return func(o *options) { o.embedder = p }
}

// =============================================================================
// 🏭 Instance
// =============================================================================

// Instance 组装完成的记忆栈
type Instance struct {
	memory   memory.Memory
	backend  memory.Memory
	cache    *tiered.Cache
	embedder embedding.Provider
	closers  []func(context.Context) error
	logger   *zap.Logger
}

// Memory 对外使用的记忆实现：启用分层缓存时为 Cache，否则为后端
func (i *Instance) Memory() memory.Memory { return i.memory }

// Backend 持久化后端
func (i *Instance) Backend() memory.Memory { return i.backend }

// Cache 分层缓存；未启用时为 nil
func (i *Instance) Cache() *tiered.Cache { return i.cache }

// Embedder 向量化提供者
func (i *Instance) Embedder() embedding.Provider { return i.embedder }

// Close 按创建的逆序释放后端资源
func (i *Instance) Close(ctx context.Context) error {
	var errs []error
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	i.closers = nil
	return errors.Join(errs...)
}

func (i *Instance) onClose(fn func(context.Context) error) {
	i.closers = append(i.closers, fn)
}

// Open 根据配置创建后端，并按 Memory.Tiered.Enabled 包装分层缓存
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Instance, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	inst := &Instance{logger: o.logger.With(zap.String("component", "memflow"))}

	inst.embedder = o.embedder
	if inst.embedder == nil {
		e := cfg.Embedding
		inst.embedder = embedding.NewProvider(e.Provider, e.APIKey, e.Model, e.Dimensions)
	}
	if o.collector != nil {
		inst.embedder = o.collector.InstrumentProvider(inst.embedder)
	}

	backend, err := inst.openBackend(ctx, cfg, o)
	if err != nil {
		_ = inst.Close(ctx)
		return nil, err
	}
	inst.backend = backend
	inst.memory = backend

	if cfg.Memory.Tiered.Enabled {
		cacheOpts := []tiered.Option{tiered.WithLogger(o.logger)}
		if o.collector != nil {
			cacheOpts = append(cacheOpts, tiered.WithObserver(o.collector.CacheObserver(backend.Name())))
		}
		if o.tracer != nil {
			cacheOpts = append(cacheOpts, tiered.WithTracer(o.tracer))
		}
		inst.cache = tiered.New(backend, cfg.Memory.Tiered.ToCacheConfig(), cacheOpts...)
		inst.memory = inst.cache
	} else if o.collector != nil {
		inst.memory = o.collector.InstrumentMemory(backend)
	}

	inst.logger.Info("memory stack ready",
		zap.String("backend", backend.Name()),
		zap.Bool("tiered", inst.cache != nil),
		zap.String("embedding", inst.embedder.Name()),
	)
	return inst, nil
}

func (i *Instance) openBackend(ctx context.Context, cfg *config.Config, o *options) (memory.Memory, error) {
	mc := cfg.Memory

	switch mc.Backend {
	case BackendMemory, "":
		return inmemory.New(inmemory.Config{}, o.logger), nil

	case BackendSQL, BackendSQLPooled:
		db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN(), o.logger)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}

		storeCfg := sqlstore.Config{
			VectorWeight:  mc.VectorWeight,
			KeywordWeight: mc.KeywordWeight,
			MaxCandidates: mc.MaxCandidates,
		}

		var store *sqlstore.Store
		if mc.Backend == BackendSQLPooled {
			pool, err := database.NewPoolManager(db, poolConfig(cfg.Database), o.logger, poolOptions(cfg.Database.Driver, o.collector)...)
			if err != nil {
				_ = sqlDB.Close()
				return nil, err
			}
			i.onClose(func(context.Context) error { return pool.Close() })
			store = sqlstore.NewPooled(pool, storeCfg, i.embedder, o.logger)
		} else {
			i.onClose(func(context.Context) error { return sqlDB.Close() })
			sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
			sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
			store = sqlstore.New(db, storeCfg, i.embedder, o.logger)
		}

		if cfg.Database.AutoMigrate {
			if err := store.AutoMigrate(ctx); err != nil {
				return nil, err
			}
		}
		return store, nil

	case BackendRedis:
		rc := cfg.Redis
		cacheCfg := cache.DefaultConfig()
		cacheCfg.Addr = rc.Addr
		cacheCfg.Password = rc.Password
		cacheCfg.DB = rc.DB
		cacheCfg.TLSEnabled = rc.TLSEnabled
		if rc.PoolSize > 0 {
			cacheCfg.PoolSize = rc.PoolSize
		}
		if rc.MinIdleConns > 0 {
			cacheCfg.MinIdleConns = rc.MinIdleConns
		}

		manager, err := cache.NewManager(cacheCfg, o.logger)
		if err != nil {
			return nil, err
		}
		i.onClose(func(context.Context) error { return manager.Close() })

		return redisstore.New(manager, redisstore.Config{
			KeyPrefix:     mc.KeyPrefix,
			TTL:           rc.TTL,
			MaxCandidates: mc.MaxCandidates,
		}, o.logger), nil

	case BackendMongo:
		m := cfg.Mongo
		store, err := mongostore.Connect(ctx, mongostore.Config{
			URI:           m.URI,
			Database:      m.Database,
			Collection:    m.Collection,
			Timeout:       m.Timeout,
			MaxCandidates: int64(mc.MaxCandidates),
		}, o.logger)
		if err != nil {
			return nil, err
		}
		i.onClose(store.Close)
		return store, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, mc.Backend)
	}
}

func poolConfig(dc config.DatabaseConfig) database.PoolConfig {
	pc := database.DefaultPoolConfig()
	if dc.MaxOpenConns > 0 {
		pc.MaxOpenConns = dc.MaxOpenConns
	}
	if dc.MaxIdleConns > 0 {
		pc.MaxIdleConns = dc.MaxIdleConns
	}
	if dc.ConnMaxLifetime > 0 {
		pc.ConnMaxLifetime = dc.ConnMaxLifetime
	}
	return pc
}

func poolOptions(driver string, collector *metrics.Collector) []database.PoolOption {
	if collector == nil {
		return nil
	}
	return []database.PoolOption{
		database.WithStatsHook(func(s database.PoolStats) {
			collector.RecordDBConnections(driver, s.OpenConnections, s.Idle)
		}),
	}
}
