package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/BaSui01/memflow"
	"github.com/BaSui01/memflow/api/handlers"
	"github.com/BaSui01/memflow/config"
	"github.com/BaSui01/memflow/internal/metrics"
	"github.com/BaSui01/memflow/internal/server"
	"github.com/BaSui01/memflow/internal/telemetry"
)

// statsSampleInterval 热层大小采样周期
const statsSampleInterval = 10 * time.Second

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 组装记忆实例、HTTP 服务、指标服务与配置热重载
type Server struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	level      zap.AtomicLevel

	instance  *memflow.Instance
	collector *metrics.Collector
	otel      *telemetry.Providers
	gauges    metric.Registration
	reloader  *config.Reloader
	limiter   *IPRateLimiter
	stats     *handlers.StatsHandler

	apiManager     *server.Manager
	metricsManager *server.Manager
}

// NewServer 初始化遥测、记忆实例与 HTTP 处理器；失败时释放已创建的资源
func NewServer(ctx context.Context, cfg *config.Config, configPath string, logger *zap.Logger, level zap.AtomicLevel) (*Server, error) {
	s := &Server{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		level:      level,
	}

	providers, err := telemetry.Init(ctx, cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
	}
	s.otel = providers

	if cfg.Metrics.Enabled {
		s.collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}

	opts := []memflow.Option{
		memflow.WithLogger(logger),
		memflow.WithTracer(s.otel.Tracer("github.com/BaSui01/memflow")),
	}
	if s.collector != nil {
		opts = append(opts, memflow.WithCollector(s.collector))
	}
	inst, err := memflow.Open(ctx, cfg, opts...)
	if err != nil {
		_ = s.otel.Shutdown(ctx)
		return nil, fmt.Errorf("open memory backend: %w", err)
	}
	s.instance = inst

	if c := inst.Cache(); c != nil {
		reg, err := telemetry.RegisterCacheGauges(s.otel.Meter("github.com/BaSui01/memflow"), c.Stats)
		if err != nil {
			logger.Warn("failed to register cache gauges", zap.Error(err))
		} else {
			s.gauges = reg
		}
	}

	s.limiter = NewIPRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	s.apiManager = server.NewManager("api", s.Handler(), s.apiServerConfig(), logger)
	s.apiManager.RegisterOnShutdown(s.stats.Close)
	if cfg.Metrics.Enabled && cfg.Server.MetricsPort > 0 {
		s.metricsManager = server.NewManager("metrics", metricsHandler(), server.Config{
			Addr:            fmt.Sprintf(":%d", cfg.Server.MetricsPort),
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}, logger)
	}

	s.reloader = config.NewReloader(cfg, configPath, config.WithReloadLogger(logger))
	s.reloader.OnReload(s.applyReload)

	return s, nil
}

// =============================================================================
// 🌐 HTTP 路由
// =============================================================================

// Handler 构建带中间件链的 API 处理器
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	health := handlers.NewHealthHandler(s.logger)
	health.RegisterCheck(handlers.NewMemoryHealthCheck(s.instance.Memory()))
	mux.HandleFunc("GET /health", health.HandleHealth)
	mux.HandleFunc("GET /healthz", health.HandleHealth)
	mux.HandleFunc("GET /ready", health.HandleReady)
	mux.HandleFunc("GET /readyz", health.HandleReady)
	mux.HandleFunc("GET /version", health.HandleVersion(Version, BuildTime, GitCommit))

	handlers.NewMemoryHandler(s.instance.Memory(), s.logger).Register(mux)
	if s.stats == nil {
		s.stats = handlers.NewStatsHandler(s.instance.Cache(), s.instance.Backend().Name(), s.logger)
	}
	s.stats.Register(mux)

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(s.otel.Tracer("github.com/BaSui01/memflow/http")),
		RequestLogger(s.logger),
	}
	if s.collector != nil {
		middlewares = append(middlewares, MetricsMiddleware(s.collector))
	}
	middlewares = append(middlewares, s.limiter.Middleware())

	return Chain(mux, middlewares...)
}

func (s *Server) apiServerConfig() server.Config {
	return server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// =============================================================================
// ▶️ 运行与关闭
// =============================================================================

// Run 运行 API 与指标服务器及后台任务，直到 ctx 取消或任一组件失败
func (s *Server) Run(ctx context.Context) error {
	servers := []*server.Manager{s.apiManager}
	if s.metricsManager != nil {
		servers = append(servers, s.metricsManager)
	}

	tasks := []server.Task{s.limiter.Cleanup}
	if s.collector != nil && s.instance.Cache() != nil {
		tasks = append(tasks, s.sampleCacheStats)
	}
	if s.configPath != "" {
		if err := s.reloader.Start(ctx); err != nil {
			s.logger.Warn("config hot reload disabled", zap.Error(err))
		} else {
			s.logger.Info("config hot reload enabled", zap.String("path", s.configPath))
		}
	}

	err := server.Run(ctx, servers, tasks...)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close 停止热重载并释放记忆后端与遥测
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	if err := s.reloader.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop reloader: %w", err))
	}
	if s.gauges != nil {
		if err := s.gauges.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("unregister gauges: %w", err))
		}
	}
	if err := s.instance.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close memory: %w", err))
	}
	if err := s.otel.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
	}
	return errors.Join(errs...)
}

// sampleCacheStats 周期性导出热层大小
func (s *Server) sampleCacheStats(ctx context.Context) error {
	c := s.instance.Cache()
	backend := s.instance.Backend().Name()

	ticker := time.NewTicker(statsSampleInterval)
	defer ticker.Stop()
	for {
		s.collector.RecordHotSize(backend, c.Stats().HotSize)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// applyReload 应用可热更新的字段
func (s *Server) applyReload(oldCfg, newCfg *config.Config) {
	if oldCfg.Log.Level != newCfg.Log.Level {
		s.level.SetLevel(parseLevel(newCfg.Log.Level))
		s.logger.Info("log level updated", zap.String("level", newCfg.Log.Level))
	}
	if oldCfg.Server.RateLimitRPS != newCfg.Server.RateLimitRPS ||
		oldCfg.Server.RateLimitBurst != newCfg.Server.RateLimitBurst {
		s.limiter.SetLimit(newCfg.Server.RateLimitRPS, newCfg.Server.RateLimitBurst)
	}
}
