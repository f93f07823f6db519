package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/memflow/embedding"
	"github.com/BaSui01/memflow/memory"
	"github.com/BaSui01/memflow/memory/tiered"
	"github.com/BaSui01/memflow/types"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 记忆操作指标
	memoryOpsTotal  *prometheus.CounterVec
	memoryOpLatency *prometheus.HistogramVec

	// 分层缓存指标
	cacheHits          *prometheus.CounterVec
	cacheAccessLatency *prometheus.HistogramVec
	cacheMisses        *prometheus.CounterVec
	cacheEvictions     *prometheus.CounterVec
	cachePromotions    *prometheus.CounterVec
	cacheHotSize       *prometheus.GaugeVec

	// Embedding 指标
	embeddingRequests *prometheus.CounterVec
	embeddingLatency  *prometheus.HistogramVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 7),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 7),
		},
		[]string{"method", "path"},
	)

	// 记忆操作指标
	c.memoryOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_operations_total",
			Help:      "Total number of memory backend operations",
		},
		[]string{"backend", "operation", "status"},
	)

	c.memoryOpLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "memory_operation_duration_seconds",
			Help:      "Memory backend operation duration in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"backend", "operation"},
	)

	// 分层缓存指标
	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of tiered cache hits",
		},
		[]string{"backend", "tier"},
	)

	c.cacheAccessLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_access_duration_seconds",
			Help:      "Tiered cache hit latency in seconds",
			Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
		},
		[]string{"backend", "tier"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of tiered cache misses",
		},
		[]string{"backend"},
	)

	c.cacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Total number of hot tier evictions",
		},
		[]string{"backend"},
	)

	c.cachePromotions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_promotions_total",
			Help:      "Total number of hot tier promotions",
		},
		[]string{"backend"},
	)

	c.cacheHotSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_hot_entries",
			Help:      "Number of entries currently in the hot tier",
		},
		[]string{"backend"},
	)

	// Embedding 指标
	c.embeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "status"},
	)

	c.embeddingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// 数据库指标
	c.dbConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🧠 记忆操作指标记录
// =============================================================================

// RecordMemoryOperation 记录一次后端操作
func (c *Collector) RecordMemoryOperation(backend, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.memoryOpsTotal.WithLabelValues(backend, operation, status).Inc()
	c.memoryOpLatency.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordHotSize 记录热层当前条目数
func (c *Collector) RecordHotSize(backend string, size int) {
	c.cacheHotSize.WithLabelValues(backend).Set(float64(size))
}

// CacheObserver 返回绑定到 backend 标签的分层缓存观察者
func (c *Collector) CacheObserver(backend string) tiered.Observer {
	return &cacheObserver{c: c, backend: backend}
}

type cacheObserver struct {
	c       *Collector
	backend string
}

func (o *cacheObserver) RecordHit(tier tiered.CacheTier, elapsed time.Duration) {
	o.c.cacheHits.WithLabelValues(o.backend, tier.String()).Inc()
	o.c.cacheAccessLatency.WithLabelValues(o.backend, tier.String()).Observe(elapsed.Seconds())
}

func (o *cacheObserver) RecordMiss() {
	o.c.cacheMisses.WithLabelValues(o.backend).Inc()
}

func (o *cacheObserver) RecordEviction() {
	o.c.cacheEvictions.WithLabelValues(o.backend).Inc()
}

func (o *cacheObserver) RecordPromotion() {
	o.c.cachePromotions.WithLabelValues(o.backend).Inc()
}

func (o *cacheObserver) ObserveBackend(op string, elapsed time.Duration, err error) {
	o.c.RecordMemoryOperation(o.backend, op, elapsed, err)
}

// InstrumentMemory 包装未经分层缓存的后端，记录每次操作的耗时与结果
func (c *Collector) InstrumentMemory(m memory.Memory) memory.Memory {
	return &instrumentedMemory{Memory: m, c: c}
}

type instrumentedMemory struct {
	memory.Memory
	c *Collector
}

func (m *instrumentedMemory) observe(op string, start time.Time, err error) {
	m.c.RecordMemoryOperation(m.Memory.Name(), op, time.Since(start), err)
}

func (m *instrumentedMemory) Store(ctx context.Context, key, content string, category types.MemoryCategory) error {
	start := time.Now()
	err := m.Memory.Store(ctx, key, content, category)
	m.observe("store", start, err)
	return err
}

func (m *instrumentedMemory) Recall(ctx context.Context, query string, limit int) ([]types.MemoryEntry, error) {
	start := time.Now()
	out, err := m.Memory.Recall(ctx, query, limit)
	m.observe("recall", start, err)
	return out, err
}

func (m *instrumentedMemory) Get(ctx context.Context, key string) (*types.MemoryEntry, error) {
	start := time.Now()
	out, err := m.Memory.Get(ctx, key)
	m.observe("get", start, err)
	return out, err
}

func (m *instrumentedMemory) List(ctx context.Context, category *types.MemoryCategory) ([]types.MemoryEntry, error) {
	start := time.Now()
	out, err := m.Memory.List(ctx, category)
	m.observe("list", start, err)
	return out, err
}

func (m *instrumentedMemory) Forget(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	out, err := m.Memory.Forget(ctx, key)
	m.observe("forget", start, err)
	return out, err
}

func (m *instrumentedMemory) Count(ctx context.Context) (int, error) {
	start := time.Now()
	out, err := m.Memory.Count(ctx)
	m.observe("count", start, err)
	return out, err
}

// =============================================================================
// 🔢 Embedding 指标记录
// =============================================================================

// RecordEmbedding 记录 embedding 请求
func (c *Collector) RecordEmbedding(provider string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.embeddingRequests.WithLabelValues(provider, status).Inc()
	c.embeddingLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// InstrumentProvider 包装 embedding 提供者，记录每次请求
func (c *Collector) InstrumentProvider(p embedding.Provider) embedding.Provider {
	return &instrumentedProvider{Provider: p, c: c}
}

type instrumentedProvider struct {
	embedding.Provider
	c *Collector
}

func (p *instrumentedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	out, err := p.Provider.Embed(ctx, texts)
	p.c.RecordEmbedding(p.Provider.Name(), time.Since(start), err)
	return out, err
}

// =============================================================================
// 🗄️ 数据库指标记录
// =============================================================================

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
