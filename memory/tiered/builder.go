package tiered

import (
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/memflow/memory"
)

// Builder 链式构建 Cache
//
//	cache := tiered.NewBuilder(backend).
//	    HotCacheSize(1000).
//	    HotTTL(time.Minute).
//	    Build()
type Builder struct {
	backend memory.Memory
	config  Config
	opts    []Option
}

// NewBuilder 以默认配置开始构建
func NewBuilder(backend memory.Memory) *Builder {
	return &Builder{
		backend: backend,
		config:  DefaultConfig(),
	}
}

// HotCacheSize 设置热层容量
func (b *Builder) HotCacheSize(size int) *Builder {
	b.config.HotCacheSize = size
	return b
}

// WarmCacheSize 设置温层容量（仅供参考）
func (b *Builder) WarmCacheSize(size int) *Builder {
	b.config.WarmCacheSize = size
	return b
}

// HotTTL 设置热层 TTL
func (b *Builder) HotTTL(ttl time.Duration) *Builder {
	b.config.HotTTL = ttl
	return b
}

// WarmTTL 设置温层 TTL
func (b *Builder) WarmTTL(ttl time.Duration) *Builder {
	b.config.WarmTTL = ttl
	return b
}

// EnablePromotion 开关晋升
func (b *Builder) EnablePromotion(enable bool) *Builder {
	b.config.EnablePromotion = enable
	return b
}

// PromotionThreshold 设置晋升阈值
func (b *Builder) PromotionThreshold(n uint64) *Builder {
	b.config.PromotionThreshold = n
	return b
}

// EnableLRU 开关 LRU 淘汰
func (b *Builder) EnableLRU(enable bool) *Builder {
	b.config.EnableLRU = enable
	return b
}

// WithLogger 设置日志记录器
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.opts = append(b.opts, WithLogger(logger))
	return b
}

// WithObserver 设置观察者
func (b *Builder) WithObserver(o Observer) *Builder {
	b.opts = append(b.opts, WithObserver(o))
	return b
}

// Build 创建 Cache
func (b *Builder) Build() *Cache {
	return New(b.backend, b.config, b.opts...)
}
