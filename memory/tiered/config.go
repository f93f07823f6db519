package tiered

import "time"

// =============================================================================
// ⚙️ 缓存配置
// =============================================================================

// Config 分层缓存配置，构造后不可变
type Config struct {
	// 热层最大条目数
	HotCacheSize int `yaml:"hot_cache_size" json:"hot_cache_size"`

	// 温层最大条目数（仅供参考，由后端自行决定是否执行）
	WarmCacheSize int `yaml:"warm_cache_size" json:"warm_cache_size"`

	// 热层 TTL（声明值，当前不执行过期）
	HotTTL time.Duration `yaml:"hot_ttl" json:"hot_ttl"`

	// 温层 TTL（声明值，当前不执行过期）
	WarmTTL time.Duration `yaml:"warm_ttl" json:"warm_ttl"`

	// 是否启用晋升
	EnablePromotion bool `yaml:"enable_promotion" json:"enable_promotion"`

	// 晋升访问次数阈值（声明值，当前不参与晋升判断）
	PromotionThreshold uint64 `yaml:"promotion_threshold" json:"promotion_threshold"`

	// 是否启用 LRU 淘汰；关闭后热层满时跳过晋升
	EnableLRU bool `yaml:"enable_lru" json:"enable_lru"`
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		HotCacheSize:       10000,
		WarmCacheSize:      100000,
		HotTTL:             300 * time.Second,
		WarmTTL:            3600 * time.Second,
		EnablePromotion:    true,
		PromotionThreshold: 5,
		EnableLRU:          true,
	}
}

// =============================================================================
// 🏷️ 缓存层级
// =============================================================================

// CacheTier 命中层级
type CacheTier int

const (
	// TierHot 进程内热层
	TierHot CacheTier = iota
	// TierWarm 被包装的后端
	TierWarm
	// TierCold 冷层（预留）
	TierCold
)

// String 返回层级名称
func (t CacheTier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierWarm:
		return "warm"
	case TierCold:
		return "cold"
	default:
		return "unknown"
	}
}
