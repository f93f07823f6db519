package api

import (
	"github.com/BaSui01/memflow/memory/tiered"
	"github.com/BaSui01/memflow/types"
)

// =============================================================================
// 记忆请求与响应
// =============================================================================

// StoreRequest 写入记忆请求
type StoreRequest struct {
	// 记忆键，按键精确查找与删除
	Key string `json:"key" example:"user_lang"`
	// 记忆内容
	Content string `json:"content" example:"prefers Go"`
	// 分类：core、daily、conversation 或自定义名称，默认 core
	Category string `json:"category,omitempty" example:"core"`
}

// StoreResponse 写入结果
type StoreResponse struct {
	Key string `json:"key"`
}

// ForgetResponse 删除结果
type ForgetResponse struct {
	Key     string `json:"key"`
	Removed bool   `json:"removed"`
}

// ListResponse 列表或检索结果
type ListResponse struct {
	Entries []types.MemoryEntry `json:"entries"`
	Total   int                 `json:"total"`
}

// CountResponse 条目总数
type CountResponse struct {
	Count int `json:"count"`
}

// =============================================================================
// 统计
// =============================================================================

// StatsResponse 分层缓存统计
type StatsResponse struct {
	// 后端名称
	Backend string `json:"backend"`
	// 是否启用分层缓存；为 false 时 Stats 全为零值
	Tiered bool `json:"tiered"`
	// 统计快照
	Stats tiered.Stats `json:"stats"`
	// 命中率（百分比）
	HitRate float64 `json:"hit_rate"`
}

// NewStatsResponse 由统计快照构造响应，命中率在此计算
func NewStatsResponse(backend string, enabled bool, s tiered.Stats) StatsResponse {
	return StatsResponse{
		Backend: backend,
		Tiered:  enabled,
		Stats:   s,
		HitRate: s.HitRate(),
	}
}
