package memory

import (
	"context"

	"github.com/BaSui01/memflow/types"
)

// =============================================================================
// 🧠 记忆存储契约
// =============================================================================

// Memory 记忆存储后端接口
type Memory interface {
	// Name 返回后端名称
	Name() string

	// Store 写入（或按 key 覆盖）一条记忆，ID 与时间戳由实现分配
	Store(ctx context.Context, key, content string, category types.MemoryCategory) error

	// Recall 返回至多 limit 条与 query 相关的记忆，按相关度降序
	Recall(ctx context.Context, query string, limit int) ([]types.MemoryEntry, error)

	// Get 按 key 精确获取，不存在时返回 nil, nil
	Get(ctx context.Context, key string) (*types.MemoryEntry, error)

	// List 列出全部记忆，category 非 nil 时按分类过滤
	List(ctx context.Context, category *types.MemoryCategory) ([]types.MemoryEntry, error)

	// Forget 删除记忆，返回记录是否存在
	Forget(ctx context.Context, key string) (bool, error)

	// Count 返回记忆总数
	Count(ctx context.Context) (int, error)

	// HealthCheck 存活探测
	HealthCheck(ctx context.Context) bool
}
