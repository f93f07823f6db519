// =============================================================================
// 📦 测试数据工厂 - 记忆条目
// =============================================================================
package fixtures

import (
	"fmt"

	"github.com/BaSui01/memflow/types"
)

// SampleEntries 覆盖三个内置分类与一个自定义分类的样例条目
func SampleEntries() []types.MemoryEntry {
	return []types.MemoryEntry{
		types.NewMemoryEntry("user-lang", "User prefers Go for backend services", types.CategoryCore),
		types.NewMemoryEntry("user-editor", "User edits with Neovim", types.CategoryCore),
		types.NewMemoryEntry("standup-0312", "Discussed cache eviction metrics", types.CategoryDaily),
		types.NewMemoryEntry("chat-42", "Asked how to tune the Redis pool", types.CategoryConversation),
		types.NewMemoryEntry("proj-atlas", "Atlas migrates to Postgres next quarter", types.CustomCategory("project")),
	}
}

// NumberedEntries 生成 n 个 key 为 prefix-i 的条目
func NumberedEntries(prefix string, n int, category types.MemoryCategory) []types.MemoryEntry {
	out := make([]types.MemoryEntry, n)
	for i := range n {
		out[i] = types.NewMemoryEntry(
			fmt.Sprintf("%s-%d", prefix, i),
			fmt.Sprintf("content for %s number %d", prefix, i),
			category,
		)
	}
	return out
}
