package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/memflow/memory"
	"github.com/BaSui01/memflow/testutil/fixtures"
	"github.com/BaSui01/memflow/types"
)

// =============================================================================
// 📐 Memory 接口一致性测试
// =============================================================================

// RunMemoryConformance 对任意后端运行 Memory 接口的公共约定。
// newMemory 每个子测试调用一次，须返回空的独立实例。
func RunMemoryConformance(t *testing.T, newMemory func(t *testing.T) memory.Memory) {
	t.Helper()

	t.Run("name and health", func(t *testing.T) {
		mem := newMemory(t)
		assert.NotEmpty(t, mem.Name())
		assert.True(t, mem.HealthCheck(TestContext(t)))
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		mem := newMemory(t)
		entry, err := mem.Get(TestContext(t), "absent")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("store then get", func(t *testing.T) {
		ctx := TestContext(t)
		mem := newMemory(t)
		SeedEntries(t, ctx, mem, fixtures.SampleEntries())

		for _, want := range fixtures.SampleEntries() {
			got, err := mem.Get(ctx, want.Key)
			require.NoError(t, err)
			require.NotNil(t, got, want.Key)
			assert.Equal(t, want.Content, got.Content)
			assert.Equal(t, want.Category, got.Category)
		}
	})

	t.Run("overwrite keeps single entry", func(t *testing.T) {
		ctx := TestContext(t)
		mem := newMemory(t)
		require.NoError(t, mem.Store(ctx, "k", "first", types.CategoryCore))
		require.NoError(t, mem.Store(ctx, "k", "second", types.CategoryDaily))

		n, err := mem.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := mem.Get(ctx, "k")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "second", got.Content)
		assert.Equal(t, types.CategoryDaily, got.Category)
	})

	t.Run("list filters by category", func(t *testing.T) {
		ctx := TestContext(t)
		mem := newMemory(t)
		SeedEntries(t, ctx, mem, fixtures.SampleEntries())

		all, err := mem.List(ctx, nil)
		require.NoError(t, err)
		AssertKeys(t, Keys(fixtures.SampleEntries()), all)

		core := types.CategoryCore
		onlyCore, err := mem.List(ctx, &core)
		require.NoError(t, err)
		AssertKeys(t, []string{"user-lang", "user-editor"}, onlyCore)

		project := types.CustomCategory("project")
		custom, err := mem.List(ctx, &project)
		require.NoError(t, err)
		AssertKeys(t, []string{"proj-atlas"}, custom)
	})

	t.Run("forget reports removal", func(t *testing.T) {
		ctx := TestContext(t)
		mem := newMemory(t)
		SeedEntries(t, ctx, mem, fixtures.SampleEntries())

		removed, err := mem.Forget(ctx, "chat-42")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = mem.Forget(ctx, "chat-42")
		require.NoError(t, err)
		assert.False(t, removed)

		got, err := mem.Get(ctx, "chat-42")
		require.NoError(t, err)
		assert.Nil(t, got)

		n, err := mem.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(fixtures.SampleEntries())-1, n)
	})

	t.Run("recall respects limit", func(t *testing.T) {
		ctx := TestContext(t)
		mem := newMemory(t)
		SeedEntries(t, ctx, mem, fixtures.SampleEntries())

		none, err := mem.Recall(ctx, "Neovim", 0)
		require.NoError(t, err)
		assert.Empty(t, none)

		hits, err := mem.Recall(ctx, "Neovim", 10)
		require.NoError(t, err)
		assert.Contains(t, Keys(hits), "user-editor")

		many := fixtures.NumberedEntries("note", 6, types.CategoryDaily)
		SeedEntries(t, ctx, mem, many)
		limited, err := mem.Recall(ctx, "note", 3)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(limited), 3)
		assert.NotEmpty(t, limited)
	})
}
