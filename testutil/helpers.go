// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	ctx := testutil.TestContext(t)
//	testutil.SeedEntries(t, ctx, mem, fixtures.SampleEntries())
//	testutil.AssertKeys(t, []string{"a", "b"}, entries)
//
// =============================================================================
package testutil

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/BaSui01/memflow/memory"
	"github.com/BaSui01/memflow/types"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t testing.TB) context.Context {
	return TestContextWithTimeout(t, 30*time.Second)
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t testing.TB, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 📦 数据辅助
// =============================================================================

// SeedEntries 按顺序写入条目，任一失败即终止测试
func SeedEntries(t testing.TB, ctx context.Context, mem memory.Memory, entries []types.MemoryEntry) {
	t.Helper()
	for _, e := range entries {
		if err := mem.Store(ctx, e.Key, e.Content, e.Category); err != nil {
			t.Fatalf("seed %q: %v", e.Key, err)
		}
	}
}

// Keys 提取条目的 key，保持原顺序
func Keys(entries []types.MemoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

// SortedKeys 提取条目的 key 并排序
func SortedKeys(entries []types.MemoryEntry) []string {
	out := Keys(entries)
	sort.Strings(out)
	return out
}

// MustJSON 序列化为 JSON 字符串，失败时 panic
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// MustParseJSON 解析 JSON 字符串，失败时 panic
func MustParseJSON[T any](s string) T {
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		panic(err)
	}
	return v
}

// =============================================================================
// 🔍 断言辅助
// =============================================================================

// AssertKeys 断言条目 key 集合（忽略顺序）
func AssertKeys(t testing.TB, expected []string, actual []types.MemoryEntry) {
	t.Helper()

	want := append([]string(nil), expected...)
	sort.Strings(want)
	got := SortedKeys(actual)

	if len(want) != len(got) {
		t.Errorf("key count mismatch: expected %v, got %v", want, got)
		return
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("keys mismatch: expected %v, got %v", want, got)
			return
		}
	}
}

// AssertEventuallyTrue 断言条件最终为真
func AssertEventuallyTrue(t testing.TB, condition func() bool, timeout time.Duration) {
	t.Helper()
	if !WaitFor(condition, timeout) {
		t.Errorf("condition did not become true within %v", timeout)
	}
}

// =============================================================================
// ⏳ 等待辅助
// =============================================================================

// WaitFor 轮询等待条件满足
func WaitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}
