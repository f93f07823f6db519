// =============================================================================
// 🧠 MockMemory - 记忆后端模拟实现
// =============================================================================
// 用于测试的 memory.Memory 模拟，支持错误注入、调用计数与预设检索结果
//
// 使用方法:
//
//	mem := mocks.NewMockMemory().WithGetError(errors.New("boom"))
//	_ = mem.Store(ctx, "k", "v", types.CategoryCore)
//	calls := mem.Calls("store")
//
// =============================================================================
package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/memflow/types"
)

// =============================================================================
// 🎯 MockMemory 结构
// =============================================================================

// MockMemory 是 memory.Memory 的模拟实现
type MockMemory struct {
	mu sync.RWMutex

	// 数据
	entries map[string]types.MemoryEntry
	order   []string

	// 错误注入
	storeErr  error
	recallErr error
	getErr    error
	listErr   error
	forgetErr error
	countErr  error
	healthy   bool

	// 调用记录
	calls           map[string]int
	lastRecallLimit int

	// 预设检索结果
	recallResults []types.MemoryEntry
	hasRecallPre  bool

	// 模拟延迟
	delay time.Duration
}

// =============================================================================
// 🔧 构造函数和 Builder 方法
// =============================================================================

// NewMockMemory 创建新的 MockMemory
func NewMockMemory() *MockMemory {
	return &MockMemory{
		entries: make(map[string]types.MemoryEntry),
		healthy: true,
		calls:   make(map[string]int),
	}
}

// WithStoreError 设置 Store 方法的错误
func (m *MockMemory) WithStoreError(err error) *MockMemory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeErr = err
	return m
}

// WithRecallError 设置 Recall 方法的错误
func (m *MockMemory) WithRecallError(err error) *MockMemory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recallErr = err
	return m
}

// WithGetError 设置 Get 方法的错误
func (m *MockMemory) WithGetError(err error) *MockMemory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
	return m
}

// WithListError 设置 List 方法的错误
func (m *MockMemory) WithListError(err error) *MockMemory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
	return m
}

// WithForgetError 设置 Forget 方法的错误
func (m *MockMemory) WithForgetError(err error) *MockMemory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forgetErr = err
	return m
}

// WithCountError 设置 Count 方法的错误
func (m *MockMemory) WithCountError(err error) *MockMemory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countErr = err
	return m
}

// WithHealthy 设置健康检查结果
func (m *MockMemory) WithHealthy(healthy bool) *MockMemory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
	return m
}

// WithRecallResults 预设 Recall 返回的结果（忽略 query）
func (m *MockMemory) WithRecallResults(results []types.MemoryEntry) *MockMemory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recallResults = append([]types.MemoryEntry{}, results...)
	m.hasRecallPre = true
	return m
}

// WithDelay 为每次调用注入延迟
func (m *MockMemory) WithDelay(d time.Duration) *MockMemory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// =============================================================================
// 🎯 Memory 接口实现
// =============================================================================

// Name 返回后端名称
func (m *MockMemory) Name() string { return "mock" }

// Store 写入记忆（按 key 覆盖）
func (m *MockMemory) Store(ctx context.Context, key, content string, category types.MemoryCategory) error {
	m.enter("store")

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.storeErr != nil {
		return m.storeErr
	}

	if _, ok := m.entries[key]; !ok {
		m.order = append(m.order, key)
	}
	m.entries[key] = types.MemoryEntry{
		ID:        uuid.NewString(),
		Key:       key,
		Content:   content,
		Category:  category,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	return nil
}

// Recall 子串检索（或返回预设结果）
func (m *MockMemory) Recall(ctx context.Context, query string, limit int) ([]types.MemoryEntry, error) {
	m.enter("recall")

	m.mu.Lock()
	m.lastRecallLimit = limit
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.recallErr != nil {
		return nil, m.recallErr
	}

	var source []types.MemoryEntry
	if m.hasRecallPre {
		source = m.recallResults
	} else {
		for _, key := range m.order {
			e := m.entries[key]
			if strings.Contains(e.Content, query) || strings.Contains(e.Key, query) {
				source = append(source, e.WithScore(1.0))
			}
		}
	}

	if limit <= 0 {
		return []types.MemoryEntry{}, nil
	}
	if limit > len(source) {
		limit = len(source)
	}
	return append([]types.MemoryEntry{}, source[:limit]...), nil
}

// Get 按 key 获取
func (m *MockMemory) Get(ctx context.Context, key string) (*types.MemoryEntry, error) {
	m.enter("get")

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}

	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// List 列出记忆
func (m *MockMemory) List(ctx context.Context, category *types.MemoryCategory) ([]types.MemoryEntry, error) {
	m.enter("list")

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.listErr != nil {
		return nil, m.listErr
	}

	out := make([]types.MemoryEntry, 0, len(m.entries))
	for _, key := range m.order {
		e := m.entries[key]
		if category == nil || e.Category == *category {
			out = append(out, e)
		}
	}
	return out, nil
}

// Forget 删除记忆
func (m *MockMemory) Forget(ctx context.Context, key string) (bool, error) {
	m.enter("forget")

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.forgetErr != nil {
		return false, m.forgetErr
	}

	if _, ok := m.entries[key]; !ok {
		return false, nil
	}
	delete(m.entries, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Count 返回记忆数量
func (m *MockMemory) Count(ctx context.Context) (int, error) {
	m.enter("count")

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.entries), nil
}

// HealthCheck 健康检查
func (m *MockMemory) HealthCheck(ctx context.Context) bool {
	m.enter("health_check")

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

// =============================================================================
// 🔍 查询方法
// =============================================================================

// Calls 获取某个操作的调用次数
func (m *MockMemory) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// CallNames 返回被调用过的操作名（有序）
func (m *MockMemory) CallNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.calls))
	for k := range m.calls {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// LastRecallLimit 最近一次 Recall 收到的 limit
func (m *MockMemory) LastRecallLimit() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRecallLimit
}

// Reset 重置调用记录
func (m *MockMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
	m.lastRecallLimit = 0
}

func (m *MockMemory) enter(op string) {
	m.mu.Lock()
	m.calls[op]++
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
}

// =============================================================================
// 🎭 预设 Memory 工厂
// =============================================================================

// NewErrorMemory 创建所有 I/O 操作都返回错误的记忆后端
func NewErrorMemory(err error) *MockMemory {
	return NewMockMemory().
		WithStoreError(err).
		WithRecallError(err).
		WithGetError(err).
		WithListError(err).
		WithForgetError(err).
		WithCountError(err).
		WithHealthy(false)
}
