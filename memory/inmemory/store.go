// Package inmemory 提供基于进程内 map 的 memory.Memory 实现，
// 用于本地开发、测试以及分层缓存的参考后端。
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/memflow/types"
)

// Config 内存后端配置
type Config struct {
	// MaxEntries 条目上限，超出时淘汰最早写入的条目。0 表示不限。
	MaxEntries int

	// Now 用于测试，默认 time.Now
	Now func() time.Time
}

type storedEntry struct {
	entry     types.MemoryEntry
	createdAt time.Time
	seq       uint64
}

// Store 内存记忆后端
type Store struct {
	mu      sync.RWMutex
	entries map[string]storedEntry
	seq     uint64

	maxEntries int
	now        func() time.Time
	logger     *zap.Logger
}

// New 创建内存后端
func New(config Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		entries:    make(map[string]storedEntry),
		maxEntries: config.MaxEntries,
		now:        now,
		logger:     logger.With(zap.String("component", "memory_store_inmemory")),
	}
}

// Name 返回 "memory"
func (s *Store) Name() string { return "memory" }

// Store 写入记忆，同 key 覆盖内容但保留 ID
func (s *Store) Store(ctx context.Context, key, content string, category types.MemoryCategory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := uuid.NewString()
	if prev, ok := s.entries[key]; ok {
		id = prev.entry.ID
	}

	s.seq++
	s.entries[key] = storedEntry{
		entry: types.MemoryEntry{
			ID:        id,
			Key:       key,
			Content:   content,
			Category:  category,
			Timestamp: now.Format(time.RFC3339),
		},
		createdAt: now,
		seq:       s.seq,
	}

	s.evictIfNeededLocked()
	return nil
}

// Recall 关键词检索：分数为查询词命中比例（不区分大小写）
func (s *Store) Recall(ctx context.Context, query string, limit int) ([]types.MemoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query))
	if limit <= 0 || len(terms) == 0 {
		return []types.MemoryEntry{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		stored storedEntry
		score  float64
	}
	matches := make([]scored, 0)
	for _, st := range s.entries {
		score := keywordScore(terms, st.entry)
		if score > 0 {
			matches = append(matches, scored{stored: st, score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].stored.seq > matches[j].stored.seq
	})

	if limit > len(matches) {
		limit = len(matches)
	}
	out := make([]types.MemoryEntry, 0, limit)
	for _, m := range matches[:limit] {
		out = append(out, m.stored.entry.WithScore(m.score))
	}
	return out, nil
}

// Get 按 key 获取
func (s *Store) Get(ctx context.Context, key string) (*types.MemoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	entry := st.entry
	return &entry, nil
}

// List 按写入顺序列出记忆
func (s *Store) List(ctx context.Context, category *types.MemoryCategory) ([]types.MemoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]storedEntry, 0, len(s.entries))
	for _, st := range s.entries {
		if category == nil || st.entry.Category == *category {
			items = append(items, st)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].seq < items[j].seq })

	out := make([]types.MemoryEntry, 0, len(items))
	for _, st := range items {
		out = append(out, st.entry)
	}
	return out, nil
}

// Forget 删除记忆
func (s *Store) Forget(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

// Count 返回条目数
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// HealthCheck 内存后端总是健康
func (s *Store) HealthCheck(ctx context.Context) bool {
	return ctx.Err() == nil
}

// Clear 清空全部条目
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := len(s.entries)
	s.entries = make(map[string]storedEntry)
	s.logger.Info("memory store cleared", zap.Int("cleared", cleared))
	return nil
}

func (s *Store) evictIfNeededLocked() {
	if s.maxEntries <= 0 || len(s.entries) <= s.maxEntries {
		return
	}

	all := make([]storedEntry, 0, len(s.entries))
	for _, st := range s.entries {
		all = append(all, st)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	toEvict := len(all) - s.maxEntries
	for i := 0; i < toEvict; i++ {
		delete(s.entries, all[i].entry.Key)
	}
	s.logger.Debug("evicted oldest entries", zap.Int("evicted", toEvict))
}

// keywordScore 查询词在 content/key 中的命中比例
func keywordScore(terms []string, entry types.MemoryEntry) float64 {
	haystack := strings.ToLower(entry.Content + " " + entry.Key)
	hits := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
