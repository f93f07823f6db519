// Package redisstore 提供基于 Redis 的 memory.Memory 实现。
//
// 键布局（prefix 默认为 "memflow"）：
//
//	<prefix>:entry:<key>     条目 JSON
//	<prefix>:keys            全部 key 的有序集合，分数为首次写入时间（纳秒）
//	<prefix>:cat:<category>  分类下的 key 集合
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/memflow/internal/cache"
	"github.com/BaSui01/memflow/types"
)

// maxWriteAttempts 同 key 写冲突时的最大尝试次数
const maxWriteAttempts = 64

// Config Redis 后端配置
type Config struct {
	// KeyPrefix 键前缀
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`

	// TTL 条目过期时间，0 表示不过期
	TTL time.Duration `yaml:"ttl" json:"ttl"`

	// MaxCandidates 单次检索最多扫描的条目数（最近写入优先）
	MaxCandidates int `yaml:"max_candidates" json:"max_candidates"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		KeyPrefix:     "memflow",
		MaxCandidates: 1000,
	}
}

// Store Redis 记忆后端
type Store struct {
	cache  *cache.Manager
	config Config
	logger *zap.Logger
	now    func() time.Time
}

// New 基于已连接的 cache.Manager 创建后端
func New(manager *cache.Manager, config Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultConfig().KeyPrefix
	}
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = DefaultConfig().MaxCandidates
	}
	return &Store{
		cache:  manager,
		config: config,
		logger: logger.With(zap.String("component", "memory_store_redis")),
		now:    time.Now,
	}
}

// Name 返回 "redis"
func (s *Store) Name() string { return "redis" }

func (s *Store) entryKey(key string) string {
	return s.config.KeyPrefix + ":entry:" + key
}

func (s *Store) indexKey() string {
	return s.config.KeyPrefix + ":keys"
}

func (s *Store) categoryKey(c types.MemoryCategory) string {
	return s.config.KeyPrefix + ":cat:" + c.String()
}

// Store 写入记忆；同 key 覆盖时保留 ID 与首次写入顺序。
// 读取旧条目与写入在同一乐观事务内，同 key 的并发写入逐个生效。
func (s *Store) Store(ctx context.Context, key, content string, category types.MemoryCategory) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	entryKey := s.entryKey(key)
	err := s.cache.Watch(ctx, func(tx *redis.Tx) error {
		prev, err := loadTx(ctx, tx, entryKey)
		if err != nil {
			return err
		}

		now := s.now()
		entry := types.MemoryEntry{
			ID:        uuid.NewString(),
			Key:       key,
			Content:   content,
			Category:  category,
			Timestamp: now.UTC().Format(time.RFC3339),
		}
		if prev != nil {
			entry.ID = prev.ID
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal memory entry: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, entryKey, data, s.config.TTL)
			pipe.ZAddNX(ctx, s.indexKey(), redis.Z{Score: float64(now.UnixNano()), Member: key})
			if prev != nil && prev.Category != category {
				pipe.SRem(ctx, s.categoryKey(prev.Category), key)
			}
			pipe.SAdd(ctx, s.categoryKey(category), key)
			return nil
		})
		return err
	}, maxWriteAttempts, entryKey)
	if err != nil {
		return fmt.Errorf("store memory %q: %w", key, err)
	}
	return nil
}

// Recall 关键词检索：扫描最近写入的候选，按查询词命中比例打分
func (s *Store) Recall(ctx context.Context, query string, limit int) ([]types.MemoryEntry, error) {
	terms := strings.Fields(strings.ToLower(query))
	if limit <= 0 || len(terms) == 0 {
		return []types.MemoryEntry{}, nil
	}

	keys, err := s.cache.ZRange(ctx, s.indexKey(), 0, int64(s.config.MaxCandidates-1), true)
	if err != nil {
		return nil, fmt.Errorf("recall memories: %w", err)
	}
	entries, err := s.loadMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("recall memories: %w", err)
	}

	type scored struct {
		entry types.MemoryEntry
		score float64
	}
	matches := make([]scored, 0, len(entries))
	for _, e := range entries {
		if score := keywordScore(terms, e); score > 0 {
			matches = append(matches, scored{entry: e, score: score})
		}
	}
	// 候选已按最近写入排序，稳定排序保留该顺序作为次序
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if limit > len(matches) {
		limit = len(matches)
	}
	out := make([]types.MemoryEntry, 0, limit)
	for _, m := range matches[:limit] {
		out = append(out, m.entry.WithScore(m.score))
	}
	return out, nil
}

// Get 按 key 获取
func (s *Store) Get(ctx context.Context, key string) (*types.MemoryEntry, error) {
	entry, err := s.load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get memory %q: %w", key, err)
	}
	return entry, nil
}

// List 按首次写入顺序列出
func (s *Store) List(ctx context.Context, category *types.MemoryCategory) ([]types.MemoryEntry, error) {
	keys, err := s.cache.ZRange(ctx, s.indexKey(), 0, -1, false)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}

	if category != nil {
		members, err := s.cache.SMembers(ctx, s.categoryKey(*category))
		if err != nil {
			return nil, fmt.Errorf("list memories: %w", err)
		}
		inCategory := make(map[string]struct{}, len(members))
		for _, m := range members {
			inCategory[m] = struct{}{}
		}
		filtered := keys[:0]
		for _, k := range keys {
			if _, ok := inCategory[k]; ok {
				filtered = append(filtered, k)
			}
		}
		keys = filtered
	}

	entries, err := s.loadMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	return entries, nil
}

// Forget 删除条目及其索引，与同 key 的写入互斥
func (s *Store) Forget(ctx context.Context, key string) (bool, error) {
	entryKey := s.entryKey(key)
	var removed bool
	err := s.cache.Watch(ctx, func(tx *redis.Tx) error {
		prev, err := loadTx(ctx, tx, entryKey)
		if err != nil {
			return err
		}

		var del *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			del = pipe.Del(ctx, entryKey)
			pipe.ZRem(ctx, s.indexKey(), key)
			if prev != nil {
				pipe.SRem(ctx, s.categoryKey(prev.Category), key)
			}
			return nil
		})
		if err != nil {
			return err
		}
		removed = del.Val() > 0
		return nil
	}, maxWriteAttempts, entryKey)
	if err != nil {
		return false, fmt.Errorf("forget memory %q: %w", key, err)
	}
	return removed, nil
}

// Count 返回索引中的 key 数量；设置了 TTL 时可能包含尚未清理的过期 key
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.cache.ZCard(ctx, s.indexKey())
	if err != nil {
		return 0, fmt.Errorf("count memories: %w", err)
	}
	return int(n), nil
}

// HealthCheck ping Redis
func (s *Store) HealthCheck(ctx context.Context) bool {
	if err := s.cache.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		return false
	}
	return true
}

// =============================================================================
// 🔧 内部方法
// =============================================================================

func (s *Store) load(ctx context.Context, key string) (*types.MemoryEntry, error) {
	var entry types.MemoryEntry
	err := s.cache.GetJSON(ctx, s.entryKey(key), &entry)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// loadTx 在乐观事务内读取条目，同时建立对该 key 的监视
func loadTx(ctx context.Context, tx *redis.Tx, entryKey string) (*types.MemoryEntry, error) {
	data, err := tx.Get(ctx, entryKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry types.MemoryEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("decode memory entry: %w", err)
	}
	return &entry, nil
}

// loadMany 批量读取，保持 keys 顺序；已过期的 key 从索引中清理
func (s *Store) loadMany(ctx context.Context, keys []string) ([]types.MemoryEntry, error) {
	if len(keys) == 0 {
		return []types.MemoryEntry{}, nil
	}

	entryKeys := make([]string, len(keys))
	for i, k := range keys {
		entryKeys[i] = s.entryKey(k)
	}
	vals, found, err := s.cache.MGet(ctx, entryKeys...)
	if err != nil {
		return nil, err
	}

	out := make([]types.MemoryEntry, 0, len(keys))
	var stale []string
	for i, v := range vals {
		if !found[i] {
			stale = append(stale, keys[i])
			continue
		}
		var e types.MemoryEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			s.logger.Warn("skipping corrupt entry", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		out = append(out, e)
	}

	if len(stale) > 0 {
		if err := s.cache.ZRem(ctx, s.indexKey(), stale...); err != nil {
			s.logger.Warn("failed to prune expired keys", zap.Int("count", len(stale)), zap.Error(err))
		}
	}
	return out, nil
}

// keywordScore 查询词在 content/key 中的命中比例
func keywordScore(terms []string, e types.MemoryEntry) float64 {
	haystack := strings.ToLower(e.Content + " " + e.Key)
	hits := 0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
