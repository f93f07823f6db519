// Package sqlstore 提供基于 GORM 的 memory.Memory 实现，支持 postgres、
// mysql 与 sqlite，检索为关键词与向量相似度的混合打分。
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/memflow/embedding"
	"github.com/BaSui01/memflow/types"
)

// Config SQL 后端配置
type Config struct {
	// VectorWeight 向量相似度权重
	VectorWeight float64 `yaml:"vector_weight" json:"vector_weight"`

	// KeywordWeight 关键词权重
	KeywordWeight float64 `yaml:"keyword_weight" json:"keyword_weight"`

	// MaxCandidates 单次检索最多载入的候选行
	MaxCandidates int `yaml:"max_candidates" json:"max_candidates"`

	// SessionID 写入时附带的会话标识
	SessionID string `yaml:"session_id" json:"session_id"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
		MaxCandidates: 1000,
	}
}

// Store SQL 记忆后端
type Store struct {
	db       *gorm.DB
	config   Config
	embedder embedding.Provider
	logger   *zap.Logger
	name     string

	// write 执行写操作；池化版本替换为带重试的事务
	write func(ctx context.Context, fn func(tx *gorm.DB) error) error
	ping  func(ctx context.Context) error
}

// New 创建 SQL 后端；embedder 为 nil 时使用 NoopProvider
func New(db *gorm.DB, config Config, embedder embedding.Provider, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if embedder == nil {
		embedder = embedding.NoopProvider{}
	}
	defaults := DefaultConfig()
	if config.VectorWeight == 0 && config.KeywordWeight == 0 {
		config.VectorWeight, config.KeywordWeight = defaults.VectorWeight, defaults.KeywordWeight
	}
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = defaults.MaxCandidates
	}

	s := &Store{
		db:       db,
		config:   config,
		embedder: embedder,
		logger:   logger.With(zap.String("component", "memory_store_sql")),
		name:     "sql",
	}
	s.write = func(ctx context.Context, fn func(tx *gorm.DB) error) error {
		return fn(s.db.WithContext(ctx))
	}
	s.ping = func(ctx context.Context) error {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	return s
}

// AutoMigrate 创建或更新 memories 表（生产环境推荐使用 migrate 子命令）
func (s *Store) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&memoryRecord{}); err != nil {
		return fmt.Errorf("auto-migrate memories: %w", err)
	}
	return nil
}

// Name 返回后端名称
func (s *Store) Name() string { return s.name }

// Store 按 key upsert；向量化失败时降级为无向量写入
func (s *Store) Store(ctx context.Context, key, content string, category types.MemoryCategory) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	vec := s.embed(ctx, content)
	now := time.Now().UTC()
	rec := memoryRecord{
		ID:        uuid.NewString(),
		Key:       key,
		Content:   content,
		Category:  category.String(),
		SessionID: s.config.SessionID,
		Embedding: vec,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.write(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "category", "session_id", "embedding", "updated_at"}),
		}).Create(&rec).Error
	})
	if err != nil {
		return fmt.Errorf("store memory %q: %w", key, err)
	}
	return nil
}

// Recall 混合检索
func (s *Store) Recall(ctx context.Context, query string, limit int) ([]types.MemoryEntry, error) {
	terms := strings.Fields(strings.ToLower(query))
	if limit <= 0 || len(terms) == 0 {
		return []types.MemoryEntry{}, nil
	}

	queryVec := s.embed(ctx, query)

	tx := s.db.WithContext(ctx).Model(&memoryRecord{}).
		Order("updated_at DESC").
		Limit(s.config.MaxCandidates)
	if queryVec == nil {
		tx = tx.Where(keywordCondition(terms))
	}

	var rows []memoryRecord
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("recall memories: %w", err)
	}

	type scored struct {
		rec   memoryRecord
		score float64
	}
	matches := make([]scored, 0, len(rows))
	for _, r := range rows {
		kw := keywordScore(terms, r.Content, r.Key)
		score := kw
		if queryVec != nil && len(r.Embedding) > 0 {
			score = hybridScore(kw, cosineSimilarity(queryVec, r.Embedding), s.config.KeywordWeight, s.config.VectorWeight)
		}
		if score > 0 {
			matches = append(matches, scored{rec: r, score: clamp01(score)})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if limit > len(matches) {
		limit = len(matches)
	}
	out := make([]types.MemoryEntry, 0, limit)
	for _, m := range matches[:limit] {
		out = append(out, m.rec.toEntry().WithScore(m.score))
	}
	return out, nil
}

// Get 按 key 获取，不存在时返回 nil, nil
func (s *Store) Get(ctx context.Context, key string) (*types.MemoryEntry, error) {
	var rec memoryRecord
	err := s.db.WithContext(ctx).Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory %q: %w", key, err)
	}
	entry := rec.toEntry()
	return &entry, nil
}

// List 按写入时间升序列出
func (s *Store) List(ctx context.Context, category *types.MemoryCategory) ([]types.MemoryEntry, error) {
	tx := s.db.WithContext(ctx).Model(&memoryRecord{}).Order("created_at ASC")
	if category != nil {
		tx = tx.Where("category = ?", category.String())
	}

	var rows []memoryRecord
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}

	out := make([]types.MemoryEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntry())
	}
	return out, nil
}

// Forget 删除记忆
func (s *Store) Forget(ctx context.Context, key string) (bool, error) {
	var affected int64
	err := s.write(ctx, func(tx *gorm.DB) error {
		res := tx.Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).Delete(&memoryRecord{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("forget memory %q: %w", key, err)
	}
	return affected > 0, nil
}

// Count 返回条目数
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&memoryRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count memories: %w", err)
	}
	return int(n), nil
}

// HealthCheck ping 数据库
func (s *Store) HealthCheck(ctx context.Context) bool {
	if err := s.ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		return false
	}
	return true
}

// embed 提供者无维度或失败时返回 nil
func (s *Store) embed(ctx context.Context, text string) []float32 {
	if s.embedder.Dimensions() <= 0 {
		return nil
	}
	vec, err := embedding.EmbedOne(ctx, s.embedder, text)
	if err != nil {
		s.logger.Warn("embedding failed, falling back to keyword search",
			zap.String("provider", s.embedder.Name()),
			zap.Error(err),
		)
		return nil
	}
	return vec
}

// keywordCondition 任一查询词出现在 content 或 key 中
func keywordCondition(terms []string) clause.Expression {
	exprs := make([]clause.Expression, 0, len(terms)*2)
	for _, term := range terms {
		pattern := "%" + escapeLike(term) + "%"
		exprs = append(exprs,
			clause.Expr{SQL: "LOWER(?) LIKE ? ESCAPE '!'", Vars: []any{clause.Column{Name: "content"}, pattern}},
			clause.Expr{SQL: "LOWER(?) LIKE ? ESCAPE '!'", Vars: []any{clause.Column{Name: "key"}, pattern}},
		)
	}
	return clause.Or(exprs...)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
