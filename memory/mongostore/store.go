// Package mongostore 提供基于 MongoDB 的 memory.Memory 实现，
// 每个 key 一个文档，key 上建唯一索引。
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/BaSui01/memflow/types"
)

// Config MongoDB 后端配置
type Config struct {
	URI        string        `yaml:"uri" json:"-"`
	Database   string        `yaml:"database" json:"database"`
	Collection string        `yaml:"collection" json:"collection"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`

	// MaxCandidates 单次检索最多载入的候选文档
	MaxCandidates int64 `yaml:"max_candidates" json:"max_candidates"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		URI:           "mongodb://localhost:27017",
		Database:      "memflow",
		Collection:    "memories",
		Timeout:       10 * time.Second,
		MaxCandidates: 1000,
	}
}

// document memories 集合中的文档
type document struct {
	ID        string    `bson:"_id"`
	Key       string    `bson:"key"`
	Content   string    `bson:"content"`
	Category  string    `bson:"category"`
	SessionID string    `bson:"session_id,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d document) toEntry() types.MemoryEntry {
	return types.MemoryEntry{
		ID:        d.ID,
		Key:       d.Key,
		Content:   d.Content,
		Category:  types.ParseCategory(d.Category),
		Timestamp: d.UpdatedAt.UTC().Format(time.RFC3339),
		SessionID: d.SessionID,
	}
}

// Store MongoDB 记忆后端
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	config Config
	logger *zap.Logger
	owned  bool
}

// Connect 连接 MongoDB 并确保索引存在
func Connect(ctx context.Context, config Config, logger *zap.Logger) (*Store, error) {
	defaults := DefaultConfig()
	if config.URI == "" {
		config.URI = defaults.URI
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(config.URI).
		SetConnectTimeout(config.Timeout).
		SetServerSelectionTimeout(config.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongo: %w", err)
	}

	s, err := New(ctx, client, config, logger)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New 基于已有客户端创建后端
func New(ctx context.Context, client *mongo.Client, config Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if config.Database == "" {
		config.Database = defaults.Database
	}
	if config.Collection == "" {
		config.Collection = defaults.Collection
	}
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = defaults.MaxCandidates
	}

	s := &Store{
		client: client,
		coll:   client.Database(config.Database).Collection(config.Collection),
		config: config,
		logger: logger.With(zap.String("component", "memory_store_mongo")),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("mongo store initialized",
		zap.String("database", config.Database),
		zap.String("collection", config.Collection),
	)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_key"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetName("idx_category"),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_updated_at"),
		},
	})
	if err != nil {
		return fmt.Errorf("create mongo indexes: %w", err)
	}
	return nil
}

// Name 返回 "mongo"
func (s *Store) Name() string { return "mongo" }

// Store 按 key upsert；首次写入时生成 ID 与 created_at
func (s *Store) Store(ctx context.Context, key, content string, category types.MemoryCategory) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	now := time.Now().UTC()
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "content", Value: content},
			{Key: "category", Value: category.String()},
			{Key: "updated_at", Value: now},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "_id", Value: uuid.NewString()},
			{Key: "created_at", Value: now},
		}},
	}

	_, err := s.coll.UpdateOne(ctx, keyFilter(key), update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store memory %q: %w", key, err)
	}
	return nil
}

// Recall 关键词检索：任一查询词以不区分大小写的正则命中 content 或 key
func (s *Store) Recall(ctx context.Context, query string, limit int) ([]types.MemoryEntry, error) {
	terms := strings.Fields(strings.ToLower(query))
	if limit <= 0 || len(terms) == 0 {
		return []types.MemoryEntry{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(s.config.MaxCandidates)
	docs, err := s.find(ctx, recallFilter(terms), opts)
	if err != nil {
		return nil, fmt.Errorf("recall memories: %w", err)
	}

	type scored struct {
		doc   document
		score float64
	}
	matches := make([]scored, 0, len(docs))
	for _, d := range docs {
		if score := keywordScore(terms, d.Content, d.Key); score > 0 {
			matches = append(matches, scored{doc: d, score: score})
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
		out = append(out, m.doc.toEntry().WithScore(m.score))
	}
	return out, nil
}

// Get 按 key 获取
func (s *Store) Get(ctx context.Context, key string) (*types.MemoryEntry, error) {
	var d document
	err := s.coll.FindOne(ctx, keyFilter(key)).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory %q: %w", key, err)
	}
	entry := d.toEntry()
	return &entry, nil
}

// List 按创建时间升序列出
func (s *Store) List(ctx context.Context, category *types.MemoryCategory) ([]types.MemoryEntry, error) {
	filter := bson.D{}
	if category != nil {
		filter = bson.D{{Key: "category", Value: category.String()}}
	}

	docs, err := s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}

	out := make([]types.MemoryEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEntry())
	}
	return out, nil
}

// Forget 删除记忆
func (s *Store) Forget(ctx context.Context, key string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, keyFilter(key))
	if err != nil {
		return false, fmt.Errorf("forget memory %q: %w", key, err)
	}
	return res.DeletedCount > 0, nil
}

// Count 返回文档数
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count memories: %w", err)
	}
	return int(n), nil
}

// HealthCheck ping 主节点
func (s *Store) HealthCheck(ctx context.Context) bool {
	if err := s.client.Ping(ctx, nil); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		return false
	}
	return true
}

// Close 断开由 Connect 创建的客户端
func (s *Store) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) ([]document, error) {
	cur, err := s.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func keyFilter(key string) bson.D {
	return bson.D{{Key: "key", Value: key}}
}

// recallFilter 每个查询词对 content、key 各生成一个正则条件
func recallFilter(terms []string) bson.D {
	or := make(bson.A, 0, len(terms)*2)
	for _, t := range terms {
		re := bson.Regex{Pattern: regexp.QuoteMeta(t), Options: "i"}
		or = append(or,
			bson.D{{Key: "content", Value: re}},
			bson.D{{Key: "key", Value: re}},
		)
	}
	return bson.D{{Key: "$or", Value: or}}
}

// keywordScore 查询词在 content/key 中的命中比例
func keywordScore(terms []string, content, key string) float64 {
	haystack := strings.ToLower(content + " " + key)
	hits := 0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
