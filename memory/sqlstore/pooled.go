package sqlstore

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/memflow/embedding"
	"github.com/BaSui01/memflow/internal/database"
)

// defaultWriteRetries 池化写事务的最大尝试次数
const defaultWriteRetries = 3

// NewPooled 基于 PoolManager 创建 SQL 后端：写操作走带重试的事务，健康检查 ping 连接池
func NewPooled(pool *database.PoolManager, config Config, embedder embedding.Provider, logger *zap.Logger) *Store {
	s := New(pool.DB(), config, embedder, logger)
	s.name = "sql-pooled"
	s.write = func(ctx context.Context, fn func(tx *gorm.DB) error) error {
		return pool.WithTransactionRetry(ctx, defaultWriteRetries, func(tx *gorm.DB) error {
			return fn(tx)
		})
	}
	s.ping = pool.Ping
	return s
}
