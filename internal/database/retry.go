package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// =============================================================================
// 🔁 事务重试
// =============================================================================

const (
	retryBaseBackoff = 50 * time.Millisecond
	retryMaxBackoff  = 2 * time.Second
)

// WithTransactionRetry 在事务中执行函数；死锁、序列化冲突、锁等待与
// 断连等瞬时错误按指数退避重试，最多 maxRetries 次
func (pm *PoolManager) WithTransactionRetry(ctx context.Context, maxRetries int, fn TransactionFunc) error {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := range maxRetries {
		err := pm.WithTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return err
		}
		if attempt == maxRetries-1 {
			break
		}

		backoff := retryBackoff(attempt)
		pm.logger.Warn("transaction failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("transaction failed after %d retries: %w", maxRetries, lastErr)
}

func retryBackoff(attempt int) time.Duration {
	d := retryBaseBackoff << attempt
	if d <= 0 || d > retryMaxBackoff {
		return retryMaxBackoff
	}
	return d
}

// PostgreSQL SQLSTATE
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// MySQL 错误号
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// SQLite 主错误码（扩展码低 8 位）
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// sqliteCoder glebarez/go-sqlite 与 modernc.org/sqlite 的错误都暴露 Code()
type sqliteCoder interface {
	Code() int
}

// isRetryableError 按驱动错误类型判断是否为瞬时错误
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		}
		return false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout
	}

	var liteErr sqliteCoder
	if errors.As(err, &liteErr) {
		code := liteErr.Code() & 0xff
		return code == sqliteBusy || code == sqliteLocked
	}

	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}
