package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BaSui01/memflow/internal/database"
)

func setupPooledStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	pool, err := database.NewPoolManager(gormDB, database.PoolConfig{MaxOpenConns: 4, MaxIdleConns: 2}, zap.NewNop())
	require.NoError(t, err)

	return NewPooled(pool, DefaultConfig(), nil, zap.NewNop()), mock
}

func TestPooled_Name(t *testing.T) {
	s, _ := setupPooledStore(t)
	assert.Equal(t, "sql-pooled", s.Name())
}

func TestPooled_HealthCheckPingsPool(t *testing.T) {
	s, mock := setupPooledStore(t)

	mock.ExpectPing()
	assert.True(t, s.HealthCheck(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.False(t, s.HealthCheck(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPooled_ForgetInTransaction(t *testing.T) {
	s, mock := setupPooledStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "memories"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := s.Forget(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPooled_ForgetRetriesDeadlock(t *testing.T) {
	s, mock := setupPooledStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "memories"`).WillReturnError(&pgconn.PgError{Code: "40P01", Message: "deadlock detected"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "memories"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	removed, err := s.Forget(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPooled_QueryErrorsAreWrapped(t *testing.T) {
	boom := errors.New("boom")
	s, mock := setupPooledStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT \* FROM "memories"`).WillReturnError(boom)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, `get memory "k"`)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "memories"`).WillReturnError(boom)
	_, err = s.Count(ctx)
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery(`SELECT \* FROM "memories"`).WillReturnError(boom)
	_, err = s.List(ctx, nil)
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery(`SELECT \* FROM "memories"`).WillReturnError(boom)
	_, err = s.Recall(ctx, "topic", 3)
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
