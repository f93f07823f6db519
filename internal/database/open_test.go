package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDialector(t *testing.T) {
	tests := []struct {
		driver  string
		name    string
		wantErr bool
	}{
		{DriverPostgres, "postgres", false},
		{"postgresql", "postgres", false},
		{DriverMySQL, "mysql", false},
		{DriverSQLite, "sqlite", false},
		{DriverSQLite3, "sqlite", false},
		{"", "", true},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := Dialector(tt.driver, "dsn")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, d.Name())
		})
	}
}

func TestOpen_SQLiteInMemory(t *testing.T) {
	db, err := Open(DriverSQLite, ":memory:", zaptest.NewLogger(t))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.NoError(t, sqlDB.Ping())

	pm, err := NewPoolManager(db, DefaultPoolConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 100, pm.GetStats().MaxOpenConnections)
	require.NoError(t, pm.Close())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn", nil)
	assert.ErrorContains(t, err, "unsupported database driver")
}
