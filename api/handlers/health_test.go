package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/memflow/testutil/mocks"
)

// =============================================================================
// 🧪 HealthHandler 测试
// =============================================================================

func TestHealthHandler_HandleHealth(t *testing.T) {
	handler := NewHealthHandler(zap.NewNop())
	handler.RegisterCheck(NewFuncHealthCheck("never-called", func(context.Context) error {
		return errors.New("down")
	}))

	w := httptest.NewRecorder()
	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var status HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
	assert.Empty(t, status.Checks)
}

func TestHealthHandler_HandleReady(t *testing.T) {
	tests := []struct {
		name       string
		mem        *mocks.MockMemory
		pingErr    error
		wantStatus int
		wantState  string
	}{
		{"all pass", mocks.NewMockMemory(), nil, http.StatusOK, "healthy"},
		{"backend unhealthy", mocks.NewMockMemory().WithHealthy(false), nil, http.StatusServiceUnavailable, "unhealthy"},
		{"dependency down", mocks.NewMockMemory(), errors.New("redis: connection refused"), http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(nil)
			handler.RegisterCheck(NewMemoryHealthCheck(tt.mem))
			handler.RegisterCheck(NewFuncHealthCheck("redis", func(context.Context) error { return tt.pingErr }))

			w := httptest.NewRecorder()
			handler.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var status HealthStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
			assert.Equal(t, tt.wantState, status.Status)
			assert.Contains(t, status.Checks, "memory:mock")
			assert.Contains(t, status.Checks, "redis")
		})
	}
}

func TestHealthHandler_ReadyMessageOnFailure(t *testing.T) {
	handler := NewHealthHandler(zap.NewNop())
	handler.RegisterCheck(NewMemoryHealthCheck(mocks.NewMockMemory().WithHealthy(false)))

	w := httptest.NewRecorder()
	handler.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var status HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	result := status.Checks["memory:mock"]
	assert.Equal(t, "fail", result.Status)
	assert.Equal(t, ErrBackendUnhealthy.Error(), result.Message)
}

func TestHealthHandler_HandleVersion(t *testing.T) {
	handler := NewHealthHandler(zap.NewNop())
	w := httptest.NewRecorder()
	handler.HandleVersion("1.2.3", "2026-01-01", "abc123")(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "1.2.3", resp.Data["version"])
	assert.Equal(t, "abc123", resp.Data["git_commit"])
}
