package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/memflow/types"
)

// =============================================================================
// 🧪 Common 函数测试
// =============================================================================

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusAccepted, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.JSONEq(t, `{"message":"hello"}`, w.Body.String())
}

func TestWriteSuccess_RequestID(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "req-1")

	WriteSuccess(w, r, map[string]string{"key": "value"})

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid request", types.NewError(types.ErrInvalidRequest, "key is required"), http.StatusBadRequest, "INVALID_REQUEST"},
		{"not found", types.NewError(types.ErrNotFound, "missing"), http.StatusNotFound, "NOT_FOUND"},
		{"rate limit", types.NewError(types.ErrRateLimit, "slow down"), http.StatusTooManyRequests, "RATE_LIMIT"},
		{"explicit status", types.NewError(types.ErrInvalidRequest, "too big").WithHTTPStatus(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge, "INVALID_REQUEST"},
		{"plain backend error", errors.New("connection refused"), http.StatusServiceUnavailable, "BACKEND_FAILURE"},
		{"upstream", types.NewError(types.ErrUpstreamError, "bad gateway"), http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"internal", types.NewError(types.ErrInternalError, "oops"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, zap.NewNop())

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestWriteError_BackendFailureIsRetryable(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, nil, errors.New("boom"), nil)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.True(t, resp.Error.Retryable)
	// 内部错误细节不外泄
	assert.NotContains(t, resp.Error.Message, "boom")
}

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		Key string `json:"key"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"key":"a"}`, false},
		{"empty", ``, true},
		{"malformed", `{"key":`, true},
		{"unknown field", `{"key":"a","extra":1}`, true},
		{"trailing object", `{"key":"a"}{"key":"b"}`, true},
		{"too large", `{"key":"` + strings.Repeat("x", maxBodyBytes) + `"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.body != "" {
				r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			}

			var dst payload
			err := DecodeJSONBody(httptest.NewRecorder(), r, &dst)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a", dst.Key)
		})
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK)
	n, err := rw.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusTeapot, rw.StatusCode)
	assert.Equal(t, int64(5), rw.BytesWritten)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Same(t, rec, rw.Unwrap())
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, mapErrorCodeToHTTPStatus(types.ErrUnauthorized))
	assert.Equal(t, http.StatusForbidden, mapErrorCodeToHTTPStatus(types.ErrForbidden))
	assert.Equal(t, http.StatusGatewayTimeout, mapErrorCodeToHTTPStatus(types.ErrUpstreamTimeout))
	assert.Equal(t, http.StatusServiceUnavailable, mapErrorCodeToHTTPStatus(types.ErrServiceUnavailable))
	assert.Equal(t, http.StatusInternalServerError, mapErrorCodeToHTTPStatus("SOMETHING_ELSE"))
}
