package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/memflow/internal/tlsutil"
	"github.com/BaSui01/memflow/types"
)

// httpClient OpenAI 兼容接口的公共 HTTP 逻辑
type httpClient struct {
	name    string
	client  *http.Client
	baseURL string
}

func newHTTPClient(name, baseURL string, timeout time.Duration) *httpClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		name:    name,
		client:  tlsutil.SecureHTTPClient(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// doJSON 发送 JSON 请求并返回响应体；>=400 映射为 types.Error
func (c *httpClient) doJSON(ctx context.Context, method, endpoint string, body any, headers map[string]string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		code := types.ErrUpstreamError
		if ctx.Err() != nil {
			code = types.ErrUpstreamTimeout
		}
		return nil, types.NewError(code, "embedding request failed").
			WithCause(err).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).
			WithProvider(c.name)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, mapHTTPError(resp.StatusCode, string(respBody), c.name)
	}
	return respBody, nil
}

// mapHTTPError 将 HTTP 状态码映射为 types.Error
func mapHTTPError(status int, msg, provider string) *types.Error {
	code := types.ErrUpstreamError
	retryable := status >= 500

	switch status {
	case http.StatusUnauthorized:
		code = types.ErrUnauthorized
	case http.StatusForbidden:
		code = types.ErrForbidden
	case http.StatusTooManyRequests:
		code = types.ErrRateLimit
		retryable = true
	case http.StatusBadRequest:
		code = types.ErrInvalidRequest
	case http.StatusGatewayTimeout:
		code = types.ErrUpstreamTimeout
	}

	return types.NewError(code, fmt.Sprintf("embedding API error %d: %s", status, msg)).
		WithHTTPStatus(status).
		WithRetryable(retryable).
		WithProvider(provider)
}
