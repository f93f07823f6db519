package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultOpenAIModel   = "text-embedding-3-small"
)

// OpenAIConfig OpenAI 兼容嵌入接口配置
type OpenAIConfig struct {
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	APIKey     string        `yaml:"api_key" json:"-"`
	Model      string        `yaml:"model" json:"model"`
	Dimensions int           `yaml:"dimensions" json:"dimensions"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`

	// MaxInputTokens 单条输入的 token 上限，0 时按模型推断
	MaxInputTokens int `yaml:"max_input_tokens" json:"max_input_tokens"`

	Logger *zap.Logger `yaml:"-" json:"-"`
}

// OpenAIProvider 调用 {base}/v1/embeddings 的嵌入提供者
type OpenAIProvider struct {
	http      *httpClient
	cfg       OpenAIConfig
	truncator *truncator
	logger    *zap.Logger
}

// NewOpenAIProvider 创建 OpenAI 兼容提供者
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "embedding_openai"))

	return &OpenAIProvider{
		http:      newHTTPClient("openai", cfg.BaseURL, cfg.Timeout),
		cfg:       cfg,
		truncator: newTruncator(cfg.Model, cfg.MaxInputTokens, logger),
		logger:    logger,
	}
}

// Name 返回 "openai"
func (p *OpenAIProvider) Name() string { return "openai" }

// Dimensions 返回配置的维度
func (p *OpenAIProvider) Dimensions() int { return p.cfg.Dimensions }

// BaseURL 返回去除末尾斜杠后的端点
func (p *OpenAIProvider) BaseURL() string { return p.http.baseURL }

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed 批量嵌入；空输入不发请求
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = p.truncator.truncate(t)
	}

	respBody, err := p.http.doJSON(ctx, http.MethodPost, "/v1/embeddings", openAIEmbedRequest{
		Model: p.cfg.Model,
		Input: input,
	}, map[string]string{
		"Authorization": "Bearer " + p.cfg.APIKey,
	})
	if err != nil {
		return nil, err
	}

	var oaResp openAIEmbedResponse
	if err := json.Unmarshal(respBody, &oaResp); err != nil {
		return nil, fmt.Errorf("invalid embedding response: %w", err)
	}
	if oaResp.Data == nil {
		return nil, fmt.Errorf("invalid embedding response: missing data")
	}

	sort.SliceStable(oaResp.Data, func(i, j int) bool {
		return oaResp.Data[i].Index < oaResp.Data[j].Index
	})

	out := make([][]float32, len(oaResp.Data))
	for i, d := range oaResp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		out[i] = vec
	}

	p.logger.Debug("embedded texts",
		zap.Int("count", len(texts)),
		zap.Int("prompt_tokens", oaResp.Usage.PromptTokens),
	)
	return out, nil
}
