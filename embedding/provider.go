// Package embedding 提供文本向量化的统一接口，供 SQL 后端做语义检索。
package embedding

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyEmbedding 提供者未返回任何向量
var ErrEmptyEmbedding = errors.New("empty embedding result")

// Provider 文本嵌入提供者
type Provider interface {
	// Name 返回提供者名称
	Name() string

	// Dimensions 返回向量维度，0 表示不支持向量检索
	Dimensions() int

	// Embed 批量嵌入，结果与输入顺序一致
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne 嵌入单条文本
func EmbedOne(ctx context.Context, p Provider, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return vecs[len(vecs)-1], nil
}

// =============================================================================
// 🚫 Noop
// =============================================================================

// NoopProvider 不产生向量，检索退化为关键词匹配
type NoopProvider struct{}

// Name 返回 "none"
func (NoopProvider) Name() string { return "none" }

// Dimensions 返回 0
func (NoopProvider) Dimensions() int { return 0 }

// Embed 总是返回空结果
func (NoopProvider) Embed(context.Context, []string) ([][]float32, error) {
	return [][]float32{}, nil
}

// =============================================================================
// 🏭 工厂
// =============================================================================

const customPrefix = "custom:"

// NewProvider 按名称创建提供者：
//   - "openai" 使用 https://api.openai.com
//   - "custom:<url>" 使用任意 OpenAI 兼容端点
//   - 其他名称返回 NoopProvider
func NewProvider(name, apiKey, model string, dims int) Provider {
	switch {
	case name == "openai":
		return NewOpenAIProvider(OpenAIConfig{
			BaseURL:    defaultOpenAIBaseURL,
			APIKey:     apiKey,
			Model:      model,
			Dimensions: dims,
		})
	case strings.HasPrefix(name, customPrefix):
		return NewOpenAIProvider(OpenAIConfig{
			BaseURL:    strings.TrimPrefix(name, customPrefix),
			APIKey:     apiKey,
			Model:      model,
			Dimensions: dims,
		})
	default:
		return NoopProvider{}
	}
}
