package embedding

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// 嵌入模型的编码与输入上限
var modelLimits = map[string]struct {
	encoding  string
	maxTokens int
}{
	"text-embedding-3-large": {encoding: "cl100k_base", maxTokens: 8191},
	"text-embedding-3-small": {encoding: "cl100k_base", maxTokens: 8191},
	"text-embedding-ada-002": {encoding: "cl100k_base", maxTokens: 8191},
}

// truncator 超出模型窗口的输入按 token 截断
type truncator struct {
	encoding  string
	maxTokens int
	logger    *zap.Logger

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

func newTruncator(model string, maxTokens int, logger *zap.Logger) *truncator {
	info, ok := modelLimits[model]
	if !ok {
		for prefix, i := range modelLimits {
			if strings.HasPrefix(model, prefix) {
				info, ok = i, true
				break
			}
		}
	}
	if !ok {
		info.encoding, info.maxTokens = "cl100k_base", 8191
	}
	if maxTokens > 0 {
		info.maxTokens = maxTokens
	}
	return &truncator{encoding: info.encoding, maxTokens: info.maxTokens, logger: logger}
}

// init 延迟加载编码表（首次使用时可能需要下载）
func (t *truncator) init() error {
	t.once.Do(func() {
		t.enc, t.initErr = tiktoken.GetEncoding(t.encoding)
		if t.initErr != nil {
			t.logger.Warn("tiktoken encoding unavailable, inputs sent untruncated",
				zap.String("encoding", t.encoding),
				zap.Error(t.initErr),
			)
		}
	})
	return t.initErr
}

// truncate 每个 token 至少一个字节，字节数未超限时无需编码
func (t *truncator) truncate(text string) string {
	if len(text) <= t.maxTokens {
		return text
	}
	if err := t.init(); err != nil {
		return text
	}

	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= t.maxTokens {
		return text
	}
	t.logger.Debug("truncating embedding input",
		zap.Int("tokens", len(tokens)),
		zap.Int("max_tokens", t.maxTokens),
	)
	return t.enc.Decode(tokens[:t.maxTokens])
}
