package memory

import (
	"context"
	"fmt"
	"strings"
)

// contextRecallLimit 构建上下文时检索的记忆条数
const contextRecallLimit = 5

// BuildContext 检索与用户消息相关的记忆并渲染为上下文前言。
// 没有相关记忆或后端出错时返回空字符串。
func BuildContext(ctx context.Context, mem Memory, userMsg string) string {
	entries, err := mem.Recall(ctx, userMsg, contextRecallLimit)
	if err != nil || len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("[Memory context]\n")
	for _, entry := range entries {
		fmt.Fprintf(&b, "- %s: %s\n", entry.Key, entry.Content)
	}
	b.WriteString("\n")
	return b.String()
}
