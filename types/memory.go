// Package types provides unified type definitions for memflow.
package types

import (
	"time"

	"github.com/google/uuid"
)

// MemoryCategory 记忆分类。
// 内置三种固定分类，其余取值均视为自定义分类。
type MemoryCategory string

const (
	// CategoryCore 长期事实、偏好与决策
	CategoryCore MemoryCategory = "core"

	// CategoryDaily 每日会话日志
	CategoryDaily MemoryCategory = "daily"

	// CategoryConversation 对话上下文
	CategoryConversation MemoryCategory = "conversation"
)

// CustomCategory 创建自定义分类
func CustomCategory(name string) MemoryCategory {
	return MemoryCategory(name)
}

// ParseCategory 将持久化的字符串还原为分类
func ParseCategory(s string) MemoryCategory {
	return MemoryCategory(s)
}

// String 返回分类名称
func (c MemoryCategory) String() string {
	return string(c)
}

// IsCustom 是否为自定义分类
func (c MemoryCategory) IsCustom() bool {
	switch c {
	case CategoryCore, CategoryDaily, CategoryConversation:
		return false
	default:
		return true
	}
}

// MemoryEntry 单条记忆。
// Score 仅由 Recall 填充，Get 返回的条目不带分数。
type MemoryEntry struct {
	ID        string         `json:"id"`
	Key       string         `json:"key"`
	Content   string         `json:"content"`
	Category  MemoryCategory `json:"category"`
	Timestamp string         `json:"timestamp"`
	SessionID string         `json:"session_id,omitempty"`
	Score     *float64       `json:"score,omitempty"`
}

// NewMemoryEntry 以新的 ID 与当前时间构造条目
func NewMemoryEntry(key, content string, category MemoryCategory) MemoryEntry {
	return MemoryEntry{
		ID:        uuid.NewString(),
		Key:       key,
		Content:   content,
		Category:  category,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// WithScore 返回带相关度分数的副本
func (e MemoryEntry) WithScore(score float64) MemoryEntry {
	e.Score = &score
	return e
}

// Clone 深拷贝条目（Score 指针不共享）
func (e MemoryEntry) Clone() MemoryEntry {
	if e.Score != nil {
		s := *e.Score
		e.Score = &s
	}
	return e
}
