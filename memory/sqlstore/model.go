package sqlstore

import (
	"time"

	"github.com/BaSui01/memflow/types"
)

// memoryRecord memories 表
type memoryRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Key       string    `gorm:"size:255;not null;uniqueIndex:idx_memories_key"`
	Content   string    `gorm:"type:text;not null"`
	Category  string    `gorm:"size:100;not null;index:idx_memories_category"`
	SessionID string    `gorm:"size:100;index:idx_memories_session_id"`
	Embedding []float32 `gorm:"type:text;serializer:json"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index:idx_memories_updated_at"`
}

// TableName 表名
func (memoryRecord) TableName() string {
	return "memories"
}

func (r memoryRecord) toEntry() types.MemoryEntry {
	return types.MemoryEntry{
		ID:        r.ID,
		Key:       r.Key,
		Content:   r.Content,
		Category:  types.ParseCategory(r.Category),
		Timestamp: r.UpdatedAt.UTC().Format(time.RFC3339),
		SessionID: r.SessionID,
	}
}
