package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCategory_String(t *testing.T) {
	tests := []struct {
		category MemoryCategory
		want     string
		custom   bool
	}{
		{CategoryCore, "core", false},
		{CategoryDaily, "daily", false},
		{CategoryConversation, "conversation", false},
		{CustomCategory("project_notes"), "project_notes", true},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.category.String())
			assert.Equal(t, tt.custom, tt.category.IsCustom())
			assert.Equal(t, tt.category, ParseCategory(tt.want))
		})
	}
}

func TestNewMemoryEntry(t *testing.T) {
	a := NewMemoryEntry("k", "v", CategoryCore)
	b := NewMemoryEntry("k", "v", CategoryCore)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Nil(t, a.Score)

	_, err := time.Parse(time.RFC3339, a.Timestamp)
	require.NoError(t, err)
}

func TestMemoryEntry_JSONOmitsOptionalFields(t *testing.T) {
	entry := MemoryEntry{ID: "1", Key: "k", Content: "c", Category: CategoryDaily, Timestamp: "2024-01-01T00:00:00Z"}

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "score")
	assert.NotContains(t, string(data), "session_id")

	scored := entry.WithScore(0.5)
	data, err = json.Marshal(scored)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"score":0.5`)
	assert.Nil(t, entry.Score)
}

func TestMemoryEntry_CloneDetachesScore(t *testing.T) {
	orig := MemoryEntry{Key: "k"}.WithScore(0.9)
	cp := orig.Clone()
	*cp.Score = 0.1

	assert.Equal(t, 0.9, *orig.Score)
}
