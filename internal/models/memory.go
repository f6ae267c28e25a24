package models

import (
	"time"

	"github.com/google/uuid"
)

// MemoryKind partitions agent memory. Each kind carries its own size
// cap and is pruned independently.
type MemoryKind string

const (
	MemoryKindConversation MemoryKind = "conversation"
	MemoryKindTaskHistory  MemoryKind = "task_history"
	MemoryKindContext      MemoryKind = "context"
	MemoryKindKnowledge    MemoryKind = "knowledge"
	MemoryKindPreference   MemoryKind = "preference"
)

// MemoryEntry is a retained fact, conversational turn or task record
// used to inform future agent behavior. Importance is in [0,1] and
// drives pruning and relevance ranking.
type MemoryEntry struct {
	ID          string                 `json:"id"`
	Kind        MemoryKind             `json:"kind"`
	Content     string                 `json:"content"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	Importance  float64                `json:"importance"`
	AccessCount int                    `json:"access_count"`
}

// NewMemoryEntry creates an entry with the given kind and importance.
func NewMemoryEntry(kind MemoryKind, content string, importance float64) *MemoryEntry {
	if importance < 0 {
		importance = 0
	}
	if importance > 1 {
		importance = 1
	}
	return &MemoryEntry{
		ID:         "mem_" + uuid.New().String(),
		Kind:       kind,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
		Importance: importance,
	}
}
