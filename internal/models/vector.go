package models

import (
	"time"

	"github.com/google/uuid"
)

// VectorRecord stores an embedding plus metadata linking it back to
// its source text. Records are immutable once written; the content
// hash is used to skip re-embedding unchanged text.
type VectorRecord struct {
	ID          string    `json:"id" badgerhold:"key"`
	SourceType  string    `json:"source_type"`
	SourceID    string    `json:"source_id" badgerhold:"index"`
	ContentHash string    `json:"content_hash" badgerhold:"index"`
	Vector      []float32 `json:"vector"`
	Model       string    `json:"model"`
	Dimension   int       `json:"dimension"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewVectorRecord creates an immutable vector record.
func NewVectorRecord(sourceType, sourceID, contentHash string, vector []float32, model string) *VectorRecord {
	return &VectorRecord{
		ID:          "vec_" + uuid.New().String(),
		SourceType:  sourceType,
		SourceID:    sourceID,
		ContentHash: contentHash,
		Vector:      vector,
		Model:       model,
		Dimension:   len(vector),
		CreatedAt:   time.Now().UTC(),
	}
}
