package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// VectorStorage implements interfaces.VectorStorage for Badger.
// Records are immutable once written.
type VectorStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewVectorStorage creates a new VectorStorage instance
func NewVectorStorage(db *BadgerDB, logger arbor.ILogger) interfaces.VectorStorage {
	return &VectorStorage{
		db:     db,
		logger: logger,
	}
}

// Save appends one vector record.
func (s *VectorStorage) Save(ctx context.Context, record *models.VectorRecord) error {
	if record.ID == "" {
		return fmt.Errorf("vector record ID is required")
	}
	if err := s.db.Store().Insert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save vector record: %w", err)
	}
	return nil
}

// ExistsByHash reports whether a record with the given content hash
// already exists, so unchanged text is not re-embedded.
func (s *VectorStorage) ExistsByHash(ctx context.Context, contentHash string) (bool, error) {
	count, err := s.db.Store().Count(&models.VectorRecord{}, badgerhold.Where("ContentHash").Eq(contentHash))
	if err != nil {
		return false, fmt.Errorf("failed to check vector record: %w", err)
	}
	return count > 0, nil
}

// GetBySourceID returns the vector records for one source entity.
func (s *VectorStorage) GetBySourceID(ctx context.Context, sourceID string) ([]*models.VectorRecord, error) {
	var records []*models.VectorRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("SourceID").Eq(sourceID)); err != nil {
		return nil, fmt.Errorf("failed to query vector records: %w", err)
	}
	return records, nil
}
