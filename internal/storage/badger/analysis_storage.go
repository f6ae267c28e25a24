package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AnalysisStorage implements interfaces.AnalysisStorage for Badger.
// Extraction results are append-only.
type AnalysisStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAnalysisStorage creates a new AnalysisStorage instance
func NewAnalysisStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AnalysisStorage {
	return &AnalysisStorage{
		db:     db,
		logger: logger,
	}
}

// Save appends one extraction result.
func (s *AnalysisStorage) Save(ctx context.Context, result *models.ExtractionResult) error {
	if result.ID == "" {
		return fmt.Errorf("extraction result ID is required")
	}
	if err := s.db.Store().Insert(result.ID, result); err != nil {
		return fmt.Errorf("failed to save extraction result: %w", err)
	}
	return nil
}

// GetByArticleURL returns all extraction attempts for one article.
func (s *AnalysisStorage) GetByArticleURL(ctx context.Context, url string) ([]*models.ExtractionResult, error) {
	var results []*models.ExtractionResult
	if err := s.db.Store().Find(&results, badgerhold.Where("ArticleURL").Eq(url)); err != nil {
		return nil, fmt.Errorf("failed to query extraction results: %w", err)
	}
	return results, nil
}

// GetRecent returns extraction results created after the given time,
// newest first.
func (s *AnalysisStorage) GetRecent(ctx context.Context, since time.Time, limit int) ([]*models.ExtractionResult, error) {
	var results []*models.ExtractionResult
	query := badgerhold.Where("CreatedAt").Ge(since).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&results, query); err != nil {
		return nil, fmt.Errorf("failed to query recent extraction results: %w", err)
	}
	return results, nil
}
