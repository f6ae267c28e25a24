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

// WorkflowStorage implements interfaces.WorkflowStorage for Badger.
type WorkflowStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewWorkflowStorage creates a new WorkflowStorage instance
func NewWorkflowStorage(db *BadgerDB, logger arbor.ILogger) interfaces.WorkflowStorage {
	return &WorkflowStorage{
		db:     db,
		logger: logger,
	}
}

// Save inserts or updates a workflow with its step states.
func (s *WorkflowStorage) Save(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		return fmt.Errorf("workflow ID is required")
	}
	if err := s.db.Store().Upsert(workflow.ID, workflow); err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}
	return nil
}

// Get retrieves one workflow by id.
func (s *WorkflowStorage) Get(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow
	err := s.db.Store().Get(id, &workflow)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return &workflow, nil
}

// GetRecent returns the most recently created workflows.
func (s *WorkflowStorage) GetRecent(ctx context.Context, limit int) ([]*models.Workflow, error) {
	var workflows []*models.Workflow
	query := badgerhold.Where("CreatedAt").Ge(time.Time{}).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&workflows, query); err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	return workflows, nil
}
