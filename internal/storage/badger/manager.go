package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	articles  interfaces.ArticleStorage
	analysis  interfaces.AnalysisStorage
	vectors   interfaces.VectorStorage
	workflows interfaces.WorkflowStorage
	kv        interfaces.KeyValueStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, path string) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, path)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:        db,
		articles:  NewArticleStorage(db, logger),
		analysis:  NewAnalysisStorage(db, logger),
		vectors:   NewVectorStorage(db, logger),
		workflows: NewWorkflowStorage(db, logger),
		kv:        NewKVStorage(db, logger),
		logger:    logger,
	}

	logger.Info().Str("path", path).Msg("Badger storage manager initialized")

	return manager, nil
}

// Articles returns the article storage interface
func (m *Manager) Articles() interfaces.ArticleStorage {
	return m.articles
}

// Analysis returns the analysis storage interface
func (m *Manager) Analysis() interfaces.AnalysisStorage {
	return m.analysis
}

// Vectors returns the vector storage interface
func (m *Manager) Vectors() interfaces.VectorStorage {
	return m.vectors
}

// Workflows returns the workflow storage interface
func (m *Manager) Workflows() interfaces.WorkflowStorage {
	return m.workflows
}

// KV returns the key/value storage interface
func (m *Manager) KV() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
