package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/indago/internal/models"
)

// ArticleStorage persists fetched news articles. URL is the natural
// key: UpsertByURL must never create a second record for a URL.
type ArticleStorage interface {
	UpsertByURL(ctx context.Context, article *models.Article) error
	GetByURL(ctx context.Context, url string) (*models.Article, error)
	UpdateStatus(ctx context.Context, url string, status models.ArticleStatus) error
	GetRecent(ctx context.Context, since time.Time, limit int) ([]*models.Article, error)
	Count(ctx context.Context) (int, error)
}

// AnalysisStorage persists extraction results, append-only.
type AnalysisStorage interface {
	Save(ctx context.Context, result *models.ExtractionResult) error
	GetByArticleURL(ctx context.Context, url string) ([]*models.ExtractionResult, error)
	GetRecent(ctx context.Context, since time.Time, limit int) ([]*models.ExtractionResult, error)
}

// VectorStorage persists embedding records, append-only.
type VectorStorage interface {
	Save(ctx context.Context, record *models.VectorRecord) error
	ExistsByHash(ctx context.Context, contentHash string) (bool, error)
	GetBySourceID(ctx context.Context, sourceID string) ([]*models.VectorRecord, error)
}

// WorkflowStorage persists workflows for the operator surface.
type WorkflowStorage interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	Get(ctx context.Context, id string) (*models.Workflow, error)
	GetRecent(ctx context.Context, limit int) ([]*models.Workflow, error)
}

// KeyValueStorage stores API keys and runtime settings overrides.
type KeyValueStorage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// StorageManager aggregates the typed storages behind one lifecycle.
type StorageManager interface {
	Articles() ArticleStorage
	Analysis() AnalysisStorage
	Vectors() VectorStorage
	Workflows() WorkflowStorage
	KV() KeyValueStorage
	Close() error
}
