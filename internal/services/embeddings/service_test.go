package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/models"
)

// fakeVectorStorage reports every hash as already embedded.
type fakeVectorStorage struct {
	existing map[string]bool
	saved    []*models.VectorRecord
}

func (f *fakeVectorStorage) Save(ctx context.Context, record *models.VectorRecord) error {
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeVectorStorage) ExistsByHash(ctx context.Context, contentHash string) (bool, error) {
	return f.existing[contentHash], nil
}

func (f *fakeVectorStorage) GetBySourceID(ctx context.Context, sourceID string) ([]*models.VectorRecord, error) {
	return nil, nil
}

func TestEmbedArticles_DisabledIsNoOp(t *testing.T) {
	svc := NewService(&common.EmbeddingsConfig{Enabled: false, Concurrency: 3}, "", nil, nil)

	stored, err := svc.EmbedArticles(context.Background(), []*models.Article{
		models.NewArticle("https://news.example.com/a", "Title", "body", "test"),
	})
	require.NoError(t, err)
	assert.Zero(t, stored)
}

func TestEmbedArticles_KnownHashesSkipped(t *testing.T) {
	a := models.NewArticle("https://news.example.com/a", "Title", "body", "test")
	storage := &fakeVectorStorage{existing: map[string]bool{a.ContentHash: true}}
	svc := NewService(&common.EmbeddingsConfig{Enabled: true, Concurrency: 3}, "key", storage, nil)

	stored, err := svc.EmbedArticles(context.Background(), []*models.Article{a})
	require.NoError(t, err)
	assert.Zero(t, stored)
	assert.Empty(t, storage.saved)
}

func TestEmbedText_EmptyTextRejected(t *testing.T) {
	svc := NewService(&common.EmbeddingsConfig{Enabled: true, Concurrency: 3}, "key", nil, nil)

	_, err := svc.EmbedText(context.Background(), "")
	require.Error(t, err)
}

func TestModelDefault(t *testing.T) {
	svc := NewService(&common.EmbeddingsConfig{}, "", nil, nil)
	assert.Equal(t, defaultEmbeddingModel, svc.model())

	svc = NewService(&common.EmbeddingsConfig{Model: "custom-embed"}, "", nil, nil)
	assert.Equal(t, "custom-embed", svc.model())
}
