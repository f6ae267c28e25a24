package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	mgr, err := NewManager(common.GetLogger(), t.TempDir()+"/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestArticleStorage_UpsertByURL(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	t.Run("saving the same URL twice keeps one record", func(t *testing.T) {
		first := models.NewArticle("https://example.com/story", "Original title", "original body", "TestFeed")
		require.NoError(t, mgr.Articles().UpsertByURL(ctx, first))

		updated := models.NewArticle("https://example.com/story", "Updated title", "updated body", "TestFeed")
		updated.Author = "jane"
		require.NoError(t, mgr.Articles().UpsertByURL(ctx, updated))

		count, err := mgr.Articles().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		stored, err := mgr.Articles().GetByURL(ctx, "https://example.com/story")
		require.NoError(t, err)
		assert.Equal(t, "Updated title", stored.Title)
		assert.Equal(t, "updated body", stored.Content)
		assert.Equal(t, "jane", stored.Author)
		// Identity survives the refresh and is never clobbered by the key
		assert.Equal(t, first.ID, stored.ID)
		assert.NotEqual(t, stored.URL, stored.ID)
		assert.Equal(t, first.CreatedAt.Unix(), stored.CreatedAt.Unix())
	})

	t.Run("missing URL is rejected", func(t *testing.T) {
		article := models.NewArticle("", "title", "body", "TestFeed")
		assert.Error(t, mgr.Articles().UpsertByURL(ctx, article))
	})
}

func TestArticleStorage_UpdateStatus(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	article := models.NewArticle("https://example.com/a", "t", "b", "TestFeed")
	require.NoError(t, mgr.Articles().UpsertByURL(ctx, article))

	require.NoError(t, mgr.Articles().UpdateStatus(ctx, article.URL, models.ArticleStatusProcessing))
	stored, err := mgr.Articles().GetByURL(ctx, article.URL)
	require.NoError(t, err)
	assert.Equal(t, models.ArticleStatusProcessing, stored.Status)
	assert.Equal(t, 0, stored.RetryCount)

	require.NoError(t, mgr.Articles().UpdateStatus(ctx, article.URL, models.ArticleStatusFailed))
	stored, err = mgr.Articles().GetByURL(ctx, article.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.RetryCount)

	err = mgr.Articles().UpdateStatus(ctx, "https://example.com/missing", models.ArticleStatusFailed)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestArticleStorage_GetRecent(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, age := range []time.Duration{1 * time.Hour, 30 * time.Hour, 2 * time.Hour} {
		article := models.NewArticle(
			fmt.Sprintf("https://example.com/%d", i), "t", "b", "TestFeed")
		article.PublishedAt = now.Add(-age)
		require.NoError(t, mgr.Articles().UpsertByURL(ctx, article))
	}

	recent, err := mgr.Articles().GetRecent(ctx, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// Newest first
	assert.True(t, recent[0].PublishedAt.After(recent[1].PublishedAt))
}

func TestAnalysisStorage_SaveAndQuery(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	result := models.NewExtractionResult("https://example.com/story")
	result.Sentiment = "positive"
	result.IndustryThemes = []string{"semiconductors"}
	require.NoError(t, mgr.Analysis().Save(ctx, result))

	degraded := models.DegradedExtractionResult("https://example.com/story", "not json")
	require.NoError(t, mgr.Analysis().Save(ctx, degraded))

	results, err := mgr.Analysis().GetByArticleURL(ctx, "https://example.com/story")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestVectorStorage_ExistsByHash(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	record := models.NewVectorRecord("article", "article_1", "hash123", []float32{0.1, 0.2}, "text-embedding-004")
	require.NoError(t, mgr.Vectors().Save(ctx, record))
	assert.Equal(t, 2, record.Dimension)

	exists, err := mgr.Vectors().ExistsByHash(ctx, "hash123")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = mgr.Vectors().ExistsByHash(ctx, "other")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestKVStorage_RoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.KV().Set("Anthropic_API_Key", "secret"))

	// Case-insensitive read
	value, err := mgr.KV().Get("anthropic_api_key")
	require.NoError(t, err)
	assert.Equal(t, "secret", value)

	_, err = mgr.KV().Get("missing")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	require.NoError(t, mgr.KV().Delete("ANTHROPIC_API_KEY"))
	_, err = mgr.KV().Get("anthropic_api_key")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestWorkflowStorage_SaveAndGet(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	wf := models.NewWorkflow("analyze tech news")
	wf.Steps = []*models.WorkflowStep{
		{ID: "s1", Agent: "data", Description: "fetch quotes", Status: models.WorkflowStatusCompleted},
	}
	require.NoError(t, mgr.Workflows().Save(ctx, wf))

	stored, err := mgr.Workflows().Get(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "analyze tech news", stored.Goal)
	require.Len(t, stored.Steps, 1)
	assert.Equal(t, models.WorkflowStatusCompleted, stored.Steps[0].Status)

	_, err = mgr.Workflows().Get(ctx, "wf_missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}
