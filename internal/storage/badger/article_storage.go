package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ArticleStorage implements interfaces.ArticleStorage for Badger.
// Articles are keyed by ID; the unique URL index guarantees upserting
// the same URL can never create a second record.
type ArticleStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewArticleStorage creates a new ArticleStorage instance
func NewArticleStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ArticleStorage {
	return &ArticleStorage{
		db:     db,
		logger: logger,
	}
}

// UpsertByURL inserts the article, or refreshes the stored record if
// the URL already exists. The original ID, CreatedAt and RetryCount
// survive a refresh; title, content, author and hash are updated.
func (s *ArticleStorage) UpsertByURL(ctx context.Context, article *models.Article) error {
	if article.URL == "" {
		return fmt.Errorf("article URL is required")
	}

	now := time.Now().UTC()

	existing, err := s.findByURL(article.URL)
	switch {
	case err == nil:
		article.ID = existing.ID
		article.CreatedAt = existing.CreatedAt
		if article.RetryCount == 0 {
			article.RetryCount = existing.RetryCount
		}
	case err != interfaces.ErrNotFound:
		return fmt.Errorf("failed to check existing article: %w", err)
	default:
		if article.ID == "" {
			article.ID = "article_" + uuid.New().String()
		}
		if article.CreatedAt.IsZero() {
			article.CreatedAt = now
		}
	}
	article.UpdatedAt = now

	if err := s.db.Store().Upsert(article.ID, article); err != nil {
		return fmt.Errorf("failed to upsert article: %w", err)
	}

	s.logger.Debug().
		Str("url", article.URL).
		Str("status", string(article.Status)).
		Msg("Article upserted")

	return nil
}

// GetByURL retrieves one article by its URL.
func (s *ArticleStorage) GetByURL(ctx context.Context, url string) (*models.Article, error) {
	return s.findByURL(url)
}

func (s *ArticleStorage) findByURL(url string) (*models.Article, error) {
	var article models.Article
	err := s.db.Store().FindOne(&article, badgerhold.Where("URL").Eq(url).Index("URL"))
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return &article, nil
}

// UpdateStatus transitions one article's processing status.
func (s *ArticleStorage) UpdateStatus(ctx context.Context, url string, status models.ArticleStatus) error {
	article, err := s.GetByURL(ctx, url)
	if err != nil {
		return err
	}
	article.Status = status
	if status == models.ArticleStatusFailed {
		article.RetryCount++
	}
	article.UpdatedAt = time.Now().UTC()

	if err := s.db.Store().Upsert(article.ID, article); err != nil {
		return fmt.Errorf("failed to update article status: %w", err)
	}
	return nil
}

// GetRecent returns articles published after the given time, newest
// first, truncated to limit.
func (s *ArticleStorage) GetRecent(ctx context.Context, since time.Time, limit int) ([]*models.Article, error) {
	var articles []*models.Article
	query := badgerhold.Where("PublishedAt").Ge(since).SortBy("PublishedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&articles, query); err != nil {
		return nil, fmt.Errorf("failed to query recent articles: %w", err)
	}
	return articles, nil
}

// Count returns the number of stored articles.
func (s *ArticleStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Article{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return int(count), nil
}
