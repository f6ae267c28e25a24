package fetcher

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"golang.org/x/sync/errgroup"
)

// feedItem is one candidate article discovered in a feed, before its
// full text is retrieved.
type feedItem struct {
	source      string
	url         string
	title       string
	author      string
	summary     string
	publishedAt time.Time
}

// Service fetches the configured feeds, extracts article text, and
// deduplicates the batch. One bad feed or one dead link never fails
// the batch; each failure is recorded in the result.
type Service struct {
	config    *common.FeedsConfig
	logger    arbor.ILogger
	parser    *gofeed.Parser
	extractor interfaces.ArticleExtractor
}

// NewService creates a fetcher service.
func NewService(config *common.FeedsConfig, extractor interfaces.ArticleExtractor, logger arbor.ILogger) *Service {
	parser := gofeed.NewParser()
	parser.UserAgent = extractorUserAgent
	return &Service{
		config:    config,
		logger:    logger,
		parser:    parser,
		extractor: extractor,
	}
}

// FetchNews fetches all configured feeds and returns deduplicated
// articles newer than the age cutoff, sorted newest first.
func (s *Service) FetchNews(ctx context.Context, opts interfaces.FetchOptions) (*models.FetchResult, error) {
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = time.Duration(s.config.MaxAgeHours) * time.Hour
	}
	maxArticles := opts.MaxArticles
	if maxArticles <= 0 {
		maxArticles = s.config.MaxArticles
	}
	cutoff := time.Now().UTC().Add(-maxAge)

	items, failures := s.collectFeedItems(ctx, cutoff)
	articles, extractFailures := s.extractArticles(ctx, items)
	failures = append(failures, extractFailures...)

	articles = dedupeArticles(articles)

	sort.Slice(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if len(articles) > maxArticles {
		articles = articles[:maxArticles]
	}

	if s.logger != nil {
		s.logger.Info().
			Int("articles", len(articles)).
			Int("failures", len(failures)).
			Msg("Fetch batch complete")
	}

	return &models.FetchResult{Articles: articles, Failures: failures}, nil
}

// collectFeedItems parses every configured feed concurrently. A feed
// that cannot be parsed contributes a failure record and nothing else.
func (s *Service) collectFeedItems(ctx context.Context, cutoff time.Time) ([]feedItem, []models.FetchFailure) {
	var (
		mu       sync.Mutex
		items    []feedItem
		failures []models.FetchFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.FetchConcurrency)

	for _, source := range s.config.Sources {
		source := source
		g.Go(func() error {
			feed, err := s.parser.ParseURLWithContext(source.URL, gctx)
			if err != nil {
				if s.logger != nil {
					s.logger.Warn().Err(err).Str("source", source.Name).Msg("Feed parse failed, skipping source")
				}
				mu.Lock()
				failures = append(failures, models.FetchFailure{
					Source: source.Name,
					URL:    source.URL,
					Reason: err.Error(),
					At:     time.Now().UTC(),
				})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, entry := range feed.Items {
				if entry.Link == "" {
					continue
				}
				publishedAt := itemTime(entry)
				if publishedAt.Before(cutoff) {
					continue
				}
				items = append(items, feedItem{
					source:      source.Name,
					url:         entry.Link,
					title:       entry.Title,
					author:      itemAuthor(entry),
					summary:     entry.Description,
					publishedAt: publishedAt,
				})
			}
			return nil
		})
	}

	g.Wait()
	return items, failures
}

// extractArticles retrieves full text for each candidate. A dead or
// unreadable link becomes a failure record, not an error.
func (s *Service) extractArticles(ctx context.Context, items []feedItem) ([]*models.Article, []models.FetchFailure) {
	var (
		mu       sync.Mutex
		articles []*models.Article
		failures []models.FetchFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.FetchConcurrency)

	for _, item := range items {
		item := item
		g.Go(func() error {
			title, text, err := s.extractor.Extract(gctx, item.url)
			if err != nil {
				if s.logger != nil {
					s.logger.Warn().Err(err).Str("url", item.url).Msg("Article extraction failed, skipping")
				}
				mu.Lock()
				failures = append(failures, models.FetchFailure{
					Source: item.source,
					URL:    item.url,
					Reason: err.Error(),
					At:     time.Now().UTC(),
				})
				mu.Unlock()
				return nil
			}

			if item.title != "" {
				title = item.title
			}
			if text == "" {
				text = item.summary
			}

			article := models.NewArticle(item.url, title, text, item.source)
			article.Author = item.author
			article.PublishedAt = item.publishedAt

			mu.Lock()
			articles = append(articles, article)
			mu.Unlock()
			return nil
		})
	}

	g.Wait()
	return articles, failures
}

// dedupeArticles drops repeats by URL and then by content hash, so the
// same story syndicated under two URLs survives only once.
func dedupeArticles(articles []*models.Article) []*models.Article {
	seenURL := make(map[string]bool, len(articles))
	seenHash := make(map[string]bool, len(articles))
	result := make([]*models.Article, 0, len(articles))

	for _, article := range articles {
		if seenURL[article.URL] || seenHash[article.ContentHash] {
			continue
		}
		seenURL[article.URL] = true
		seenHash[article.ContentHash] = true
		result = append(result, article)
	}
	return result
}

func itemTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC()
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC()
	}
	return time.Now().UTC()
}

func itemAuthor(entry *gofeed.Item) string {
	if len(entry.Authors) > 0 {
		return entry.Authors[0].Name
	}
	return ""
}

var _ interfaces.FetcherService = (*Service)(nil)
