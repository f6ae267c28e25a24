package embeddings

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

const defaultEmbeddingModel = "gemini-embedding-001"

// Service computes embedding vectors via the Gemini API and stores
// them keyed by content hash so unchanged text is never re-embedded.
type Service struct {
	config  *common.EmbeddingsConfig
	apiKey  string
	storage interfaces.VectorStorage
	logger  arbor.ILogger

	mu     sync.Mutex
	client *genai.Client
}

// NewService creates an embedding service. The Gemini client is
// created lazily on first use.
func NewService(config *common.EmbeddingsConfig, apiKey string, storage interfaces.VectorStorage, logger arbor.ILogger) *Service {
	return &Service{
		config:  config,
		apiKey:  apiKey,
		storage: storage,
		logger:  logger,
	}
}

func (s *Service) getClient(ctx context.Context) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	if s.apiKey == "" {
		return nil, fmt.Errorf("embeddings require a Gemini API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	s.client = client
	return client, nil
}

func (s *Service) model() string {
	if s.config.Model != "" {
		return s.config.Model
	}
	return defaultEmbeddingModel
}

// EmbedText returns the embedding vector for one text.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.Models.EmbedContent(ctx, s.model(),
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embedding API returned no values")
	}

	return resp.Embeddings[0].Values, nil
}

// EmbedArticles embeds each article's title and content, skipping
// articles whose content hash already has a stored vector. Returns
// the number of vectors stored.
func (s *Service) EmbedArticles(ctx context.Context, articles []*models.Article) (int, error) {
	if !s.config.Enabled {
		return 0, nil
	}

	var stored atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	for _, article := range articles {
		article := article
		g.Go(func() error {
			exists, err := s.storage.ExistsByHash(gctx, article.ContentHash)
			if err != nil {
				return fmt.Errorf("failed to check vector for %s: %w", article.URL, err)
			}
			if exists {
				return nil
			}

			vector, err := s.EmbedText(gctx, article.Title+"\n\n"+article.Content)
			if err != nil {
				if s.logger != nil {
					s.logger.Warn().Err(err).Str("url", article.URL).Msg("Failed to embed article, skipping")
				}
				return nil
			}

			record := models.NewVectorRecord("article", article.URL, article.ContentHash, vector, s.model())
			if err := s.storage.Save(gctx, record); err != nil {
				return fmt.Errorf("failed to save vector for %s: %w", article.URL, err)
			}

			stored.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(stored.Load()), err
	}

	if s.logger != nil {
		s.logger.Info().
			Int("articles", len(articles)).
			Int64("stored", stored.Load()).
			Msg("Article embedding complete")
	}
	return int(stored.Load()), nil
}

var _ interfaces.EmbeddingService = (*Service)(nil)
