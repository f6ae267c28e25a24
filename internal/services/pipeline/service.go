package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// Service runs the end-to-end research pipeline: fetch, persist,
// extract, embed, market data, report, notify. Market data and
// notification failures degrade the run; fetch or persistence
// failures abort it.
type Service struct {
	config     *common.Config
	fetcher    interfaces.FetcherService
	extraction interfaces.ExtractionService
	embeddings interfaces.EmbeddingService
	market     interfaces.MarketDataService
	report     interfaces.ReportService
	notify     interfaces.NotifyService
	storage    interfaces.StorageManager
	events     interfaces.EventService
	logger     arbor.ILogger
}

// NewService creates the pipeline service.
func NewService(
	config *common.Config,
	fetcher interfaces.FetcherService,
	extraction interfaces.ExtractionService,
	embeddings interfaces.EmbeddingService,
	market interfaces.MarketDataService,
	report interfaces.ReportService,
	notify interfaces.NotifyService,
	storage interfaces.StorageManager,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:     config,
		fetcher:    fetcher,
		extraction: extraction,
		embeddings: embeddings,
		market:     market,
		report:     report,
		notify:     notify,
		storage:    storage,
		events:     events,
		logger:     logger,
	}
}

// Run executes one full pipeline pass.
func (s *Service) Run(ctx context.Context) (*models.PipelineRun, error) {
	run := &models.PipelineRun{StartedAt: time.Now().UTC()}
	s.publish("pipeline_started", "Research pipeline started", nil)

	// Fetch and persist.
	fetched, err := s.fetcher.FetchNews(ctx, interfaces.FetchOptions{})
	if err != nil {
		return nil, fmt.Errorf("pipeline fetch failed: %w", err)
	}
	run.ArticleCount = len(fetched.Articles)
	run.Failures = fetched.Failures

	for _, article := range fetched.Articles {
		if err := s.storage.Articles().UpsertByURL(ctx, article); err != nil {
			return nil, fmt.Errorf("failed to persist article %s: %w", article.URL, err)
		}
		run.SavedCount++
	}
	s.publish("fetch_finished", fmt.Sprintf("Fetched %d articles", run.ArticleCount), nil)

	// Extract structured insight.
	results := s.extraction.ExtractBatch(ctx, fetched.Articles)
	run.ExtractedCount = len(results)
	for _, result := range results {
		if result.Degraded {
			run.DegradedCount++
		}
		status := models.ArticleStatusCompleted
		if result.Degraded {
			status = models.ArticleStatusSkipped
		}
		if err := s.storage.Articles().UpdateStatus(ctx, result.ArticleURL, status); err != nil && s.logger != nil {
			s.logger.Warn().Err(err).Str("url", result.ArticleURL).Msg("Failed to update article status")
		}
	}
	s.publish("extraction_finished", fmt.Sprintf("Extracted %d articles (%d degraded)", run.ExtractedCount, run.DegradedCount), nil)

	// Embeddings are best effort.
	if s.embeddings != nil {
		if _, err := s.embeddings.EmbedArticles(ctx, fetched.Articles); err != nil && s.logger != nil {
			s.logger.Warn().Err(err).Msg("Embedding stage failed, continuing")
		}
	}

	// Market data is best effort: a down quote API still yields a
	// news-only report.
	input := &interfaces.ReportInput{
		Articles:    fetched.Articles,
		Extractions: results,
	}
	s.gatherMarketData(ctx, input, run)

	// Report and notify.
	report, err := s.report.WriteReport(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	run.ReportPath = report.Path

	sent, err := s.notify.Notify(ctx, report.Digest, report)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn().Err(err).Msg("Notification failed, continuing")
		}
	}
	run.Notified = sent

	run.FinishedAt = time.Now().UTC()
	s.publish("pipeline_finished", fmt.Sprintf("Pipeline finished: %d articles, report %s", run.ArticleCount, report.Name), map[string]interface{}{
		"report": report.Name,
	})

	if s.logger != nil {
		s.logger.Info().
			Int("articles", run.ArticleCount).
			Int("extracted", run.ExtractedCount).
			Int("degraded", run.DegradedCount).
			Str("report", report.Path).
			Bool("notified", run.Notified).
			Dur("duration", run.FinishedAt.Sub(run.StartedAt)).
			Msg("Pipeline run complete")
	}
	return run, nil
}

func (s *Service) gatherMarketData(ctx context.Context, input *interfaces.ReportInput, run *models.PipelineRun) {
	if s.market == nil {
		return
	}

	if len(s.config.Market.Symbols) > 0 {
		quotes, err := s.market.GetQuotes(ctx, s.config.Market.Symbols)
		if err != nil {
			s.warn(err, "Quote fetch failed, report proceeds without watchlist")
		} else {
			input.Quotes = quotes
			run.SymbolCount = len(quotes)
		}
	}

	indices, err := s.market.GetMarketSummary(ctx)
	if err != nil {
		s.warn(err, "Market summary failed, report proceeds without indices")
	} else {
		input.Indices = indices
	}

	sectors, err := s.market.GetSectorPerformance(ctx)
	if err != nil {
		s.warn(err, "Sector performance failed, report proceeds without sectors")
	} else {
		input.Sectors = sectors
	}

	macro, err := s.market.GetMacroIndicators(ctx)
	if err != nil {
		s.warn(err, "Macro indicators failed, report proceeds without macro")
	} else {
		input.Macro = macro
	}
}

func (s *Service) warn(err error, msg string) {
	if s.logger != nil {
		s.logger.Warn().Err(err).Msg(msg)
	}
}

func (s *Service) publish(eventType, message string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(interfaces.Event{
		Type:      eventType,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

var _ interfaces.PipelineService = (*Service)(nil)
