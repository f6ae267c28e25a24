package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"golang.org/x/sync/errgroup"
)

const extractionSystem = `You are a financial news analyst. Extract structured insights from the article.
Respond with a JSON object containing:
- industry_themes: array of industry or macro themes the article touches
- stocks: array of objects {company_name, stock_code, market} for each listed company mentioned
- sentiment: one of "positive", "negative", "neutral", "mixed"
- summary: two or three sentence summary of the investment-relevant content`

// tickerRegex matches exchange-qualified codes like "ASX: BHP" or
// "NASDAQ:AAPL" in plain text.
var tickerRegex = regexp.MustCompile(`\b(ASX|NYSE|NASDAQ|LSE|TSX|HKEX)\s*:\s*([A-Z]{1,6})\b`)

// extractionSchema is the structured-output contract sent to the model.
var extractionSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"industry_themes": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"stocks": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"company_name": map[string]interface{}{"type": "string"},
					"stock_code":   map[string]interface{}{"type": "string"},
					"market":       map[string]interface{}{"type": "string"},
				},
				"required": []string{"company_name", "stock_code"},
			},
		},
		"sentiment": map[string]interface{}{
			"type": "string",
			"enum": []string{"positive", "negative", "neutral", "mixed"},
		},
		"summary": map[string]interface{}{"type": "string"},
	},
	"required": []string{"industry_themes", "stocks", "sentiment", "summary"},
}

// extractionPayload is the wire shape of a well-formed model response.
type extractionPayload struct {
	IndustryThemes []string              `json:"industry_themes"`
	Stocks         []models.StockMention `json:"stocks"`
	Sentiment      string                `json:"sentiment"`
	Summary        string                `json:"summary"`
}

// Service extracts structured insight from article text via the LLM.
// A response that violates the JSON contract degrades to a fallback
// result carrying the raw output; it is never an error.
type Service struct {
	llm     interfaces.LLMService
	storage interfaces.AnalysisStorage
	config  *common.ExtractionConfig
	logger  arbor.ILogger
}

// NewService creates an extraction service.
func NewService(llm interfaces.LLMService, storage interfaces.AnalysisStorage, config *common.ExtractionConfig, logger arbor.ILogger) *Service {
	return &Service{
		llm:     llm,
		storage: storage,
		config:  config,
		logger:  logger,
	}
}

// ExtractInsights runs one article through the model. Transport
// failures return an error; an unparsable response returns a degraded
// result with Sentiment "unknown" and the raw text preserved.
func (s *Service) ExtractInsights(ctx context.Context, article *models.Article) (*models.ExtractionResult, error) {
	text := article.Content
	if len(text) > s.config.MaxTextChars {
		text = text[:s.config.MaxTextChars]
	}

	resp, err := s.llm.Generate(ctx, &interfaces.GenerateRequest{
		SystemInstruction: extractionSystem,
		Messages: []interfaces.Message{
			{Role: "user", Content: fmt.Sprintf("Title: %s\n\nArticle:\n%s", article.Title, text)},
		},
		OutputSchema: extractionSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction generation failed: %w", err)
	}

	payload, parseErr := parsePayload(resp.Text)
	if parseErr != nil {
		if s.logger != nil {
			s.logger.Warn().
				Err(parseErr).
				Str("url", article.URL).
				Msg("Unparsable extraction response, degrading")
		}
		result := models.DegradedExtractionResult(article.URL, resp.Text)
		result.Stocks = fallbackTickers(article.Title + " " + text)
		result.Model = resp.Model
		return result, nil
	}

	result := models.NewExtractionResult(article.URL)
	result.IndustryThemes = payload.IndustryThemes
	result.Stocks = payload.Stocks
	result.Sentiment = payload.Sentiment
	result.Summary = payload.Summary
	result.Model = resp.Model
	if result.IndustryThemes == nil {
		result.IndustryThemes = []string{}
	}
	if result.Stocks == nil {
		result.Stocks = []models.StockMention{}
	}
	return result, nil
}

// ExtractBatch extracts every article concurrently and persists each
// result. An article whose extraction errors is logged and skipped.
func (s *Service) ExtractBatch(ctx context.Context, articles []*models.Article) []*models.ExtractionResult {
	var (
		mu      sync.Mutex
		results []*models.ExtractionResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.SaveConcurrency)

	for _, article := range articles {
		article := article
		g.Go(func() error {
			result, err := s.ExtractInsights(gctx, article)
			if err != nil {
				if s.logger != nil {
					s.logger.Warn().Err(err).Str("url", article.URL).Msg("Extraction failed, skipping article")
				}
				return nil
			}
			if s.storage != nil {
				if err := s.storage.Save(gctx, result); err != nil && s.logger != nil {
					s.logger.Error().Err(err).Str("url", article.URL).Msg("Failed to save extraction result")
				}
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}

	g.Wait()
	return results
}

// parsePayload tolerates code fences and prose around the JSON object.
func parsePayload(raw string) (*extractionPayload, error) {
	cleaned := stripCodeFences(raw)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}
	if payload.Sentiment == "" && payload.Summary == "" && len(payload.Stocks) == 0 && len(payload.IndustryThemes) == 0 {
		return nil, fmt.Errorf("extraction JSON carries no recognized fields")
	}
	return &payload, nil
}

func stripCodeFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
	}
	return strings.TrimSpace(cleaned)
}

// fallbackTickers scrapes exchange-qualified codes out of plain text
// so a degraded result still surfaces the obviously mentioned stocks.
func fallbackTickers(text string) []models.StockMention {
	matches := tickerRegex.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	stocks := make([]models.StockMention, 0, len(matches))
	for _, m := range matches {
		code := m[2]
		if seen[code] {
			continue
		}
		seen[code] = true
		stocks = append(stocks, models.StockMention{
			StockCode: code,
			Market:    m[1],
		})
	}
	return stocks
}

var _ interfaces.ExtractionService = (*Service)(nil)
