package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

const analysisAgentRole = `You are a financial analysis agent. You turn gathered material into insight: themes, sentiment, sector moves and their implications for an investor. Be specific and cite which articles or data points support each claim.`

// NewAnalysisAgent builds the analysis agent. Its toolset covers
// structured extraction, stored analysis lookup, sector and macro
// reads, and memory recall.
func NewAnalysisAgent(
	config *common.AgentsConfig,
	llm interfaces.LLMService,
	extraction interfaces.ExtractionService,
	market interfaces.MarketDataService,
	articles interfaces.ArticleStorage,
	analysis interfaces.AnalysisStorage,
	memory *MemoryManager,
	logger arbor.ILogger,
) *BaseAgent {
	tools := NewToolRegistry()

	tools.Register(&Tool{
		Name:        "extract_insights",
		Description: "Run structured extraction over stored pending articles from the last N hours. Defaults: hours 24, limit 10.",
		Params: objectSchema(map[string]interface{}{
			"hours": map[string]interface{}{"type": "number"},
			"limit": map[string]interface{}{"type": "number"},
		}),
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			hours := 24
			if n, ok := numberParam(params, "hours"); ok {
				hours = n
			}
			limit := 10
			if n, ok := numberParam(params, "limit"); ok {
				limit = n
			}
			recent, err := articles.GetRecent(ctx, time.Now().UTC().Add(-time.Duration(hours)*time.Hour), limit)
			if err != nil {
				return "", err
			}
			pending := make([]*models.Article, 0, len(recent))
			for _, article := range recent {
				if article.Status == models.ArticleStatusPending {
					pending = append(pending, article)
				}
			}
			results := extraction.ExtractBatch(ctx, pending)
			degraded := 0
			for _, r := range results {
				if r.Degraded {
					degraded++
				}
			}
			return fmt.Sprintf("Extracted insights from %d articles (%d degraded)", len(results), degraded), nil
		},
	})

	tools.Register(&Tool{
		Name:        "get_recent_analysis",
		Description: "List stored extraction results from the last N hours. Defaults: hours 24, limit 20.",
		Params: objectSchema(map[string]interface{}{
			"hours": map[string]interface{}{"type": "number"},
			"limit": map[string]interface{}{"type": "number"},
		}),
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			hours := 24
			if n, ok := numberParam(params, "hours"); ok {
				hours = n
			}
			limit := 20
			if n, ok := numberParam(params, "limit"); ok {
				limit = n
			}
			results, err := analysis.GetRecent(ctx, time.Now().UTC().Add(-time.Duration(hours)*time.Hour), limit)
			if err != nil {
				return "", err
			}
			return jsonObservation(results)
		},
	})

	tools.Register(&Tool{
		Name:        "get_sector_performance",
		Description: "Get today's sector moves.",
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			perf, err := market.GetSectorPerformance(ctx)
			if err != nil {
				return "", err
			}
			return jsonObservation(perf)
		},
	})

	tools.Register(&Tool{
		Name:        "get_macro_indicators",
		Description: "Get current macro readings (rates, fx, commodities).",
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			indicators, err := market.GetMacroIndicators(ctx)
			if err != nil {
				return "", err
			}
			return jsonObservation(indicators)
		},
	})

	tools.Register(&Tool{
		Name:        "recall_memory",
		Description: "Recall relevant prior findings and conversations. Default limit 5.",
		Params: objectSchema(map[string]interface{}{
			"query": map[string]interface{}{"type": "string"},
			"limit": map[string]interface{}{"type": "number"},
		}, "query"),
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			query, _ := params["query"].(string)
			if query == "" {
				return "", fmt.Errorf("query parameter is required")
			}
			limit := 5
			if n, ok := numberParam(params, "limit"); ok {
				limit = n
			}
			entries := memory.Recall(query, limit)
			if len(entries) == 0 {
				return "No relevant memory found", nil
			}
			return jsonObservation(entries)
		},
	})

	return NewBaseAgent("analysis_agent", analysisAgentRole, llm, tools, memory, config.MaxIterations, logger)
}
