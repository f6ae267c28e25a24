package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

const dataAgentRole = `You are a financial data agent. You gather raw material: news articles, quotes, index levels and reference data. You do not editorialize; you collect and report.`

// NewDataAgent builds the data-gathering agent. Its toolset covers
// feed fetching, quotes and stored article lookup.
func NewDataAgent(
	config *common.AgentsConfig,
	llm interfaces.LLMService,
	fetcher interfaces.FetcherService,
	market interfaces.MarketDataService,
	articles interfaces.ArticleStorage,
	memory *MemoryManager,
	logger arbor.ILogger,
) *BaseAgent {
	tools := NewToolRegistry()

	tools.Register(&Tool{
		Name:        "fetch_news",
		Description: "Fetch fresh articles from the configured news feeds.",
		Params: objectSchema(map[string]interface{}{
			"max_articles": map[string]interface{}{"type": "number"},
		}),
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			opts := interfaces.FetchOptions{}
			if n, ok := numberParam(params, "max_articles"); ok {
				opts.MaxArticles = n
			}
			result, err := fetcher.FetchNews(ctx, opts)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Fetched %d articles (%d failures). Titles: %s",
				len(result.Articles), len(result.Failures), articleTitles(result.Articles, 10)), nil
		},
	})

	tools.Register(&Tool{
		Name:        "get_quotes",
		Description: "Get latest quotes for one or more symbols like \"AAPL.US\".",
		Params: objectSchema(map[string]interface{}{
			"symbols": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		}, "symbols"),
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			symbols := stringSliceParam(params, "symbols")
			if len(symbols) == 0 {
				return "", fmt.Errorf("symbols parameter is required")
			}
			quotes, err := market.GetQuotes(ctx, symbols)
			if err != nil {
				return "", err
			}
			return jsonObservation(quotes)
		},
	})

	tools.Register(&Tool{
		Name:        "get_market_summary",
		Description: "Get current benchmark index levels.",
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			levels, err := market.GetMarketSummary(ctx)
			if err != nil {
				return "", err
			}
			return jsonObservation(levels)
		},
	})

	tools.Register(&Tool{
		Name:        "get_company_info",
		Description: "Get reference data for one symbol.",
		Params: objectSchema(map[string]interface{}{
			"symbol": map[string]interface{}{"type": "string"},
		}, "symbol"),
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			symbol, _ := params["symbol"].(string)
			if symbol == "" {
				return "", fmt.Errorf("symbol parameter is required")
			}
			info, err := market.GetCompanyInfo(ctx, symbol)
			if err != nil {
				return "", err
			}
			return jsonObservation(info)
		},
	})

	tools.Register(&Tool{
		Name:        "get_recent_articles",
		Description: "List stored articles from the last N hours. Defaults: hours 24, limit 20.",
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
			recent, err := articles.GetRecent(ctx, time.Now().UTC().Add(-time.Duration(hours)*time.Hour), limit)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d stored articles: %s", len(recent), articleTitles(recent, limit)), nil
		},
	})

	return NewBaseAgent("data_agent", dataAgentRole, llm, tools, memory, config.MaxIterations, logger)
}

func articleTitles(articles []*models.Article, limit int) string {
	titles := make([]string, 0, limit)
	for i, article := range articles {
		if i >= limit {
			break
		}
		titles = append(titles, article.Title)
	}
	return strings.Join(titles, "; ")
}

func jsonObservation(v interface{}) (string, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode observation: %w", err)
	}
	return string(encoded), nil
}

func numberParam(params map[string]interface{}, key string) (int, bool) {
	switch v := params[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func stringSliceParam(params map[string]interface{}, key string) []string {
	raw, ok := params[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
