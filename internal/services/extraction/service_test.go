package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// fakeLLM returns a canned response and records the last request.
type fakeLLM struct {
	response string
	err      error
	lastReq  *interfaces.GenerateRequest
}

func (f *fakeLLM) Generate(ctx context.Context, req *interfaces.GenerateRequest) (*interfaces.GenerateResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &interfaces.GenerateResponse{Text: f.response, Provider: "claude", Model: "claude-test"}, nil
}

func extractionConfig() *common.ExtractionConfig {
	return &common.ExtractionConfig{MaxTextChars: 2000, SaveConcurrency: 5}
}

func testArticle(content string) *models.Article {
	return models.NewArticle("https://news.example.com/a", "Miner lifts guidance", content, "test")
}

func TestExtractInsights_WellFormedResponse(t *testing.T) {
	llm := &fakeLLM{response: `{
		"industry_themes": ["mining", "commodities"],
		"stocks": [{"company_name": "BHP Group", "stock_code": "BHP", "market": "ASX"}],
		"sentiment": "positive",
		"summary": "Guidance raised on stronger iron ore pricing."
	}`}
	svc := NewService(llm, nil, extractionConfig(), nil)

	result, err := svc.ExtractInsights(context.Background(), testArticle("BHP lifted production guidance."))
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assert.Equal(t, []string{"mining", "commodities"}, result.IndustryThemes)
	require.Len(t, result.Stocks, 1)
	assert.Equal(t, "BHP", result.Stocks[0].StockCode)
	assert.Equal(t, "positive", result.Sentiment)
	assert.Equal(t, "claude-test", result.Model)
}

func TestExtractInsights_CodeFencedResponseParses(t *testing.T) {
	llm := &fakeLLM{response: "```json\n{\"industry_themes\":[],\"stocks\":[],\"sentiment\":\"neutral\",\"summary\":\"Quiet day.\"}\n```"}
	svc := NewService(llm, nil, extractionConfig(), nil)

	result, err := svc.ExtractInsights(context.Background(), testArticle("nothing much happened"))
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assert.Equal(t, "neutral", result.Sentiment)
}

func TestExtractInsights_MalformedResponseDegrades(t *testing.T) {
	llm := &fakeLLM{response: "I could not produce JSON, sorry. The article discusses ASX: BHP at length."}
	svc := NewService(llm, nil, extractionConfig(), nil)

	result, err := svc.ExtractInsights(context.Background(), testArticle("BHP article body"))
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Equal(t, "unknown", result.Sentiment)
	assert.Empty(t, result.IndustryThemes)
	assert.Equal(t, llm.response, result.RawResponse)
}

func TestExtractInsights_DegradedResultKeepsRegexTickers(t *testing.T) {
	llm := &fakeLLM{response: "not json at all"}
	svc := NewService(llm, nil, extractionConfig(), nil)

	article := testArticle("Strong results from ASX: BHP and NASDAQ: AAPL today. ASX: BHP again.")
	result, err := svc.ExtractInsights(context.Background(), article)
	require.NoError(t, err)
	require.True(t, result.Degraded)
	require.Len(t, result.Stocks, 2)
	assert.Equal(t, "BHP", result.Stocks[0].StockCode)
	assert.Equal(t, "ASX", result.Stocks[0].Market)
	assert.Equal(t, "AAPL", result.Stocks[1].StockCode)
}

func TestExtractInsights_TransportErrorIsError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("connection refused")}
	svc := NewService(llm, nil, extractionConfig(), nil)

	_, err := svc.ExtractInsights(context.Background(), testArticle("body"))
	require.Error(t, err)
}

func TestExtractInsights_LongArticleTruncated(t *testing.T) {
	llm := &fakeLLM{response: `{"industry_themes":[],"stocks":[],"sentiment":"neutral","summary":"ok"}`}
	svc := NewService(llm, nil, extractionConfig(), nil)

	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	_, err := svc.ExtractInsights(context.Background(), testArticle(string(long)))
	require.NoError(t, err)

	require.Len(t, llm.lastReq.Messages, 1)
	// title + framing + 2000 chars of body
	assert.Less(t, len(llm.lastReq.Messages[0].Content), 2200)
	assert.NotNil(t, llm.lastReq.OutputSchema)
}

func TestParsePayload_ProseWrappedJSON(t *testing.T) {
	payload, err := parsePayload(`Here is the analysis you asked for:
{"industry_themes":["banking"],"stocks":[],"sentiment":"negative","summary":"Margins compressed."}
Let me know if you need more.`)
	require.NoError(t, err)
	assert.Equal(t, "negative", payload.Sentiment)
}

func TestParsePayload_EmptyObjectRejected(t *testing.T) {
	_, err := parsePayload(`{}`)
	require.Error(t, err)
}
