package models

import (
	"time"

	"github.com/google/uuid"
)

// StockMention is one stock identified in an article.
type StockMention struct {
	CompanyName string `json:"company_name"`
	StockCode   string `json:"stock_code"`
	Market      string `json:"market"`
}

// ExtractionResult holds the structured fields extracted from one
// article by the LLM. When the model response could not be parsed the
// structured fields are empty, Sentiment is "unknown", Degraded is set
// and RawResponse preserves the model output verbatim for audit.
type ExtractionResult struct {
	ID             string         `json:"id" badgerhold:"key"`
	ArticleURL     string         `json:"article_url" badgerhold:"index"`
	IndustryThemes []string       `json:"industry_themes"`
	Stocks         []StockMention `json:"stocks"`
	Sentiment      string         `json:"sentiment"`
	Summary        string         `json:"summary"`
	RawResponse    string         `json:"raw_response,omitempty"`
	Degraded       bool           `json:"degraded"`
	Model          string         `json:"model,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NewExtractionResult creates an empty result bound to an article.
func NewExtractionResult(articleURL string) *ExtractionResult {
	return &ExtractionResult{
		ID:             "extract_" + uuid.New().String(),
		ArticleURL:     articleURL,
		IndustryThemes: []string{},
		Stocks:         []StockMention{},
		CreatedAt:      time.Now().UTC(),
	}
}

// DegradedExtractionResult builds the fallback result for an
// unparsable model response. The raw text is kept untouched.
func DegradedExtractionResult(articleURL, raw string) *ExtractionResult {
	r := NewExtractionResult(articleURL)
	r.Sentiment = "unknown"
	r.RawResponse = raw
	r.Degraded = true
	return r
}
