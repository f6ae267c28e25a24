package report

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

func testInput() *interfaces.ReportInput {
	article := models.NewArticle("https://news.example.com/a", "Miner lifts guidance", "body", "reuters")
	article.PublishedAt = time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	ext := models.NewExtractionResult(article.URL)
	ext.Summary = "Guidance raised on stronger pricing."
	ext.Sentiment = "positive"
	ext.Stocks = []models.StockMention{{CompanyName: "BHP Group", StockCode: "BHP", Market: "ASX"}}

	return &interfaces.ReportInput{
		Articles:    []*models.Article{article},
		Extractions: []*models.ExtractionResult{ext},
		Quotes: map[string]*models.Quote{
			"BHP.AU": {Symbol: "BHP.AU", Price: 45.2, ChangePercent: 1.1, Volume: 3_000_000},
		},
		Indices: []models.IndexLevel{{Symbol: "GSPC.INDX", Name: "S&P 500", Level: 5900, Change: 12.5, ChangePercent: 0.21}},
		Sectors: []models.SectorPerf{{Sector: "Energy", ChangePercent: 1.8}},
		Macro:   []models.MacroIndicator{{Name: "US 10Y Treasury Yield", Value: 4.25, Unit: "%"}},
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(&common.ReportConfig{OutputDir: t.TempDir()}, nil)
}

func TestWriteReport_SectionsAndFilename(t *testing.T) {
	svc := newTestService(t)

	report, err := svc.WriteReport(context.Background(), testInput())
	require.NoError(t, err)
	assert.Regexp(t, `^research_\d{8}_\d{6}\.md$`, report.Name)
	assert.NotEmpty(t, report.Digest)

	content, err := os.ReadFile(report.Path)
	require.NoError(t, err)
	body := string(content)
	assert.Contains(t, body, "# Investment Research Report")
	assert.Contains(t, body, "## Market Summary")
	assert.Contains(t, body, "S&P 500")
	assert.Contains(t, body, "## Watchlist")
	assert.Contains(t, body, "## Sector Performance")
	assert.Contains(t, body, "## Macro Indicators")
	assert.Contains(t, body, "### Miner lifts guidance")
	assert.Contains(t, body, "**Stocks:** BHP")
	assert.Contains(t, body, "**Sentiment:** positive")
}

func TestWriteReport_EmptySectionsOmitted(t *testing.T) {
	svc := newTestService(t)

	report, err := svc.WriteReport(context.Background(), &interfaces.ReportInput{})
	require.NoError(t, err)

	content, err := os.ReadFile(report.Path)
	require.NoError(t, err)
	body := string(content)
	assert.NotContains(t, body, "## Market Summary")
	assert.NotContains(t, body, "## News Highlights")
}

func TestWriteReport_DegradedExtractionNoted(t *testing.T) {
	svc := newTestService(t)

	article := models.NewArticle("https://news.example.com/a", "Opaque story", "body", "test")
	input := &interfaces.ReportInput{
		Articles:    []*models.Article{article},
		Extractions: []*models.ExtractionResult{models.DegradedExtractionResult(article.URL, "raw")},
	}

	report, err := svc.WriteReport(context.Background(), input)
	require.NoError(t, err)

	content, err := os.ReadFile(report.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Structured extraction unavailable")
}

func TestRenderHTML(t *testing.T) {
	svc := newTestService(t)

	report, err := svc.WriteReport(context.Background(), testInput())
	require.NoError(t, err)

	html, err := svc.RenderHTML(report.Name)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1")
	assert.Contains(t, string(html), "<table>")
}

func TestRenderHTML_PathTraversalRejected(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RenderHTML("../../../etc/passwd")
	require.Error(t, err)
}

func TestRenderPDF(t *testing.T) {
	svc := newTestService(t)

	report, err := svc.WriteReport(context.Background(), testInput())
	require.NoError(t, err)

	pdf, err := svc.RenderPDF(report.Name)
	require.NoError(t, err)
	assert.True(t, len(pdf) > 500)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestLatest(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Latest()
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	first, err := svc.WriteReport(context.Background(), testInput())
	require.NoError(t, err)

	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Equal(t, first.Name, latest.Name)
}
