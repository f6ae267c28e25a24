package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Service renders research reports to markdown files on disk, with
// HTML and PDF renditions on demand.
type Service struct {
	config *common.ReportConfig
	logger arbor.ILogger
	md     goldmark.Markdown
}

// NewService creates a report service writing into the configured
// output directory.
func NewService(config *common.ReportConfig, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		),
	}
}

// WriteReport renders the input to a timestamped markdown file.
func (s *Service) WriteReport(ctx context.Context, input *interfaces.ReportInput) (*models.Report, error) {
	if err := os.MkdirAll(s.config.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	now := time.Now().UTC()
	name := fmt.Sprintf("research_%s.md", now.Format("20060102_150405"))
	path := filepath.Join(s.config.OutputDir, name)

	content := renderMarkdown(input, now)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	report := &models.Report{
		Name:      name,
		Path:      path,
		Digest:    buildDigest(input, now),
		CreatedAt: now,
	}

	if s.logger != nil {
		s.logger.Info().
			Str("path", path).
			Int("articles", len(input.Articles)).
			Msg("Report written")
	}
	return report, nil
}

// RenderHTML returns the HTML rendition of a stored report.
func (s *Service) RenderHTML(name string) ([]byte, error) {
	source, err := s.readReport(name)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.md.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF returns the PDF rendition of a stored report.
func (s *Service) RenderPDF(name string) ([]byte, error) {
	source, err := s.readReport(name)
	if err != nil {
		return nil, err
	}
	return markdownToPDF(source)
}

// Latest returns the most recent report on disk.
func (s *Service) Latest() (*models.Report, error) {
	entries, err := os.ReadDir(s.config.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), "research_") && strings.HasSuffix(entry.Name(), ".md") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, interfaces.ErrNotFound
	}
	sort.Strings(names)

	name := names[len(names)-1]
	path := filepath.Join(s.config.OutputDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat report: %w", err)
	}

	return &models.Report{
		Name:      name,
		Path:      path,
		CreatedAt: info.ModTime().UTC(),
	}, nil
}

func (s *Service) readReport(name string) ([]byte, error) {
	// Reports live flat in the output dir; reject path traversal.
	if name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid report name: %s", name)
	}
	source, err := os.ReadFile(filepath.Join(s.config.OutputDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return source, nil
}

// renderMarkdown builds the report body. Sections with no data are
// omitted rather than rendered empty.
func renderMarkdown(input *interfaces.ReportInput, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Investment Research Report\n\n_Generated %s_\n\n", now.Format("2006-01-02 15:04 UTC"))

	if len(input.Indices) > 0 {
		b.WriteString("## Market Summary\n\n")
		b.WriteString("| Index | Level | Change | Change % |\n|---|---:|---:|---:|\n")
		for _, idx := range input.Indices {
			fmt.Fprintf(&b, "| %s | %.2f | %+.2f | %+.2f%% |\n", idx.Name, idx.Level, idx.Change, idx.ChangePercent)
		}
		b.WriteString("\n")
	}

	if len(input.Quotes) > 0 {
		b.WriteString("## Watchlist\n\n")
		b.WriteString("| Symbol | Price | Change % | Volume |\n|---|---:|---:|---:|\n")
		symbols := make([]string, 0, len(input.Quotes))
		for symbol := range input.Quotes {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			q := input.Quotes[symbol]
			fmt.Fprintf(&b, "| %s | %.2f | %+.2f%% | %d |\n", q.Symbol, q.Price, q.ChangePercent, q.Volume)
		}
		b.WriteString("\n")
	}

	if len(input.Sectors) > 0 {
		b.WriteString("## Sector Performance\n\n")
		b.WriteString("| Sector | Change % |\n|---|---:|\n")
		for _, sector := range input.Sectors {
			fmt.Fprintf(&b, "| %s | %+.2f%% |\n", sector.Sector, sector.ChangePercent)
		}
		b.WriteString("\n")
	}

	if len(input.Macro) > 0 {
		b.WriteString("## Macro Indicators\n\n")
		b.WriteString("| Indicator | Value | Unit |\n|---|---:|---|\n")
		for _, m := range input.Macro {
			fmt.Fprintf(&b, "| %s | %.2f | %s |\n", m.Name, m.Value, m.Unit)
		}
		b.WriteString("\n")
	}

	if len(input.Articles) > 0 {
		b.WriteString("## News Highlights\n\n")
		extractions := extractionsByURL(input.Extractions)
		for _, article := range input.Articles {
			fmt.Fprintf(&b, "### %s\n\n", article.Title)
			fmt.Fprintf(&b, "_%s, %s_\n\n", article.Source, article.PublishedAt.Format("2006-01-02 15:04"))
			if ext, ok := extractions[article.URL]; ok {
				if ext.Summary != "" {
					b.WriteString(ext.Summary + "\n\n")
				}
				if ext.Degraded {
					b.WriteString("_Structured extraction unavailable for this article._\n\n")
				}
				if len(ext.Stocks) > 0 {
					mentions := make([]string, 0, len(ext.Stocks))
					for _, stock := range ext.Stocks {
						mentions = append(mentions, stock.StockCode)
					}
					fmt.Fprintf(&b, "**Stocks:** %s\n\n", strings.Join(mentions, ", "))
				}
				if ext.Sentiment != "" {
					fmt.Fprintf(&b, "**Sentiment:** %s\n\n", ext.Sentiment)
				}
			}
			fmt.Fprintf(&b, "[Source](%s)\n\n", article.URL)
		}
	}

	return b.String()
}

// buildDigest produces the short text used for webhook notifications.
func buildDigest(input *interfaces.ReportInput, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research digest %s: %d articles", now.Format("2006-01-02"), len(input.Articles))

	sentiments := map[string]int{}
	for _, ext := range input.Extractions {
		if ext.Sentiment != "" && ext.Sentiment != "unknown" {
			sentiments[ext.Sentiment]++
		}
	}
	if len(sentiments) > 0 {
		keys := make([]string, 0, len(sentiments))
		for k := range sentiments {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%d %s", sentiments[k], k))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}

	for i, article := range input.Articles {
		if i >= 5 {
			break
		}
		b.WriteString("\n- " + article.Title)
	}
	return b.String()
}

func extractionsByURL(extractions []*models.ExtractionResult) map[string]*models.ExtractionResult {
	byURL := make(map[string]*models.ExtractionResult, len(extractions))
	for _, ext := range extractions {
		byURL[ext.ArticleURL] = ext
	}
	return byURL
}

var _ interfaces.ReportService = (*Service)(nil)
