package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

const extractorUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

var (
	spaceRegex   = regexp.MustCompile(`[ \t]+`)
	newlineRegex = regexp.MustCompile(`\n{3,}`)
)

// Extractor retrieves the full text of an article page. A plain HTTP
// fetch is tried first; pages that come back thinner than the
// configured minimum are retried through a headless browser when the
// render fallback is enabled.
type Extractor struct {
	config     *common.FeedsConfig
	logger     arbor.ILogger
	httpClient *http.Client
	converter  *md.Converter
}

// NewExtractor creates an article extractor.
func NewExtractor(config *common.FeedsConfig, logger arbor.ILogger) *Extractor {
	return &Extractor{
		config: config,
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		converter: md.NewConverter("", true, nil),
	}
}

// Extract fetches url and returns the page title and article text as
// markdown.
func (e *Extractor) Extract(ctx context.Context, url string) (string, string, error) {
	html, err := e.fetchHTML(ctx, url)
	if err != nil {
		return "", "", err
	}

	title, text, err := e.extractFromHTML(html)
	if err != nil {
		return "", "", err
	}

	if len(text) < e.config.MinTextLength && e.config.RenderFallback {
		if e.logger != nil {
			e.logger.Debug().
				Str("url", url).
				Int("text_length", len(text)).
				Msg("Thin extraction, retrying with headless render")
		}
		rendered, renderErr := e.renderHTML(ctx, url)
		if renderErr == nil {
			if rTitle, rText, rErr := e.extractFromHTML(rendered); rErr == nil && len(rText) > len(text) {
				title, text = rTitle, rText
			}
		} else if e.logger != nil {
			e.logger.Warn().Err(renderErr).Str("url", url).Msg("Headless render failed")
		}
	}

	return title, text, nil
}

func (e *Extractor) fetchHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", extractorUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("article fetch returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(strings.ToLower(contentType), "text/html") {
		return "", fmt.Errorf("unsupported content type: %s", contentType)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse article HTML: %w", err)
	}

	html, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize article HTML: %w", err)
	}
	return html, nil
}

// extractFromHTML pulls the title and main content out of a page.
func (e *Extractor) extractFromHTML(html string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("meta[property='og:title']").AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find("script, style, noscript").Remove()
	doc.Find("nav, header, footer, aside").Remove()
	doc.Find("[class*=ad], [id*=ad], [class*=promo], [class*=sidebar]").Remove()

	content := doc.Find("main, article, [role=main]").First()
	if content.Length() == 0 {
		content = doc.Find("body")
	}
	if content.Length() == 0 {
		return title, "", nil
	}

	contentHTML, err := goquery.OuterHtml(content)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract content HTML: %w", err)
	}

	markdown, err := e.converter.ConvertString(contentHTML)
	if err != nil {
		return "", "", fmt.Errorf("failed to convert to markdown: %w", err)
	}

	return title, cleanWhitespace(markdown), nil
}

// renderHTML loads the page in a headless browser and returns the
// rendered DOM. Used for pages that build their content with
// JavaScript.
func (e *Extractor) renderHTML(ctx context.Context, url string) (string, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(extractorUserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocatorCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	defer browserCancel()

	pageCtx, pageCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer pageCancel()

	var html string
	err := chromedp.Run(pageCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("headless render failed: %w", err)
	}
	return html, nil
}

func cleanWhitespace(text string) string {
	text = spaceRegex.ReplaceAllString(text, " ")
	text = newlineRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

var _ interfaces.ArticleExtractor = (*Extractor)(nil)
