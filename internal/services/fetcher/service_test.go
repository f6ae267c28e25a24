package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// fakeExtractor returns canned text per URL and fails listed URLs.
type fakeExtractor struct {
	texts map[string]string
	fail  map[string]bool
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) (string, string, error) {
	if f.fail[url] {
		return "", "", errors.New("article fetch returned status 404")
	}
	if text, ok := f.texts[url]; ok {
		return "Extracted Title", text, nil
	}
	return "Extracted Title", "default article body text", nil
}

func feedConfig(sources ...common.FeedSource) *common.FeedsConfig {
	return &common.FeedsConfig{
		Sources:          sources,
		MaxAgeHours:      24,
		MaxArticles:      50,
		FetchConcurrency: 4,
	}
}

func rssDocument(items ...string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Test Feed</title>%s</channel></rss>`, strings.Join(items, ""))
}

func rssItem(title, link string, published time.Time) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><pubDate>%s</pubDate><description>summary of %s</description></item>`,
		title, link, published.Format(time.RFC1123Z), title)
}

func TestFetchNews_DeadLinkBecomesFailureNotError(t *testing.T) {
	now := time.Now().UTC()
	feedXML := rssDocument(
		rssItem("Rates outlook", "https://news.example.com/a", now.Add(-1*time.Hour)),
		rssItem("Tech earnings", "https://news.example.com/b", now.Add(-2*time.Hour)),
		rssItem("Gone story", "https://news.example.com/dead", now.Add(-3*time.Hour)),
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feedXML))
	}))
	defer server.Close()

	extractor := &fakeExtractor{
		texts: map[string]string{
			"https://news.example.com/a": "full text of rates outlook",
			"https://news.example.com/b": "full text of tech earnings",
		},
		fail: map[string]bool{"https://news.example.com/dead": true},
	}

	svc := NewService(feedConfig(common.FeedSource{Name: "test", URL: server.URL}), extractor, nil)

	result, err := svc.FetchNews(context.Background(), interfaces.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, result.Articles, 2)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "https://news.example.com/dead", result.Failures[0].URL)
	assert.Contains(t, result.Failures[0].Reason, "404")
}

func TestFetchNews_UnreachableFeedSkipped(t *testing.T) {
	now := time.Now().UTC()
	feedXML := rssDocument(rssItem("Only story", "https://news.example.com/a", now.Add(-1*time.Hour)))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feedXML))
	}))
	defer server.Close()

	svc := NewService(feedConfig(
		common.FeedSource{Name: "good", URL: server.URL},
		common.FeedSource{Name: "bad", URL: "http://127.0.0.1:1/feed.xml"},
	), &fakeExtractor{}, nil)

	result, err := svc.FetchNews(context.Background(), interfaces.FetchOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Articles, 1)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "bad", result.Failures[0].Source)
}

func TestFetchNews_OldEntriesCutOff(t *testing.T) {
	now := time.Now().UTC()
	feedXML := rssDocument(
		rssItem("Fresh", "https://news.example.com/fresh", now.Add(-1*time.Hour)),
		rssItem("Stale", "https://news.example.com/stale", now.Add(-72*time.Hour)),
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feedXML))
	}))
	defer server.Close()

	svc := NewService(feedConfig(common.FeedSource{Name: "test", URL: server.URL}), &fakeExtractor{}, nil)

	result, err := svc.FetchNews(context.Background(), interfaces.FetchOptions{MaxAge: 24 * time.Hour})
	require.NoError(t, err)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "https://news.example.com/fresh", result.Articles[0].URL)
}

func TestFetchNews_SortedNewestFirstAndTruncated(t *testing.T) {
	now := time.Now().UTC()
	feedXML := rssDocument(
		rssItem("Oldest", "https://news.example.com/1", now.Add(-5*time.Hour)),
		rssItem("Newest", "https://news.example.com/2", now.Add(-1*time.Hour)),
		rssItem("Middle", "https://news.example.com/3", now.Add(-3*time.Hour)),
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feedXML))
	}))
	defer server.Close()

	extractor := &fakeExtractor{texts: map[string]string{
		"https://news.example.com/1": "body one",
		"https://news.example.com/2": "body two",
		"https://news.example.com/3": "body three",
	}}

	svc := NewService(feedConfig(common.FeedSource{Name: "test", URL: server.URL}), extractor, nil)

	result, err := svc.FetchNews(context.Background(), interfaces.FetchOptions{MaxArticles: 2})
	require.NoError(t, err)
	require.Len(t, result.Articles, 2)
	assert.Equal(t, "Newest", result.Articles[0].Title)
	assert.Equal(t, "Middle", result.Articles[1].Title)
}

func TestDedupeArticles(t *testing.T) {
	a := models.NewArticle("https://news.example.com/a", "Story", "same body", "one")
	b := models.NewArticle("https://news.example.com/a", "Story", "same body", "one")
	c := models.NewArticle("https://other.example.com/b", "Story", "same body", "two")
	d := models.NewArticle("https://other.example.com/c", "Different", "other body", "two")

	deduped := dedupeArticles([]*models.Article{a, b, c, d})
	require.Len(t, deduped, 2)
	assert.Equal(t, "https://news.example.com/a", deduped[0].URL)
	assert.Equal(t, "https://other.example.com/c", deduped[1].URL)
}

func TestExtractor_TitleAndMarkdown(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head><title>Page Title</title></head>
<body>
<nav>site nav</nav>
<article><h1>Earnings beat expectations</h1><p>Revenue grew twelve percent year on year.</p></article>
<footer>footer junk</footer>
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	}))
	defer server.Close()

	extractor := NewExtractor(&common.FeedsConfig{MinTextLength: 0}, nil)

	title, text, err := extractor.Extract(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Page Title", title)
	assert.Contains(t, text, "Earnings beat expectations")
	assert.Contains(t, text, "Revenue grew twelve percent")
	assert.NotContains(t, text, "site nav")
	assert.NotContains(t, text, "footer junk")
}

func TestExtractor_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	extractor := NewExtractor(&common.FeedsConfig{}, nil)

	_, _, err := extractor.Extract(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
