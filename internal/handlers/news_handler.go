package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
)

// NewsHandler exposes on-demand fetching and recent-article queries.
type NewsHandler struct {
	fetcher  interfaces.FetcherService
	articles interfaces.ArticleStorage
	logger   arbor.ILogger
}

func NewNewsHandler(fetcher interfaces.FetcherService, articles interfaces.ArticleStorage, logger arbor.ILogger) *NewsHandler {
	return &NewsHandler{
		fetcher:  fetcher,
		articles: articles,
		logger:   logger,
	}
}

type fetchNewsRequest struct {
	MaxAgeHours int `json:"max_age_hours"`
	MaxArticles int `json:"max_articles"`
}

// FetchHandler fetches, extracts and stores recent news.
func (h *NewsHandler) FetchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req fetchNewsRequest
	if r.ContentLength > 0 && !DecodeBody(w, r, &req) {
		return
	}

	opts := interfaces.FetchOptions{MaxArticles: req.MaxArticles}
	if req.MaxAgeHours > 0 {
		opts.MaxAge = time.Duration(req.MaxAgeHours) * time.Hour
	}

	result, err := h.fetcher.FetchNews(r.Context(), opts)
	if err != nil {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	saved := 0
	for _, article := range result.Articles {
		if err := h.articles.UpsertByURL(r.Context(), article); err != nil {
			h.logger.Warn().Err(err).Str("url", article.URL).Msg("Failed to store fetched article")
			continue
		}
		saved++
	}

	WriteData(w, map[string]interface{}{
		"fetched":  len(result.Articles),
		"saved":    saved,
		"failures": result.Failures,
	})
}

// RecentHandler returns articles stored within the query window.
func (h *NewsHandler) RecentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	hours := queryInt(r, "hours", 24)
	limit := queryInt(r, "limit", 50)

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	articles, err := h.articles.GetRecent(r.Context(), since, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteData(w, map[string]interface{}{
		"count":    len(articles),
		"articles": articles,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
