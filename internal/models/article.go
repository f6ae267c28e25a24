package models

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// ArticleStatus tracks an article through the extraction pipeline.
type ArticleStatus string

const (
	ArticleStatusPending    ArticleStatus = "pending"
	ArticleStatusProcessing ArticleStatus = "processing"
	ArticleStatusCompleted  ArticleStatus = "completed"
	ArticleStatusFailed     ArticleStatus = "failed"
	ArticleStatusSkipped    ArticleStatus = "skipped"
)

// Article represents one fetched news item with extracted full text.
// URL is the natural key: re-fetching the same URL updates the stored
// record in place, it never duplicates.
type Article struct {
	ID          string        `json:"id" badgerhold:"key"`
	URL         string        `json:"url" badgerhold:"unique"`
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	Source      string        `json:"source"`
	Author      string        `json:"author,omitempty"`
	PublishedAt time.Time     `json:"published_at"`
	FetchedAt   time.Time     `json:"fetched_at"`
	ContentHash string        `json:"content_hash"`
	Status      ArticleStatus `json:"status"`
	RetryCount  int           `json:"retry_count"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewArticle creates a pending article with its content hash computed.
func NewArticle(url, title, content, source string) *Article {
	now := time.Now().UTC()
	return &Article{
		ID:          "article_" + uuid.New().String(),
		URL:         url,
		Title:       title,
		Content:     content,
		Source:      source,
		FetchedAt:   now,
		ContentHash: HashContent(title, content),
		Status:      ArticleStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HashContent returns the md5 hex digest of title+content, used for
// dedup when two sources publish the same story under different URLs.
func HashContent(title, content string) string {
	sum := md5.Sum([]byte(title + content))
	return hex.EncodeToString(sum[:])
}

// FetchFailure records a single feed or article failure during a fetch
// batch. Failures are collected, never raised.
type FetchFailure struct {
	Source string    `json:"source"`
	URL    string    `json:"url,omitempty"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// FetchResult is the outcome of one fetch batch.
type FetchResult struct {
	Articles []*Article     `json:"articles"`
	Failures []FetchFailure `json:"failures"`
}
