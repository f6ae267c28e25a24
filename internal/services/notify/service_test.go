package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/models"
)

func TestNotify_EmptyWebhookSkipped(t *testing.T) {
	svc := NewService(&common.NotifyConfig{WebhookURL: "", MaxMessageChars: 3000}, nil)

	sent, err := svc.Notify(context.Background(), "digest", nil)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestNotify_PlaceholderWebhookSkipped(t *testing.T) {
	for _, url := range []string{
		"https://hooks.slack.com/services/your/webhook/url",
		"https://hooks.slack.com/services/T00000000/B000/XXX",
	} {
		svc := NewService(&common.NotifyConfig{WebhookURL: url, MaxMessageChars: 3000}, nil)
		sent, err := svc.Notify(context.Background(), "digest", nil)
		require.NoError(t, err, url)
		assert.False(t, sent, url)
	}
}

func TestNotify_PostsDigestAndReportPath(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewService(&common.NotifyConfig{WebhookURL: server.URL, MaxMessageChars: 3000}, nil)

	sent, err := svc.Notify(context.Background(), "daily digest", &models.Report{Path: "/reports/research_1.md"})
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Contains(t, received["text"], "daily digest")
	assert.Contains(t, received["text"], "/reports/research_1.md")
}

func TestNotify_WebhookFailureIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewService(&common.NotifyConfig{WebhookURL: server.URL, MaxMessageChars: 3000}, nil)

	sent, err := svc.Notify(context.Background(), "digest", nil)
	require.Error(t, err)
	assert.False(t, sent)
}

func TestTruncateMessage_ExactlyAtLimitUnmodified(t *testing.T) {
	message := strings.Repeat("a", 3000)
	assert.Equal(t, message, truncateMessage(message, 3000))
}

func TestTruncateMessage_OneOverTruncatedWithMarker(t *testing.T) {
	message := strings.Repeat("a", 3001)
	truncated := truncateMessage(message, 3000)
	assert.Len(t, truncated, 3000)
	assert.True(t, strings.HasSuffix(truncated, "... [content truncated]"))
}

func TestTruncateMessage_NoLimit(t *testing.T) {
	message := strings.Repeat("a", 5000)
	assert.Equal(t, message, truncateMessage(message, 0))
}
