package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

const truncationMarker = "\n... [content truncated]"

// placeholderFragments mark webhook URLs left at their template
// values. Posting to these would always fail, so they are skipped.
var placeholderFragments = []string{
	"your/webhook/url",
	"T00000000",
	"example.com/webhook",
}

// Service posts report digests to the configured webhook. An unset or
// placeholder webhook makes Notify a silent no-op; messages over the
// size limit are truncated with a marker.
type Service struct {
	config     *common.NotifyConfig
	logger     arbor.ILogger
	httpClient *http.Client
}

// NewService creates a notify service.
func NewService(config *common.NotifyConfig, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Notify posts the digest. Returns sent=false without error when the
// webhook is unset or a placeholder.
func (s *Service) Notify(ctx context.Context, digest string, report *models.Report) (bool, error) {
	if !s.webhookConfigured() {
		if s.logger != nil {
			s.logger.Debug().Msg("Webhook not configured, skipping notification")
		}
		return false, nil
	}

	message := digest
	if report != nil && report.Path != "" {
		message += "\nReport: " + report.Path
	}
	message = truncateMessage(message, s.config.MaxMessageChars)

	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return false, fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	if s.logger != nil {
		s.logger.Info().Int("message_chars", len(message)).Msg("Notification sent")
	}
	return true, nil
}

func (s *Service) webhookConfigured() bool {
	url := strings.TrimSpace(s.config.WebhookURL)
	if url == "" {
		return false
	}
	for _, fragment := range placeholderFragments {
		if strings.Contains(url, fragment) {
			return false
		}
	}
	return true
}

// truncateMessage cuts the message to limit chars. A message exactly
// at the limit passes through unmodified; the marker replaces the
// tail of anything longer.
func truncateMessage(message string, limit int) string {
	if limit <= 0 || len(message) <= limit {
		return message
	}
	cut := limit - len(truncationMarker)
	if cut < 0 {
		cut = 0
	}
	return message[:cut] + truncationMarker
}

var _ interfaces.NotifyService = (*Service)(nil)
