package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"google.golang.org/genai"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
)

// ProviderFactory routes generation requests to the provider matching
// the model name and manages lazily created API clients. It implements
// interfaces.LLMService.
type ProviderFactory struct {
	config    *common.LLMConfig
	kvStorage interfaces.KeyValueStorage
	logger    arbor.ILogger

	// Guards the lazily created clients; Generate is called from
	// concurrent workflow steps.
	mu           sync.Mutex
	geminiClient *genai.Client
	claudeClient anthropic.Client
	claudeReady  bool
}

// NewProviderFactory creates a new provider factory. kvStorage may
// hold API keys that override the config values.
func NewProviderFactory(config *common.LLMConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *ProviderFactory {
	return &ProviderFactory{
		config:    config,
		kvStorage: kvStorage,
		logger:    logger,
	}
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-sonnet-4-20250514" -> Claude
// - "claude/claude-sonnet-4-20250514" -> Claude (with prefix)
// - "gemini-2.5-flash" -> Gemini
// - Empty string -> provider of the configured default model
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	if model == "" {
		model = f.config.DefaultModel
	}
	model = strings.ToLower(model)

	if strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/") {
		return ProviderGemini
	}
	if strings.HasPrefix(model, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini-") {
		return ProviderGemini
	}
	return ProviderClaude
}

// NormalizeModel removes a provider prefix from the model name.
func (f *ProviderFactory) NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// resolveAPIKey prefers the KV store value, falling back to config.
func (f *ProviderFactory) resolveAPIKey(kvKey, configValue string) (string, error) {
	if f.kvStorage != nil {
		if value, err := f.kvStorage.Get(kvKey); err == nil && value != "" {
			return value, nil
		}
	}
	if configValue != "" {
		return configValue, nil
	}
	return "", fmt.Errorf("no API key configured for %s", kvKey)
}

// getGeminiClient returns a Gemini client, creating one if necessary
func (f *ProviderFactory) getGeminiClient(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.geminiClient != nil {
		return f.geminiClient, nil
	}

	apiKey, err := f.resolveAPIKey("gemini_api_key", f.config.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Gemini API key: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

// getClaudeClient returns a Claude client, creating one if necessary
func (f *ProviderFactory) getClaudeClient() (anthropic.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claudeReady {
		return f.claudeClient, nil
	}

	apiKey, err := f.resolveAPIKey("anthropic_api_key", f.config.AnthropicAPIKey)
	if err != nil {
		return anthropic.Client{}, fmt.Errorf("failed to resolve Anthropic API key: %w", err)
	}

	f.claudeClient = anthropic.NewClient(option.WithAPIKey(apiKey))
	f.claudeReady = true
	return f.claudeClient, nil
}

// Generate generates content using the provider matching the model.
func (f *ProviderFactory) Generate(ctx context.Context, request *interfaces.GenerateRequest) (*interfaces.GenerateResponse, error) {
	model := f.NormalizeModel(request.Model)
	if model == "" {
		model = f.config.DefaultModel
	}
	provider := f.DetectProvider(request.Model)

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("message_count", len(request.Messages)).
		Msg("Generating content with provider")

	ctx, cancel := context.WithTimeout(ctx, time.Duration(f.config.TimeoutSeconds)*time.Second)
	defer cancel()

	switch provider {
	case ProviderGemini:
		return f.generateWithGemini(ctx, request, model)
	default:
		return f.generateWithClaude(ctx, request, model)
	}
}

// generateWithClaude generates content using Claude API
func (f *ProviderFactory) generateWithClaude(ctx context.Context, request *interfaces.GenerateRequest, model string) (*interfaces.GenerateResponse, error) {
	client, err := f.getClaudeClient()
	if err != nil {
		return nil, err
	}

	claudeMessages, systemText, err := convertMessagesToClaude(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	// Claude has no response-schema parameter, so a requested schema
	// is appended to the system text instead.
	if len(request.OutputSchema) > 0 {
		schemaJSON, merr := json.Marshal(request.OutputSchema)
		if merr == nil {
			systemText = strings.TrimSpace(systemText +
				"\n\nRespond ONLY with a JSON object matching this schema:\n" + string(schemaJSON))
		}
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = f.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  claudeMessages,
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.config.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(temp)
	}

	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	retryConfig := f.retryConfig()
	var resp *anthropic.Message
	var apiErr error

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = client.Messages.New(ctx, params)
		if apiErr == nil {
			break
		}
		if attempt == retryConfig.MaxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		if IsRateLimitError(apiErr) {
			backoff = retryConfig.CalculateBackoff(attempt, 0)
		}

		f.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Claude API call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return nil, fmt.Errorf("Claude API call failed after %d retries: %w", retryConfig.MaxRetries, apiErr)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API")
	}

	return &interfaces.GenerateResponse{
		Text:     text.String(),
		Provider: string(ProviderClaude),
		Model:    model,
	}, nil
}

// generateWithGemini generates content using Gemini API
func (f *ProviderFactory) generateWithGemini(ctx context.Context, request *interfaces.GenerateRequest, model string) (*interfaces.GenerateResponse, error) {
	client, err := f.getGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	geminiContents, systemText, err := convertMessagesToGemini(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.config.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temp)),
	}

	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	// With a schema present Gemini enforces JSON output matching it.
	if len(request.OutputSchema) > 0 {
		genaiSchema, serr := convertToGenaiSchema(request.OutputSchema)
		if serr != nil {
			f.logger.Error().Err(serr).Msg("Failed to convert output schema")
		} else if genaiSchema != nil {
			config.ResponseMIMEType = "application/json"
			config.ResponseSchema = genaiSchema
		}
	}

	retryConfig := f.retryConfig()
	var resp *genai.GenerateContentResponse
	var apiErr error

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = client.Models.GenerateContent(ctx, model, geminiContents, config)
		if apiErr == nil {
			break
		}
		if attempt == retryConfig.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(apiErr) {
			backoff = retryConfig.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))
		} else {
			backoff = time.Duration(attempt+1) * 2 * time.Second
		}

		f.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Gemini API call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return nil, fmt.Errorf("Gemini API call failed after %d retries: %w", retryConfig.MaxRetries, apiErr)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini API")
	}
	responseText := resp.Text()
	if responseText == "" {
		return nil, fmt.Errorf("empty text in Gemini response")
	}

	return &interfaces.GenerateResponse{
		Text:     responseText,
		Provider: string(ProviderGemini),
		Model:    model,
	}, nil
}

func (f *ProviderFactory) retryConfig() *RetryConfig {
	cfg := NewDefaultRetryConfig()
	if f.config.MaxRetries > 0 {
		cfg.MaxRetries = f.config.MaxRetries
	}
	return cfg
}

// Close releases all provider clients.
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geminiClient = nil
	f.claudeClient = anthropic.Client{}
	f.claudeReady = false
	return nil
}
