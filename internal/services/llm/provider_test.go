package llm

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"google.golang.org/genai"
)

func newTestFactory() *ProviderFactory {
	cfg := &common.LLMConfig{
		DefaultModel:    "claude-sonnet-4-20250514",
		AnthropicAPIKey: "test",
		Temperature:     0.3,
		MaxTokens:       4096,
		TimeoutSeconds:  60,
		MaxRetries:      3,
	}
	return NewProviderFactory(cfg, nil, common.GetLogger())
}

func TestProviderFactory_DetectProvider(t *testing.T) {
	f := newTestFactory()

	tests := []struct {
		model    string
		expected ProviderType
	}{
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"claude/claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-haiku", ProviderClaude},
		{"gemini-2.5-flash", ProviderGemini},
		{"gemini/gemini-2.5-flash", ProviderGemini},
		{"google/gemini-pro", ProviderGemini},
		{"", ProviderClaude}, // default model is Claude
		{"unknown-model", ProviderClaude},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.DetectProvider(tt.model))
		})
	}
}

func TestProviderFactory_ConcurrentClientInit(t *testing.T) {
	f := newTestFactory()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.getClaudeClient()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, f.claudeReady)
	require.NoError(t, f.Close())
	assert.False(t, f.claudeReady)
}

func TestProviderFactory_NormalizeModel(t *testing.T) {
	f := newTestFactory()

	assert.Equal(t, "claude-sonnet-4-20250514", f.NormalizeModel("claude/claude-sonnet-4-20250514"))
	assert.Equal(t, "gemini-2.5-flash", f.NormalizeModel("gemini/gemini-2.5-flash"))
	assert.Equal(t, "claude-haiku", f.NormalizeModel("claude-haiku"))
}

func TestRetryConfig_CalculateBackoff(t *testing.T) {
	cfg := NewDefaultRetryConfig()

	t.Run("initial backoff on first attempt", func(t *testing.T) {
		assert.Equal(t, 45*time.Second, cfg.CalculateBackoff(0, 0))
	})

	t.Run("api delay overrides initial backoff", func(t *testing.T) {
		assert.Equal(t, 15*time.Second, cfg.CalculateBackoff(0, 10*time.Second))
	})

	t.Run("capped at max backoff", func(t *testing.T) {
		assert.Equal(t, cfg.MaxBackoff, cfg.CalculateBackoff(10, 0))
	})
}

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.False(t, IsRateLimitError(errors.New("connection refused")))
	assert.True(t, IsRateLimitError(errors.New("Error 429: too many requests")))
	assert.True(t, IsRateLimitError(errors.New("RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New("quota exceeded for model")))
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: rate limited. Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")
	delay := ExtractRetryDelay(err)
	assert.InDelta(t, 45.387, delay.Seconds(), 0.01)

	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("no delay here")))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(nil))
}

func TestConvertMessagesToClaude(t *testing.T) {
	t.Run("system message lifted out", func(t *testing.T) {
		msgs, system, err := convertMessagesToClaude([]interfaces.Message{
			{Role: "system", Content: "you are an analyst"},
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi"},
		})
		require.NoError(t, err)
		assert.Equal(t, "you are an analyst", system)
		assert.Len(t, msgs, 2)
	})

	t.Run("empty messages rejected", func(t *testing.T) {
		_, _, err := convertMessagesToClaude(nil)
		assert.Error(t, err)
	})

	t.Run("missing user message rejected", func(t *testing.T) {
		_, _, err := convertMessagesToClaude([]interfaces.Message{
			{Role: "assistant", Content: "hi"},
		})
		assert.Error(t, err)
	})
}

func TestConvertToGenaiSchema(t *testing.T) {
	schemaMap := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"sentiment"},
		"properties": map[string]interface{}{
			"sentiment": map[string]interface{}{
				"type": "string",
				"enum": []interface{}{"positive", "negative", "neutral"},
			},
			"industry_themes": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
	}

	schema, err := convertToGenaiSchema(schemaMap)
	require.NoError(t, err)
	require.NotNil(t, schema)
	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"sentiment"}, schema.Required)
	require.Contains(t, schema.Properties, "sentiment")
	assert.Equal(t, []string{"positive", "negative", "neutral"}, schema.Properties["sentiment"].Enum)
	require.Contains(t, schema.Properties, "industry_themes")
	assert.Equal(t, genai.TypeString, schema.Properties["industry_themes"].Items.Type)

	empty, err := convertToGenaiSchema(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}
