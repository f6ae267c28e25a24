package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

// ConfigHandler serves a redacted view of the running configuration
// and manages API keys in the key/value store.
type ConfigHandler struct {
	config *common.Config
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

func NewConfigHandler(config *common.Config, kv interfaces.KeyValueStorage, logger arbor.ILogger) *ConfigHandler {
	return &ConfigHandler{
		config: config,
		kv:     kv,
		logger: logger,
	}
}

// GetConfigHandler returns the effective configuration with secrets
// masked.
func (h *ConfigHandler) GetConfigHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	c := h.config
	WriteData(w, map[string]interface{}{
		"server": map[string]interface{}{
			"host": c.Server.Host,
			"port": c.Server.Port,
		},
		"llm": map[string]interface{}{
			"default_model":     c.LLM.DefaultModel,
			"temperature":       c.LLM.Temperature,
			"max_tokens":        c.LLM.MaxTokens,
			"anthropic_api_key": maskSecret(c.LLM.AnthropicAPIKey),
			"gemini_api_key":    maskSecret(c.LLM.GeminiAPIKey),
		},
		"feeds": map[string]interface{}{
			"sources":       c.Feeds.Sources,
			"max_age_hours": c.Feeds.MaxAgeHours,
			"max_articles":  c.Feeds.MaxArticles,
		},
		"market": map[string]interface{}{
			"api_key":    maskSecret(c.Market.APIKey),
			"symbols":    c.Market.Symbols,
			"benchmarks": c.Market.Benchmarks,
		},
		"schedule": map[string]interface{}{
			"enabled": c.Schedule.Enabled,
			"cron":    c.Schedule.Cron,
		},
		"notify": map[string]interface{}{
			"webhook_url": maskSecret(c.Notify.WebhookURL),
		},
	})
}

type setKeyRequest struct {
	Value string `json:"value"`
}

// KeyHandler manages one stored key at /api/config/keys/{name}.
// Values are write-only: GET reports presence, never the value.
func (h *ConfigHandler) KeyHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/config/keys/")
	if name == "" || strings.Contains(name, "/") {
		WriteError(w, http.StatusBadRequest, "key name is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		_, err := h.kv.Get(name)
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "key not found: "+name)
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteData(w, map[string]interface{}{"name": name, "set": true})
	case http.MethodPut:
		var req setKeyRequest
		if !DecodeBody(w, r, &req) {
			return
		}
		if req.Value == "" {
			WriteError(w, http.StatusBadRequest, "value is required")
			return
		}
		if err := h.kv.Set(name, req.Value); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.logger.Info().Str("key", name).Msg("Stored key updated")
		WriteData(w, map[string]interface{}{"name": name, "set": true})
	case http.MethodDelete:
		if err := h.kv.Delete(name); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteData(w, map[string]interface{}{"name": name, "set": false})
	default:
		WriteError(w, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed")
	}
}

func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
