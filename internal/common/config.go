// -----------------------------------------------------------------------
// Configuration - defaults, TOML file merge, environment overrides
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const envPrefix = "INDAGO_"

// Config is the root application configuration. Values resolve in
// order: defaults, TOML file(s), INDAGO_* environment variables, then
// CLI flags applied by the entry point.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Logging    LoggingConfig    `toml:"logging"`
	Storage    StorageConfig    `toml:"storage"`
	LLM        LLMConfig        `toml:"llm"`
	Feeds      FeedsConfig      `toml:"feeds"`
	Market     MarketConfig     `toml:"market"`
	Extraction ExtractionConfig `toml:"extraction"`
	Embeddings EmbeddingsConfig `toml:"embeddings"`
	Agents     AgentsConfig     `toml:"agents"`
	Workflow   WorkflowConfig   `toml:"workflow"`
	Report     ReportConfig     `toml:"report"`
	Notify     NotifyConfig     `toml:"notify"`
	Schedule   ScheduleConfig   `toml:"schedule"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`
	Output []string `toml:"output"`
}

type StorageConfig struct {
	Path string `toml:"path" validate:"required"`
}

type LLMConfig struct {
	DefaultModel    string  `toml:"default_model" validate:"required"`
	AnthropicAPIKey string  `toml:"anthropic_api_key"`
	GeminiAPIKey    string  `toml:"gemini_api_key"`
	Temperature     float64 `toml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens       int     `toml:"max_tokens" validate:"gt=0"`
	TimeoutSeconds  int     `toml:"timeout_seconds" validate:"gt=0"`
	MaxRetries      int     `toml:"max_retries" validate:"gte=0"`
}

// FeedSource is one configured RSS/Atom feed.
type FeedSource struct {
	Name string `toml:"name" yaml:"name"`
	URL  string `toml:"url" yaml:"url" validate:"required,url"`
}

type FeedsConfig struct {
	Sources          []FeedSource `toml:"sources" validate:"dive"`
	SourcesFile      string       `toml:"sources_file"`
	MaxAgeHours      int          `toml:"max_age_hours" validate:"gt=0"`
	MaxArticles      int          `toml:"max_articles" validate:"gt=0"`
	FetchConcurrency int          `toml:"fetch_concurrency" validate:"gt=0"`
	MinTextLength    int          `toml:"min_text_length" validate:"gte=0"`
	RenderFallback   bool         `toml:"render_fallback"`
}

type MarketConfig struct {
	APIKey             string   `toml:"api_key"`
	BaseURL            string   `toml:"base_url"`
	CacheTTLSeconds    int      `toml:"cache_ttl_seconds" validate:"gt=0"`
	RateLimitPerSecond int      `toml:"rate_limit_per_second" validate:"gt=0"`
	Symbols            []string `toml:"symbols"`
	Benchmarks         []string `toml:"benchmarks"`
	MacroSymbols       []string `toml:"macro_symbols"`
}

type ExtractionConfig struct {
	MaxTextChars    int `toml:"max_text_chars" validate:"gt=0"`
	SaveConcurrency int `toml:"save_concurrency" validate:"gt=0"`
}

type EmbeddingsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Model       string `toml:"model"`
	Concurrency int    `toml:"concurrency" validate:"gt=0"`
}

type AgentsConfig struct {
	MaxIterations      int     `toml:"max_iterations" validate:"gt=0"`
	ConversationCap    int     `toml:"conversation_cap" validate:"gt=0"`
	TaskHistoryCap     int     `toml:"task_history_cap" validate:"gt=0"`
	ContextCap         int     `toml:"context_cap" validate:"gt=0"`
	KnowledgeCap       int     `toml:"knowledge_cap" validate:"gt=0"`
	PreferenceCap      int     `toml:"preference_cap" validate:"gt=0"`
	PruneThreshold     float64 `toml:"prune_threshold" validate:"gte=0,lte=1"`
	TaskTimeoutSeconds int     `toml:"task_timeout_seconds" validate:"gt=0"`
}

type WorkflowConfig struct {
	BudgetSeconds      int `toml:"budget_seconds" validate:"gt=0"`
	StepTimeoutSeconds int `toml:"step_timeout_seconds" validate:"gt=0"`
	MaxSteps           int `toml:"max_steps" validate:"gt=0"`
}

type ReportConfig struct {
	OutputDir string `toml:"output_dir" validate:"required"`
}

type NotifyConfig struct {
	WebhookURL      string `toml:"webhook_url"`
	MaxMessageChars int    `toml:"max_message_chars" validate:"gt=0"`
}

type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"`
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Path: "./data/indago.db",
		},
		LLM: LLMConfig{
			DefaultModel:   "claude-sonnet-4-20250514",
			Temperature:    0.3,
			MaxTokens:      4096,
			TimeoutSeconds: 120,
			MaxRetries:     3,
		},
		Feeds: FeedsConfig{
			Sources: []FeedSource{
				{Name: "Reuters Business", URL: "https://feeds.reuters.com/reuters/businessNews"},
				{Name: "CNBC Markets", URL: "https://www.cnbc.com/id/100003114/device/rss/rss.html"},
			},
			MaxAgeHours:      24,
			MaxArticles:      20,
			FetchConcurrency: 5,
			MinTextLength:    200,
			RenderFallback:   false,
		},
		Market: MarketConfig{
			BaseURL:            "https://eodhd.com/api",
			CacheTTLSeconds:    300,
			RateLimitPerSecond: 10,
			Benchmarks:         []string{"GSPC.INDX", "IXIC.INDX", "DJI.INDX"},
			MacroSymbols:       []string{"US10Y.GBOND", "EURUSD.FOREX"},
		},
		Extraction: ExtractionConfig{
			MaxTextChars:    2000,
			SaveConcurrency: 5,
		},
		Embeddings: EmbeddingsConfig{
			Enabled:     false,
			Model:       "text-embedding-004",
			Concurrency: 3,
		},
		Agents: AgentsConfig{
			MaxIterations:      10,
			ConversationCap:    100,
			TaskHistoryCap:     50,
			ContextCap:         50,
			KnowledgeCap:       200,
			PreferenceCap:      50,
			PruneThreshold:     0.3,
			TaskTimeoutSeconds: 300,
		},
		Workflow: WorkflowConfig{
			BudgetSeconds:      600,
			StepTimeoutSeconds: 180,
			MaxSteps:           10,
		},
		Report: ReportConfig{
			OutputDir: "./reports",
		},
		Notify: NotifyConfig{
			MaxMessageChars: 3000,
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 7 * * *",
		},
	}
}

// LoadFromFiles loads configuration by merging TOML files over the
// defaults, then applying environment overrides. Missing files are
// skipped silently so the binary runs with defaults alone.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.applyEnvOverrides()

	if config.Feeds.SourcesFile != "" {
		sources, err := LoadFeedSources(config.Feeds.SourcesFile)
		if err != nil {
			return nil, err
		}
		if len(sources) > 0 {
			config.Feeds.Sources = sources
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFeedSources reads a YAML file listing feed sources. The file
// replaces, not extends, the inline source list.
func LoadFeedSources(path string) ([]FeedSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed sources file %s: %w", path, err)
	}
	var doc struct {
		Sources []FeedSource `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse feed sources file %s: %w", path, err)
	}
	return doc.Sources, nil
}

// applyEnvOverrides applies INDAGO_* environment variables over the
// merged configuration.
func (c *Config) applyEnvOverrides() {
	if v := envString("SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v, ok := envInt("SERVER_PORT"); ok {
		c.Server.Port = v
	}
	if v := envString("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := envString("STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}

	if v := envString("LLM_MODEL"); v != "" {
		c.LLM.DefaultModel = v
	}
	if v := envString("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.AnthropicAPIKey = v
	}
	if v := envString("GEMINI_API_KEY"); v != "" {
		c.LLM.GeminiAPIKey = v
	}
	if v, ok := envFloat("LLM_TEMPERATURE"); ok {
		c.LLM.Temperature = v
	}
	if v, ok := envInt("LLM_MAX_TOKENS"); ok {
		c.LLM.MaxTokens = v
	}
	if v, ok := envInt("LLM_TIMEOUT_SECONDS"); ok {
		c.LLM.TimeoutSeconds = v
	}
	if v, ok := envInt("LLM_MAX_RETRIES"); ok {
		c.LLM.MaxRetries = v
	}

	if v := envString("FEEDS_SOURCES_FILE"); v != "" {
		c.Feeds.SourcesFile = v
	}
	if v, ok := envInt("FEEDS_MAX_AGE_HOURS"); ok {
		c.Feeds.MaxAgeHours = v
	}
	if v, ok := envInt("FEEDS_MAX_ARTICLES"); ok {
		c.Feeds.MaxArticles = v
	}
	if v, ok := envInt("FEEDS_FETCH_CONCURRENCY"); ok {
		c.Feeds.FetchConcurrency = v
	}
	if v, ok := envBool("FEEDS_RENDER_FALLBACK"); ok {
		c.Feeds.RenderFallback = v
	}

	if v := envString("MARKET_API_KEY"); v != "" {
		c.Market.APIKey = v
	}
	if v := envString("MARKET_BASE_URL"); v != "" {
		c.Market.BaseURL = v
	}
	if v, ok := envInt("MARKET_CACHE_TTL_SECONDS"); ok {
		c.Market.CacheTTLSeconds = v
	}
	if v, ok := envInt("MARKET_RATE_LIMIT"); ok {
		c.Market.RateLimitPerSecond = v
	}
	if v := envString("MARKET_SYMBOLS"); v != "" {
		c.Market.Symbols = splitAndTrim(v)
	}
	if v := envString("MARKET_BENCHMARKS"); v != "" {
		c.Market.Benchmarks = splitAndTrim(v)
	}

	if v, ok := envInt("EXTRACTION_MAX_TEXT_CHARS"); ok {
		c.Extraction.MaxTextChars = v
	}
	if v, ok := envBool("EMBEDDINGS_ENABLED"); ok {
		c.Embeddings.Enabled = v
	}
	if v := envString("EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}

	if v, ok := envInt("AGENT_MAX_ITERATIONS"); ok {
		c.Agents.MaxIterations = v
	}
	if v, ok := envInt("WORKFLOW_BUDGET_SECONDS"); ok {
		c.Workflow.BudgetSeconds = v
	}

	if v := envString("REPORT_OUTPUT_DIR"); v != "" {
		c.Report.OutputDir = v
	}
	if v := envString("WEBHOOK_URL"); v != "" {
		c.Notify.WebhookURL = v
	}
	if v, ok := envInt("NOTIFY_MAX_MESSAGE_CHARS"); ok {
		c.Notify.MaxMessageChars = v
	}

	if v, ok := envBool("SCHEDULE_ENABLED"); ok {
		c.Schedule.Enabled = v
	}
	if v := envString("SCHEDULE_CRON"); v != "" {
		c.Schedule.Cron = v
	}
}

// Validate fails fast on configuration that can never succeed at
// runtime: non-positive limits, malformed URLs, missing credentials
// for enabled components.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			var msgs []string
			for _, fe := range errs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if len(c.Feeds.Sources) == 0 {
		return fmt.Errorf("invalid configuration: at least one feed source is required")
	}
	if c.LLM.AnthropicAPIKey == "" && c.LLM.GeminiAPIKey == "" {
		return fmt.Errorf("invalid configuration: no LLM API key configured (set INDAGO_ANTHROPIC_API_KEY or INDAGO_GEMINI_API_KEY)")
	}
	if c.Embeddings.Enabled && c.LLM.GeminiAPIKey == "" {
		return fmt.Errorf("invalid configuration: embeddings enabled but no Gemini API key configured")
	}
	if c.Schedule.Enabled && c.Schedule.Cron == "" {
		return fmt.Errorf("invalid configuration: schedule enabled but no cron expression configured")
	}
	return nil
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func envInt(key string) (int, bool) {
	v := envString(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := envString(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envBool(key string) (bool, bool) {
	v := envString(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
