package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/indago/internal/models"
)

// FetchOptions bounds one content fetch batch.
type FetchOptions struct {
	MaxAge      time.Duration
	MaxArticles int
}

// FetcherService retrieves and deduplicates news articles from the
// configured feeds. Per-feed and per-article failures are recorded in
// the result, never raised.
type FetcherService interface {
	FetchNews(ctx context.Context, opts FetchOptions) (*models.FetchResult, error)
}

// ArticleExtractor retrieves the full text of one article URL.
type ArticleExtractor interface {
	Extract(ctx context.Context, url string) (title, text string, err error)
}

// MarketDataService returns quote and reference data with a TTL cache
// in front of the upstream API.
type MarketDataService interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error)
	GetHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.OHLCVBar, error)
	GetCompanyInfo(ctx context.Context, symbol string) (*models.CompanyInfo, error)
	GetMarketSummary(ctx context.Context) ([]models.IndexLevel, error)
	GetSectorPerformance(ctx context.Context) ([]models.SectorPerf, error)
	GetMacroIndicators(ctx context.Context) ([]models.MacroIndicator, error)
}

// ExtractionService turns article text into structured insight. A
// model response that violates the JSON contract degrades to a
// fallback result, it never returns an error for that case.
type ExtractionService interface {
	ExtractInsights(ctx context.Context, article *models.Article) (*models.ExtractionResult, error)
	ExtractBatch(ctx context.Context, articles []*models.Article) []*models.ExtractionResult
}

// EmbeddingService computes and stores embedding vectors.
type EmbeddingService interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedArticles(ctx context.Context, articles []*models.Article) (stored int, err error)
}

// TaskResult is the outcome of one agent task execution.
type TaskResult struct {
	Success        bool                   `json:"success"`
	Result         string                 `json:"result,omitempty"`
	ReasoningTrace []string               `json:"reasoning_trace,omitempty"`
	ToolsUsed      []string               `json:"tools_used,omitempty"`
	ElapsedMs      int64                  `json:"elapsed_ms"`
	Error          string                 `json:"error,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// AgentExecutor runs a free-text task through a bounded reasoning
// loop over a fixed toolset.
type AgentExecutor interface {
	Name() string
	Execute(ctx context.Context, task string, params map[string]interface{}, taskContext map[string]interface{}) (*TaskResult, error)
}

// AgentRegistry resolves agents by name.
type AgentRegistry interface {
	Register(agent AgentExecutor)
	Get(name string) (AgentExecutor, bool)
	Names() []string
	Execute(ctx context.Context, agentName, task string, params map[string]interface{}, taskContext map[string]interface{}) (*TaskResult, error)
}

// WorkflowService plans and executes natural-language workflows.
type WorkflowService interface {
	Run(ctx context.Context, goal string) (*models.Workflow, error)
	Get(ctx context.Context, id string) (*models.Workflow, error)
}

// ReportInput carries the accumulated analysis for one report.
type ReportInput struct {
	Articles    []*models.Article
	Extractions []*models.ExtractionResult
	Quotes      map[string]*models.Quote
	Indices     []models.IndexLevel
	Sectors     []models.SectorPerf
	Macro       []models.MacroIndicator
}

// ReportService renders the accumulated analysis to markdown on disk.
type ReportService interface {
	WriteReport(ctx context.Context, input *ReportInput) (*models.Report, error)
	RenderHTML(name string) ([]byte, error)
	RenderPDF(name string) ([]byte, error)
	Latest() (*models.Report, error)
}

// NotifyService posts a digest to the configured webhook. A missing
// or placeholder webhook is skipped silently.
type NotifyService interface {
	Notify(ctx context.Context, digest string, report *models.Report) (sent bool, err error)
}

// PipelineService runs the end-to-end research pipeline.
type PipelineService interface {
	Run(ctx context.Context) (*models.PipelineRun, error)
}

// SchedulerService drives the pipeline on a cron schedule.
type SchedulerService interface {
	Start() error
	Stop()
	IsRunning() bool
	NextRun() (time.Time, bool)
	TriggerNow() error
}

// Event is one pipeline/workflow progress event for the stream.
type Event struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventService fans events out to subscribers (websocket stream).
type EventService interface {
	Publish(event Event)
	Subscribe() (ch <-chan Event, cancel func())
}
