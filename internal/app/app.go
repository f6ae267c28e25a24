package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/handlers"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/services/agents"
	"github.com/ternarybob/indago/internal/services/embeddings"
	"github.com/ternarybob/indago/internal/services/events"
	"github.com/ternarybob/indago/internal/services/extraction"
	"github.com/ternarybob/indago/internal/services/fetcher"
	"github.com/ternarybob/indago/internal/services/llm"
	"github.com/ternarybob/indago/internal/services/marketdata"
	"github.com/ternarybob/indago/internal/services/notify"
	"github.com/ternarybob/indago/internal/services/pipeline"
	"github.com/ternarybob/indago/internal/services/report"
	"github.com/ternarybob/indago/internal/services/scheduler"
	"github.com/ternarybob/indago/internal/services/workflow"
	"github.com/ternarybob/indago/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService
	LLMService     interfaces.LLMService

	FetcherService    interfaces.FetcherService
	MarketService     interfaces.MarketDataService
	ExtractionService interfaces.ExtractionService
	EmbeddingService  interfaces.EmbeddingService

	Memory          *agents.MemoryManager
	AgentRegistry   interfaces.AgentRegistry
	WorkflowService interfaces.WorkflowService

	ReportService    interfaces.ReportService
	NotifyService    interfaces.NotifyService
	PipelineService  interfaces.PipelineService
	SchedulerService interfaces.SchedulerService

	// HTTP handlers
	StatusHandler   *handlers.StatusHandler
	PipelineHandler *handlers.PipelineHandler
	NewsHandler     *handlers.NewsHandler
	AgentHandler    *handlers.AgentHandler
	WorkflowHandler *handlers.WorkflowHandler
	MarketHandler   *handlers.MarketHandler
	ReportHandler   *handlers.ReportHandler
	ConfigHandler   *handlers.ConfigHandler
	WSHandler       *handlers.WebSocketHandler
}

// New initializes the application with all dependencies in order:
// storage, events, LLM, domain services, agents, workflow, pipeline,
// scheduler, handlers.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	app.EventService = events.NewService(logger)
	app.LLMService = llm.NewProviderFactory(&cfg.LLM, storageManager.KV(), logger)

	app.initServices()
	app.initAgents()
	app.initHandlers()

	logger.Info().
		Str("model", cfg.LLM.DefaultModel).
		Int("feeds", len(cfg.Feeds.Sources)).
		Bool("embeddings", cfg.Embeddings.Enabled).
		Bool("schedule", cfg.Schedule.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initServices() {
	cfg := a.Config

	extractor := fetcher.NewExtractor(&cfg.Feeds, a.Logger)
	a.FetcherService = fetcher.NewService(&cfg.Feeds, extractor, a.Logger)

	a.MarketService = marketdata.NewService(&cfg.Market, a.Logger)
	a.ExtractionService = extraction.NewService(a.LLMService, a.StorageManager.Analysis(), &cfg.Extraction, a.Logger)
	a.EmbeddingService = embeddings.NewService(&cfg.Embeddings, cfg.LLM.GeminiAPIKey, a.StorageManager.Vectors(), a.Logger)

	a.ReportService = report.NewService(&cfg.Report, a.Logger)
	a.NotifyService = notify.NewService(&cfg.Notify, a.Logger)

	a.PipelineService = pipeline.NewService(
		cfg,
		a.FetcherService,
		a.ExtractionService,
		a.EmbeddingService,
		a.MarketService,
		a.ReportService,
		a.NotifyService,
		a.StorageManager,
		a.EventService,
		a.Logger,
	)
	a.SchedulerService = scheduler.NewService(&cfg.Schedule, a.PipelineService, a.Logger)
}

func (a *App) initAgents() {
	cfg := a.Config

	a.Memory = agents.NewMemoryManager(&cfg.Agents, a.Logger)

	registry := agents.NewRegistry(&cfg.Agents, a.Logger)
	registry.Register(agents.NewDataAgent(
		&cfg.Agents,
		a.LLMService,
		a.FetcherService,
		a.MarketService,
		a.StorageManager.Articles(),
		a.Memory,
		a.Logger,
	))
	registry.Register(agents.NewAnalysisAgent(
		&cfg.Agents,
		a.LLMService,
		a.ExtractionService,
		a.MarketService,
		a.StorageManager.Articles(),
		a.StorageManager.Analysis(),
		a.Memory,
		a.Logger,
	))
	a.AgentRegistry = registry

	planner := workflow.NewPlanner(a.LLMService, registry, a.Logger)
	a.WorkflowService = workflow.NewCoordinator(
		&cfg.Workflow,
		planner,
		registry,
		a.LLMService,
		a.StorageManager.Workflows(),
		a.EventService,
		a.Logger,
	)
}

func (a *App) initHandlers() {
	a.StatusHandler = handlers.NewStatusHandler(a.StorageManager, a.SchedulerService, a.Logger)
	a.PipelineHandler = handlers.NewPipelineHandler(a.SchedulerService, a.Logger)
	a.NewsHandler = handlers.NewNewsHandler(a.FetcherService, a.StorageManager.Articles(), a.Logger)
	a.AgentHandler = handlers.NewAgentHandler(a.AgentRegistry, a.Logger)
	a.WorkflowHandler = handlers.NewWorkflowHandler(a.WorkflowService, a.StorageManager.Workflows(), a.Logger)
	a.MarketHandler = handlers.NewMarketHandler(a.MarketService, a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.ReportService, a.Logger)
	a.ConfigHandler = handlers.NewConfigHandler(a.Config, a.StorageManager.KV(), a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
}

// Start begins background work: the cron scheduler when enabled.
func (a *App) Start() error {
	return a.SchedulerService.Start()
}

// Close shuts components down in reverse initialization order.
func (a *App) Close() error {
	a.SchedulerService.Stop()

	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close storage cleanly")
		return err
	}

	a.Logger.Info().Msg("Application shut down")
	return nil
}
