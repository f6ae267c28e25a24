package server

import (
	"net/http"

	"github.com/ternarybob/indago/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Liveness and status
	mux.HandleFunc("/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)

	// WebSocket event stream
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// Pipeline
	mux.HandleFunc("/api/pipeline/run", s.app.PipelineHandler.RunHandler)

	// News
	mux.HandleFunc("/api/news/fetch", s.app.NewsHandler.FetchHandler)
	mux.HandleFunc("/api/news/recent", s.app.NewsHandler.RecentHandler)

	// Agents
	mux.HandleFunc("/api/agents", s.app.AgentHandler.ListHandler)
	mux.HandleFunc("/api/agent/task", s.app.AgentHandler.TaskHandler)

	// Workflows
	mux.HandleFunc("/api/workflow/run", s.app.WorkflowHandler.RunHandler)
	mux.HandleFunc("/api/workflow/", s.app.WorkflowHandler.GetHandler) // GET /api/workflow/{id}
	mux.HandleFunc("/api/workflows", s.app.WorkflowHandler.ListHandler)

	// Market data
	mux.HandleFunc("/api/market/quotes", s.app.MarketHandler.QuotesHandler)
	mux.HandleFunc("/api/market/summary", s.app.MarketHandler.SummaryHandler)

	// Reports
	mux.HandleFunc("/api/reports/latest", s.app.ReportHandler.LatestHandler)
	mux.HandleFunc("/api/reports/", s.app.ReportHandler.RenderHandler) // GET /api/reports/{name}/html|pdf

	// Configuration
	mux.HandleFunc("/api/config", s.app.ConfigHandler.GetConfigHandler)
	mux.HandleFunc("/api/config/keys/", s.app.ConfigHandler.KeyHandler)

	// 404 envelope for unmatched API routes
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusNotFound, "not found: "+r.URL.Path)
	})

	return mux
}
