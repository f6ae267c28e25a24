package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

// StatusHandler serves liveness and application status.
type StatusHandler struct {
	storage   interfaces.StorageManager
	scheduler interfaces.SchedulerService
	logger    arbor.ILogger
	startedAt time.Time
}

func NewStatusHandler(storage interfaces.StorageManager, scheduler interfaces.SchedulerService, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		storage:   storage,
		scheduler: scheduler,
		logger:    logger,
		startedAt: time.Now().UTC(),
	}
}

// HealthHandler is the bare liveness probe.
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteData(w, map[string]string{"status": "healthy", "version": common.Version})
}

// GetStatusHandler reports stored counts, scheduler state and uptime.
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status := map[string]interface{}{
		"version": common.Version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	}

	if h.storage != nil {
		count, err := h.storage.Articles().Count(r.Context())
		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to count articles for status")
		} else {
			status["article_count"] = count
		}
	}

	if h.scheduler != nil {
		status["scheduler_running"] = h.scheduler.IsRunning()
		if next, ok := h.scheduler.NextRun(); ok {
			status["next_run"] = next.UTC().Format(time.RFC3339)
		}
	}

	WriteData(w, status)
}
