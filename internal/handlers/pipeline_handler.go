package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
)

// PipelineHandler triggers full pipeline runs.
type PipelineHandler struct {
	scheduler interfaces.SchedulerService
	logger    arbor.ILogger
}

func NewPipelineHandler(scheduler interfaces.SchedulerService, logger arbor.ILogger) *PipelineHandler {
	return &PipelineHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// RunHandler starts a pipeline run in the background. A run already in
// flight is reported as a conflict, not queued.
func (h *PipelineHandler) RunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.scheduler.TriggerNow(); err != nil {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	h.logger.Info().Msg("Pipeline run triggered via API")
	WriteStarted(w, "pipeline run started")
}
