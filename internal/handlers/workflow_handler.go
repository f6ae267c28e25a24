package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
)

// WorkflowHandler exposes goal-driven workflow runs.
type WorkflowHandler struct {
	workflows interfaces.WorkflowService
	storage   interfaces.WorkflowStorage
	logger    arbor.ILogger
}

func NewWorkflowHandler(workflows interfaces.WorkflowService, storage interfaces.WorkflowStorage, logger arbor.ILogger) *WorkflowHandler {
	return &WorkflowHandler{
		workflows: workflows,
		storage:   storage,
		logger:    logger,
	}
}

type workflowRunRequest struct {
	Goal string `json:"goal"`
}

// RunHandler plans and executes a workflow for the goal, returning
// the completed workflow including its summary. Runs synchronously;
// the coordinator's wall-clock budget bounds the request.
func (h *WorkflowHandler) RunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req workflowRunRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Goal) == "" {
		WriteError(w, http.StatusBadRequest, "goal is required")
		return
	}

	workflow, err := h.workflows.Run(r.Context(), req.Goal)
	if err != nil {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteData(w, workflow)
}

// GetHandler returns one workflow by ID from /api/workflow/{id}.
func (h *WorkflowHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/workflow/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "workflow id is required")
		return
	}

	workflow, err := h.workflows.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "workflow not found: "+id)
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteData(w, workflow)
}

// ListHandler returns recent workflows, newest first.
func (h *WorkflowHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := queryInt(r, "limit", 20)
	workflows, err := h.storage.GetRecent(r.Context(), limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteData(w, map[string]interface{}{
		"count":     len(workflows),
		"workflows": workflows,
	})
}
