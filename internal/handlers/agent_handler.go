package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
)

// AgentHandler exposes direct agent task execution.
type AgentHandler struct {
	registry interfaces.AgentRegistry
	logger   arbor.ILogger
}

func NewAgentHandler(registry interfaces.AgentRegistry, logger arbor.ILogger) *AgentHandler {
	return &AgentHandler{
		registry: registry,
		logger:   logger,
	}
}

// ListHandler returns the registered agent names.
func (h *AgentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteData(w, map[string]interface{}{"agents": h.registry.Names()})
}

type agentTaskRequest struct {
	Agent   string                 `json:"agent"`
	Task    string                 `json:"task"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// TaskHandler runs one task through the named agent. An unsuccessful
// task still returns the TaskResult with success=false inside the
// data, only transport failures map to HTTP errors.
func (h *AgentHandler) TaskHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req agentTaskRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Agent) == "" || strings.TrimSpace(req.Task) == "" {
		WriteError(w, http.StatusBadRequest, "agent and task are required")
		return
	}
	if _, ok := h.registry.Get(req.Agent); !ok {
		WriteError(w, http.StatusNotFound, "unknown agent: "+req.Agent)
		return
	}

	result, err := h.registry.Execute(r.Context(), req.Agent, req.Task, req.Params, req.Context)
	if err != nil {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteData(w, result)
}
