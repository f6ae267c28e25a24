package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowStatus is the lifecycle state of a workflow or step.
type WorkflowStatus string

const (
	WorkflowStatusPlanning  WorkflowStatus = "planning"
	WorkflowStatusExecuting WorkflowStatus = "executing"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusFailed    WorkflowStatus = "failed"
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
)

// Terminal reports whether the status is final. Steps are never
// mutated once terminal.
func (s WorkflowStatus) Terminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusCancelled:
		return true
	}
	return false
}

// WorkflowStep is one unit of a planned workflow. A step may only
// transition to executing once every step named in DependsOn has
// completed.
type WorkflowStep struct {
	ID          string                 `json:"id"`
	Agent       string                 `json:"agent"`
	Description string                 `json:"description"`
	Params      map[string]interface{} `json:"params,omitempty"`
	DependsOn   []string               `json:"depends_on,omitempty"`
	Status      WorkflowStatus         `json:"status"`
	Result      string                 `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// WorkflowSummary is the final LLM (or fallback) summary over a
// finished workflow.
type WorkflowSummary struct {
	ExecutiveSummary string   `json:"executive_summary"`
	KeyFindings      []string `json:"key_findings"`
	Recommendations  []string `json:"recommendations"`
	Fallback         bool     `json:"fallback,omitempty"`
}

// Workflow is a multi-step, dependency-ordered plan executed by the
// coordinator across one or more agents.
type Workflow struct {
	ID          string           `json:"id" badgerhold:"key"`
	Goal        string           `json:"goal"`
	Status      WorkflowStatus   `json:"status"`
	Steps       []*WorkflowStep  `json:"steps"`
	Summary     *WorkflowSummary `json:"summary,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// NewWorkflow creates a workflow in the planning state.
func NewWorkflow(goal string) *Workflow {
	return &Workflow{
		ID:        "wf_" + uuid.New().String(),
		Goal:      goal,
		Status:    WorkflowStatusPlanning,
		CreatedAt: time.Now().UTC(),
	}
}

// Step returns the step with the given id, or nil.
func (w *Workflow) Step(id string) *WorkflowStep {
	for _, s := range w.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}
