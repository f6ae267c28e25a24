package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// scriptedLLM returns planResponse for the first call and
// summaryResponse afterwards.
type scriptedLLM struct {
	planResponse    string
	summaryResponse string
	summaryErr      error
	calls           int
}

func (s *scriptedLLM) Generate(ctx context.Context, req *interfaces.GenerateRequest) (*interfaces.GenerateResponse, error) {
	s.calls++
	if s.calls == 1 {
		return &interfaces.GenerateResponse{Text: s.planResponse}, nil
	}
	if s.summaryErr != nil {
		return nil, s.summaryErr
	}
	return &interfaces.GenerateResponse{Text: s.summaryResponse}, nil
}

// recordingRegistry records execution order and returns canned
// results per agent.
type recordingRegistry struct {
	mu      sync.Mutex
	order   []string
	results map[string]*interfaces.TaskResult
	agents  map[string]bool
}

func newRecordingRegistry(agentNames ...string) *recordingRegistry {
	agents := make(map[string]bool)
	for _, name := range agentNames {
		agents[name] = true
	}
	return &recordingRegistry{results: make(map[string]*interfaces.TaskResult), agents: agents}
}

func (r *recordingRegistry) Register(agent interfaces.AgentExecutor) {}

func (r *recordingRegistry) Get(name string) (interfaces.AgentExecutor, bool) {
	return nil, r.agents[name]
}

func (r *recordingRegistry) Names() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}

func (r *recordingRegistry) Execute(ctx context.Context, agentName, task string, params map[string]interface{}, taskContext map[string]interface{}) (*interfaces.TaskResult, error) {
	r.mu.Lock()
	r.order = append(r.order, task)
	r.mu.Unlock()
	if result, ok := r.results[task]; ok {
		return result, nil
	}
	return &interfaces.TaskResult{Success: true, Result: "ok: " + task}, nil
}

func workflowConfig() *common.WorkflowConfig {
	return &common.WorkflowConfig{BudgetSeconds: 60, StepTimeoutSeconds: 30, MaxSteps: 10}
}

func newTestCoordinator(llm interfaces.LLMService, registry interfaces.AgentRegistry) *Coordinator {
	planner := NewPlanner(llm, registry, nil)
	return NewCoordinator(workflowConfig(), planner, registry, llm, nil, nil, nil)
}

const goodSummary = `{"executive_summary": "All steps completed.", "key_findings": ["finding one"], "recommendations": ["hold"]}`

func TestRun_DependencyOrder(t *testing.T) {
	llm := &scriptedLLM{
		planResponse: `{"steps": [
			{"id": "s1", "agent": "data_agent", "task": "gather"},
			{"id": "s2", "agent": "analysis_agent", "task": "analyze", "depends_on": ["s1"]},
			{"id": "s3", "agent": "analysis_agent", "task": "sectors", "depends_on": ["s1"]}
		]}`,
		summaryResponse: goodSummary,
	}
	registry := newRecordingRegistry("data_agent", "analysis_agent")
	coord := newTestCoordinator(llm, registry)

	wf, err := coord.Run(context.Background(), "daily research")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCompleted, wf.Status)
	require.Len(t, wf.Steps, 3)
	for _, step := range wf.Steps {
		assert.Equal(t, models.WorkflowStatusCompleted, step.Status)
	}

	// s1 ran strictly before its dependents.
	require.Len(t, registry.order, 3)
	assert.Equal(t, "gather", registry.order[0])
	assert.ElementsMatch(t, []string{"analyze", "sectors"}, registry.order[1:])

	require.NotNil(t, wf.Summary)
	assert.False(t, wf.Summary.Fallback)
	assert.Equal(t, "All steps completed.", wf.Summary.ExecutiveSummary)
}

func TestRun_FailedDependencyPropagates(t *testing.T) {
	llm := &scriptedLLM{
		planResponse: `{"steps": [
			{"id": "s1", "agent": "data_agent", "task": "gather"},
			{"id": "s2", "agent": "analysis_agent", "task": "analyze", "depends_on": ["s1"]}
		]}`,
		summaryResponse: goodSummary,
	}
	registry := newRecordingRegistry("data_agent", "analysis_agent")
	registry.results["gather"] = &interfaces.TaskResult{Success: false, Error: "feeds unreachable"}
	coord := newTestCoordinator(llm, registry)

	wf, err := coord.Run(context.Background(), "daily research")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusFailed, wf.Status)

	s2 := wf.Step("s2")
	require.NotNil(t, s2)
	assert.Equal(t, models.WorkflowStatusFailed, s2.Status)
	assert.Contains(t, s2.Error, "s1")

	// The dependent never executed.
	assert.Equal(t, []string{"gather"}, registry.order)
}

func TestRun_UnknownDependencyDroppedAtPlanning(t *testing.T) {
	llm := &scriptedLLM{
		planResponse: `{"steps": [
			{"id": "s1", "agent": "data_agent", "task": "gather"},
			{"id": "s2", "agent": "analysis_agent", "task": "analyze", "depends_on": ["missing"]}
		]}`,
		summaryResponse: goodSummary,
	}
	registry := newRecordingRegistry("data_agent", "analysis_agent")
	coord := newTestCoordinator(llm, registry)

	wf, err := coord.Run(context.Background(), "daily research")
	require.NoError(t, err)
	require.Len(t, wf.Steps, 1)
	assert.Equal(t, "s1", wf.Steps[0].ID)
}

func TestRun_UnparsablePlanDegradesToEmptyWorkflow(t *testing.T) {
	llm := &scriptedLLM{planResponse: "I cannot plan this, sorry."}
	registry := newRecordingRegistry("data_agent")
	coord := newTestCoordinator(llm, registry)

	wf, err := coord.Run(context.Background(), "impossible goal")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCompleted, wf.Status)
	assert.Empty(t, wf.Steps)
	require.NotNil(t, wf.Summary)
	assert.True(t, wf.Summary.Fallback)
	assert.Contains(t, wf.Summary.ExecutiveSummary, "No executable plan")
}

func TestRun_SummaryFailureFallsBack(t *testing.T) {
	llm := &scriptedLLM{
		planResponse: `{"steps": [{"id": "s1", "agent": "data_agent", "task": "gather"}]}`,
		summaryErr:   errors.New("rate limited"),
	}
	registry := newRecordingRegistry("data_agent")
	coord := newTestCoordinator(llm, registry)

	wf, err := coord.Run(context.Background(), "daily research")
	require.NoError(t, err)
	require.NotNil(t, wf.Summary)
	assert.True(t, wf.Summary.Fallback)
	assert.Contains(t, wf.Summary.ExecutiveSummary, "1 of 1 steps completed")
	require.Len(t, wf.Summary.KeyFindings, 1)
}

func TestRun_MaxStepsEnforced(t *testing.T) {
	llm := &scriptedLLM{
		planResponse: `{"steps": [
			{"id": "s1", "agent": "data_agent", "task": "a"},
			{"id": "s2", "agent": "data_agent", "task": "b"},
			{"id": "s3", "agent": "data_agent", "task": "c"}
		]}`,
		summaryResponse: goodSummary,
	}
	registry := newRecordingRegistry("data_agent")
	coord := newTestCoordinator(llm, registry)
	coord.config.MaxSteps = 2

	wf, err := coord.Run(context.Background(), "daily research")
	require.NoError(t, err)
	assert.Len(t, wf.Steps, 2)
}

func TestPlanner_UnknownAgentDropped(t *testing.T) {
	llm := &scriptedLLM{planResponse: `{"steps": [
		{"id": "s1", "agent": "ghost_agent", "task": "haunt"},
		{"id": "s2", "agent": "data_agent", "task": "gather"}
	]}`}
	registry := newRecordingRegistry("data_agent")
	planner := NewPlanner(llm, registry, nil)

	steps, err := planner.Plan(context.Background(), "goal")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "data_agent", steps[0].Agent)
}
