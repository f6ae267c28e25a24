package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/interfaces"
)

// scriptedLLM replays a fixed sequence of responses and records every
// request it saw.
type scriptedLLM struct {
	responses []string
	calls     int
	requests  []*interfaces.GenerateRequest
	err       error
}

func (s *scriptedLLM) Generate(ctx context.Context, req *interfaces.GenerateRequest) (*interfaces.GenerateResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return &interfaces.GenerateResponse{Text: s.responses[idx], Provider: "claude", Model: "claude-test"}, nil
}

func echoTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes its input",
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			return "echo result", nil
		},
	}
}

func failingTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "always fails",
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			return "", errors.New("upstream timeout")
		},
	}
}

func TestToolRegistry_DescribeIncludesParamSchema(t *testing.T) {
	tools := NewToolRegistry()
	tools.Register(&Tool{
		Name:        "get_quotes",
		Description: "Get latest quotes.",
		Params: objectSchema(map[string]interface{}{
			"symbols": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		}, "symbols"),
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			return "", nil
		},
	})
	tools.Register(echoTool("echo"))

	described := tools.Describe()
	assert.Contains(t, described, "get_quotes: Get latest quotes.")
	assert.Contains(t, described, `"symbols"`)
	assert.Contains(t, described, `"required":["symbols"]`)
	// A tool without a schema renders name and description only.
	assert.Contains(t, described, "echo: echoes its input\n")
}

func TestExecute_ToolThenFinalAnswer(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"thought": "need data", "action": "tool", "tool": "lookup", "params": {}}`,
		`{"thought": "have enough", "action": "final", "answer": "markets were mixed today"}`,
	}}
	tools := NewToolRegistry()
	tools.Register(echoTool("lookup"))

	agent := NewBaseAgent("test_agent", "test role", llm, tools, nil, 10, nil)

	result, err := agent.Execute(context.Background(), "summarize the market", nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "markets were mixed today", result.Result)
	assert.Equal(t, []string{"lookup"}, result.ToolsUsed)
	assert.Len(t, result.ReasoningTrace, 2)
	assert.Equal(t, 2, llm.calls)
}

func TestExecute_ToolFailureBecomesObservation(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"thought": "try the tool", "action": "tool", "tool": "broken", "params": {}}`,
		`{"thought": "tool failed, answer from what I know", "action": "final", "answer": "partial answer"}`,
	}}
	tools := NewToolRegistry()
	tools.Register(failingTool("broken"))

	agent := NewBaseAgent("test_agent", "test role", llm, tools, nil, 10, nil)

	result, err := agent.Execute(context.Background(), "task", nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)

	// The failure was surfaced to the model as an observation.
	last := llm.requests[1].Messages[len(llm.requests[1].Messages)-1]
	assert.Contains(t, last.Content, "upstream timeout")
}

func TestExecute_UnknownToolBecomesObservation(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"thought": "guessing", "action": "tool", "tool": "nonexistent", "params": {}}`,
		`{"action": "final", "answer": "done"}`,
	}}
	tools := NewToolRegistry()
	tools.Register(echoTool("real_tool"))

	agent := NewBaseAgent("test_agent", "test role", llm, tools, nil, 10, nil)

	result, err := agent.Execute(context.Background(), "task", nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)

	last := llm.requests[1].Messages[len(llm.requests[1].Messages)-1]
	assert.Contains(t, last.Content, "unknown tool")
	assert.Contains(t, last.Content, "real_tool")
}

func TestExecute_BudgetExhaustedIsRecoverable(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"thought": "looping", "action": "tool", "tool": "lookup", "params": {}}`,
	}}
	tools := NewToolRegistry()
	tools.Register(echoTool("lookup"))

	agent := NewBaseAgent("test_agent", "test role", llm, tools, nil, 3, nil)

	result, err := agent.Execute(context.Background(), "task", nil, nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "3 iterations")
	assert.Equal(t, 3, llm.calls)
}

func TestExecute_UnparsableTurnRetriedWithinBudget(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"sorry, here is prose instead of JSON",
		`{"action": "final", "answer": "recovered"}`,
	}}
	agent := NewBaseAgent("test_agent", "test role", llm, NewToolRegistry(), nil, 10, nil)

	result, err := agent.Execute(context.Background(), "task", nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "recovered", result.Result)
}

func TestExecute_TransportErrorAborts(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("connection refused")}
	agent := NewBaseAgent("test_agent", "test role", llm, NewToolRegistry(), nil, 10, nil)

	_, err := agent.Execute(context.Background(), "task", nil, nil)
	require.Error(t, err)
}

func TestExecute_TaskRecordedInMemory(t *testing.T) {
	llm := &scriptedLLM{responses: []string{`{"action": "final", "answer": "done"}`}}
	memory := NewMemoryManager(agentsConfig(), nil)
	agent := NewBaseAgent("test_agent", "test role", llm, NewToolRegistry(), memory, 10, nil)

	_, err := agent.Execute(context.Background(), "analyze mining sector", nil, nil)
	require.NoError(t, err)

	recalled := memory.Recall("mining sector", 5)
	require.NotEmpty(t, recalled)
	assert.Contains(t, recalled[0].Content, "analyze mining sector")
}

func TestRegistry_UnknownAgent(t *testing.T) {
	registry := NewRegistry(agentsConfig(), nil)

	_, err := registry.Execute(context.Background(), "missing", "task", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent")
}

func TestRegistry_RegisterAndExecute(t *testing.T) {
	llm := &scriptedLLM{responses: []string{`{"action": "final", "answer": "ok"}`}}
	registry := NewRegistry(agentsConfig(), nil)
	registry.Register(NewBaseAgent("worker", "role", llm, NewToolRegistry(), nil, 5, nil))

	assert.Equal(t, []string{"worker"}, registry.Names())

	result, err := registry.Execute(context.Background(), "worker", "task", nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
}
