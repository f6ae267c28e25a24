package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
)

const decisionContract = `Respond with ONE JSON object and nothing else:
{"thought": "<your reasoning>", "action": "tool" or "final", "tool": "<tool name, when action is tool>", "params": {<tool parameters>}, "answer": "<your final answer, when action is final>"}`

// decision is the model's per-iteration choice in the reasoning loop.
type decision struct {
	Thought string                 `json:"thought"`
	Action  string                 `json:"action"`
	Tool    string                 `json:"tool"`
	Params  map[string]interface{} `json:"params"`
	Answer  string                 `json:"answer"`
}

// BaseAgent runs free-text tasks through a bounded reasoning loop over
// a fixed toolset. Tool failures become observations the model can
// route around; only LLM transport failures abort the task. Exhausting
// the iteration budget yields an unsuccessful result, not an error.
type BaseAgent struct {
	name          string
	role          string
	llm           interfaces.LLMService
	tools         *ToolRegistry
	memory        *MemoryManager
	maxIterations int
	logger        arbor.ILogger
}

// NewBaseAgent creates an agent with the given toolset.
func NewBaseAgent(name, role string, llm interfaces.LLMService, tools *ToolRegistry, memory *MemoryManager, maxIterations int, logger arbor.ILogger) *BaseAgent {
	return &BaseAgent{
		name:          name,
		role:          role,
		llm:           llm,
		tools:         tools,
		memory:        memory,
		maxIterations: maxIterations,
		logger:        logger,
	}
}

// Name returns the agent's registry name.
func (a *BaseAgent) Name() string {
	return a.name
}

// Execute runs one task to completion or to the iteration cap.
func (a *BaseAgent) Execute(ctx context.Context, task string, params map[string]interface{}, taskContext map[string]interface{}) (*interfaces.TaskResult, error) {
	start := time.Now()
	result := &interfaces.TaskResult{
		Metadata: map[string]interface{}{"agent": a.name},
	}

	messages := []interfaces.Message{
		{Role: "user", Content: a.taskPrompt(task, params, taskContext)},
	}

	toolsUsed := make(map[string]bool)

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		resp, err := a.llm.Generate(ctx, &interfaces.GenerateRequest{
			SystemInstruction: a.systemPrompt(),
			Messages:          messages,
		})
		if err != nil {
			return nil, fmt.Errorf("agent %s generation failed: %w", a.name, err)
		}

		dec, parseErr := parseDecision(resp.Text)
		if parseErr != nil {
			// Treat an unparsable turn as an observation and let the
			// model retry within the budget.
			messages = append(messages,
				interfaces.Message{Role: "assistant", Content: resp.Text},
				interfaces.Message{Role: "user", Content: "Observation: your last response was not valid JSON. " + decisionContract},
			)
			result.ReasoningTrace = append(result.ReasoningTrace, "unparsable model turn")
			continue
		}

		if dec.Thought != "" {
			result.ReasoningTrace = append(result.ReasoningTrace, dec.Thought)
		}

		if dec.Action == "final" || (dec.Action != "tool" && dec.Answer != "") {
			result.Success = true
			result.Result = dec.Answer
			break
		}

		observation := a.tools.Invoke(ctx, dec.Tool, dec.Params)
		toolsUsed[dec.Tool] = true

		if a.logger != nil {
			a.logger.Debug().
				Str("agent", a.name).
				Str("tool", dec.Tool).
				Int("iteration", iteration+1).
				Msg("Tool invoked")
		}

		messages = append(messages,
			interfaces.Message{Role: "assistant", Content: resp.Text},
			interfaces.Message{Role: "user", Content: "Observation: " + observation},
		)
	}

	if !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("reasoning budget of %d iterations exhausted", a.maxIterations)
	}

	for tool := range toolsUsed {
		result.ToolsUsed = append(result.ToolsUsed, tool)
	}
	result.ElapsedMs = time.Since(start).Milliseconds()

	if a.memory != nil {
		a.memory.RememberTask(task, result)
	}

	return result, nil
}

func (a *BaseAgent) systemPrompt() string {
	var b strings.Builder
	b.WriteString(a.role)
	b.WriteString("\n\nYou have these tools:\n")
	b.WriteString(a.tools.Describe())
	b.WriteString("\nWork step by step. Use a tool when you need data; give a final answer when you have enough.\n")
	b.WriteString(decisionContract)
	return b.String()
}

func (a *BaseAgent) taskPrompt(task string, params, taskContext map[string]interface{}) string {
	var b strings.Builder
	b.WriteString("Task: ")
	b.WriteString(task)

	if len(params) > 0 {
		if encoded, err := json.Marshal(params); err == nil {
			b.WriteString("\nParameters: ")
			b.Write(encoded)
		}
	}
	if len(taskContext) > 0 {
		if encoded, err := json.Marshal(taskContext); err == nil {
			b.WriteString("\nContext: ")
			b.Write(encoded)
		}
	}

	if a.memory != nil {
		if recalled := a.memory.Recall(task, 5); len(recalled) > 0 {
			b.WriteString("\nRelevant memory:\n")
			for _, entry := range recalled {
				b.WriteString("- ")
				b.WriteString(entry.Content)
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

// parseDecision tolerates code fences and prose around the JSON.
func parseDecision(raw string) (*decision, error) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in decision")
	}

	var dec decision
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &dec); err != nil {
		return nil, fmt.Errorf("failed to parse decision: %w", err)
	}
	if dec.Action == "" && dec.Answer == "" {
		return nil, fmt.Errorf("decision carries neither action nor answer")
	}
	return &dec, nil
}

var _ interfaces.AgentExecutor = (*BaseAgent)(nil)
