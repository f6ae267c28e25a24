package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

const plannerSystem = `You are a workflow planner for an investment research system. Break the goal into agent steps.
Respond with ONE JSON object:
{"steps": [{"id": "s1", "agent": "<agent name>", "task": "<what the agent should do>", "depends_on": ["<earlier step ids>"]}]}
Only use the listed agents. Keep plans small: two to five steps. A step may depend on earlier steps whose output it needs.`

// plannedStep is the wire shape of one step in the model's plan.
type plannedStep struct {
	ID        string                 `json:"id"`
	Agent     string                 `json:"agent"`
	Task      string                 `json:"task"`
	Params    map[string]interface{} `json:"params"`
	DependsOn []string               `json:"depends_on"`
}

type plannedWorkflow struct {
	Steps []plannedStep `json:"steps"`
}

// Planner turns a natural-language goal into workflow steps via the
// LLM. An unparsable plan degrades to an empty step list; it is never
// an error.
type Planner struct {
	llm    interfaces.LLMService
	agents interfaces.AgentRegistry
	logger arbor.ILogger
}

// NewPlanner creates a workflow planner.
func NewPlanner(llm interfaces.LLMService, agents interfaces.AgentRegistry, logger arbor.ILogger) *Planner {
	return &Planner{llm: llm, agents: agents, logger: logger}
}

// Plan builds the step list for a goal. Steps naming an unknown agent
// are dropped; unknown dependency references drop the referring step.
func (p *Planner) Plan(ctx context.Context, goal string) ([]*models.WorkflowStep, error) {
	resp, err := p.llm.Generate(ctx, &interfaces.GenerateRequest{
		SystemInstruction: plannerSystem + "\n\nAvailable agents: " + strings.Join(p.agents.Names(), ", "),
		Messages: []interfaces.Message{
			{Role: "user", Content: "Goal: " + goal},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("planning generation failed: %w", err)
	}

	planned, parseErr := parsePlan(resp.Text)
	if parseErr != nil {
		if p.logger != nil {
			p.logger.Warn().Err(parseErr).Msg("Unparsable plan, degrading to empty workflow")
		}
		return nil, nil
	}

	steps := make([]*models.WorkflowStep, 0, len(planned.Steps))
	known := make(map[string]bool, len(planned.Steps))
	for i, ps := range planned.Steps {
		if ps.ID == "" {
			ps.ID = fmt.Sprintf("s%d", i+1)
		}
		if _, ok := p.agents.Get(ps.Agent); !ok {
			if p.logger != nil {
				p.logger.Warn().Str("agent", ps.Agent).Str("step", ps.ID).Msg("Plan names unknown agent, dropping step")
			}
			continue
		}
		valid := true
		for _, dep := range ps.DependsOn {
			if !known[dep] {
				if p.logger != nil {
					p.logger.Warn().Str("step", ps.ID).Str("dependency", dep).Msg("Plan references unknown dependency, dropping step")
				}
				valid = false
				break
			}
		}
		if !valid {
			continue
		}
		known[ps.ID] = true
		steps = append(steps, &models.WorkflowStep{
			ID:          ps.ID,
			Agent:       ps.Agent,
			Description: ps.Task,
			Params:      ps.Params,
			DependsOn:   ps.DependsOn,
			Status:      models.WorkflowStatusPlanning,
		})
	}
	return steps, nil
}

func parsePlan(raw string) (*plannedWorkflow, error) {
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
		return nil, fmt.Errorf("no JSON object in plan")
	}

	var planned plannedWorkflow
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &planned); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	if len(planned.Steps) == 0 {
		return nil, fmt.Errorf("plan carries no steps")
	}
	return &planned, nil
}
