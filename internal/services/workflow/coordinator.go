package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"golang.org/x/sync/errgroup"
)

// Coordinator plans a workflow for a goal, executes its steps in
// dependency order with independent steps running in parallel, and
// summarizes the outcome. The whole run is bounded by a wall-clock
// budget.
type Coordinator struct {
	config  *common.WorkflowConfig
	planner *Planner
	agents  interfaces.AgentRegistry
	llm     interfaces.LLMService
	storage interfaces.WorkflowStorage
	events  interfaces.EventService
	logger  arbor.ILogger
}

// NewCoordinator creates a workflow coordinator.
func NewCoordinator(
	config *common.WorkflowConfig,
	planner *Planner,
	agents interfaces.AgentRegistry,
	llm interfaces.LLMService,
	storage interfaces.WorkflowStorage,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Coordinator {
	return &Coordinator{
		config:  config,
		planner: planner,
		agents:  agents,
		llm:     llm,
		storage: storage,
		events:  events,
		logger:  logger,
	}
}

// Run plans and executes a workflow for the goal.
func (c *Coordinator) Run(ctx context.Context, goal string) (*models.Workflow, error) {
	wf := models.NewWorkflow(goal)
	c.save(ctx, wf)
	c.publish("workflow_started", goal, map[string]interface{}{"workflow_id": wf.ID})

	budgetCtx, cancel := context.WithTimeout(ctx, time.Duration(c.config.BudgetSeconds)*time.Second)
	defer cancel()

	steps, err := c.planner.Plan(budgetCtx, goal)
	if err != nil {
		wf.Status = models.WorkflowStatusFailed
		c.finish(ctx, wf)
		return wf, fmt.Errorf("workflow planning failed: %w", err)
	}
	if len(steps) > c.config.MaxSteps {
		steps = steps[:c.config.MaxSteps]
	}
	wf.Steps = steps

	if len(steps) == 0 {
		// Degraded plan: nothing to execute, summarize the empty run.
		wf.Status = models.WorkflowStatusCompleted
		wf.Summary = fallbackSummary(wf)
		c.finish(ctx, wf)
		return wf, nil
	}

	wf.Status = models.WorkflowStatusExecuting
	c.save(ctx, wf)

	c.executeSteps(budgetCtx, wf)

	wf.Status = models.WorkflowStatusCompleted
	for _, step := range wf.Steps {
		if step.Status == models.WorkflowStatusFailed {
			wf.Status = models.WorkflowStatusFailed
			break
		}
	}

	wf.Summary = c.summarize(budgetCtx, wf)
	c.finish(ctx, wf)
	c.publish("workflow_finished", goal, map[string]interface{}{
		"workflow_id": wf.ID,
		"status":      string(wf.Status),
	})
	return wf, nil
}

// executeSteps runs the ready-set scheduler: every pass executes all
// steps whose dependencies have completed, in parallel. A pass that
// finds work remaining but nothing ready means the plan is cyclic; the
// remaining steps are failed rather than waited on forever.
func (c *Coordinator) executeSteps(ctx context.Context, wf *models.Workflow) {
	var mu sync.Mutex

	for {
		mu.Lock()
		ready := make([]*models.WorkflowStep, 0, len(wf.Steps))
		remaining := 0
		for _, step := range wf.Steps {
			if step.Status.Terminal() {
				continue
			}
			remaining++
			if c.depsSatisfied(wf, step) {
				ready = append(ready, step)
			}
		}
		mu.Unlock()

		if remaining == 0 {
			return
		}
		if len(ready) == 0 {
			c.failRemaining(wf, "unresolvable dependencies (cycle or failed prerequisite)")
			return
		}

		g := new(errgroup.Group)
		for _, step := range ready {
			step := step
			g.Go(func() error {
				c.runStep(ctx, &mu, wf, step)
				return nil
			})
		}
		g.Wait()

		if ctx.Err() != nil {
			c.failRemaining(wf, "wall-clock budget exceeded")
			return
		}
	}
}

func (c *Coordinator) runStep(ctx context.Context, mu *sync.Mutex, wf *models.Workflow, step *models.WorkflowStep) {
	now := time.Now().UTC()
	mu.Lock()
	step.Status = models.WorkflowStatusExecuting
	step.StartedAt = &now
	mu.Unlock()

	stepCtx, cancel := context.WithTimeout(ctx, time.Duration(c.config.StepTimeoutSeconds)*time.Second)
	defer cancel()

	result, err := c.agents.Execute(stepCtx, step.Agent, step.Description, step.Params, c.dependencyContext(mu, wf, step))

	done := time.Now().UTC()
	mu.Lock()
	defer mu.Unlock()
	step.CompletedAt = &done

	switch {
	case err != nil:
		step.Status = models.WorkflowStatusFailed
		step.Error = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			step.Error = "step timeout exceeded"
		}
	case !result.Success:
		step.Status = models.WorkflowStatusFailed
		step.Error = result.Error
	default:
		step.Status = models.WorkflowStatusCompleted
		step.Result = result.Result
	}

	if c.logger != nil {
		c.logger.Info().
			Str("workflow_id", wf.ID).
			Str("step", step.ID).
			Str("status", string(step.Status)).
			Msg("Workflow step finished")
	}
	c.publish("step_finished", step.Description, map[string]interface{}{
		"workflow_id": wf.ID,
		"step":        step.ID,
		"status":      string(step.Status),
	})
}

// depsSatisfied reports whether every dependency of step completed.
// A failed dependency fails the step immediately.
func (c *Coordinator) depsSatisfied(wf *models.Workflow, step *models.WorkflowStep) bool {
	for _, depID := range step.DependsOn {
		dep := wf.Step(depID)
		if dep == nil || dep.Status == models.WorkflowStatusFailed || dep.Status == models.WorkflowStatusCancelled {
			step.Status = models.WorkflowStatusFailed
			step.Error = fmt.Sprintf("dependency %s did not complete", depID)
			return false
		}
		if dep.Status != models.WorkflowStatusCompleted {
			return false
		}
	}
	return true
}

// dependencyContext collects completed dependency results for a step.
func (c *Coordinator) dependencyContext(mu *sync.Mutex, wf *models.Workflow, step *models.WorkflowStep) map[string]interface{} {
	mu.Lock()
	defer mu.Unlock()
	if len(step.DependsOn) == 0 {
		return nil
	}
	deps := make(map[string]interface{}, len(step.DependsOn))
	for _, depID := range step.DependsOn {
		if dep := wf.Step(depID); dep != nil && dep.Result != "" {
			deps[depID] = dep.Result
		}
	}
	return map[string]interface{}{"dependency_results": deps}
}

func (c *Coordinator) failRemaining(wf *models.Workflow, reason string) {
	now := time.Now().UTC()
	for _, step := range wf.Steps {
		if step.Status.Terminal() {
			continue
		}
		step.Status = models.WorkflowStatusFailed
		if step.Error == "" {
			step.Error = reason
		}
		step.CompletedAt = &now
	}
	if c.logger != nil {
		c.logger.Warn().Str("workflow_id", wf.ID).Str("reason", reason).Msg("Failed remaining workflow steps")
	}
}

const summarySystem = `You summarize a finished research workflow for an investor.
Respond with ONE JSON object: {"executive_summary": "<two or three sentences>", "key_findings": ["..."], "recommendations": ["..."]}`

// summarize asks the model for the final summary; any failure falls
// back to a deterministic summary built from the step results.
func (c *Coordinator) summarize(ctx context.Context, wf *models.Workflow) *models.WorkflowSummary {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\nSteps:\n", wf.Goal)
	for _, step := range wf.Steps {
		fmt.Fprintf(&b, "- [%s] %s (%s)", step.ID, step.Description, step.Status)
		if step.Result != "" {
			fmt.Fprintf(&b, ": %s", step.Result)
		}
		if step.Error != "" {
			fmt.Fprintf(&b, " error: %s", step.Error)
		}
		b.WriteString("\n")
	}

	resp, err := c.llm.Generate(ctx, &interfaces.GenerateRequest{
		SystemInstruction: summarySystem,
		Messages:          []interfaces.Message{{Role: "user", Content: b.String()}},
	})
	if err != nil {
		if c.logger != nil {
			c.logger.Warn().Err(err).Str("workflow_id", wf.ID).Msg("Summary generation failed, using fallback")
		}
		return fallbackSummary(wf)
	}

	var summary models.WorkflowSummary
	cleaned := resp.Text
	if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}
	if err := json.Unmarshal([]byte(cleaned), &summary); err != nil || summary.ExecutiveSummary == "" {
		return fallbackSummary(wf)
	}
	return &summary
}

// fallbackSummary derives a deterministic summary from step outcomes.
func fallbackSummary(wf *models.Workflow) *models.WorkflowSummary {
	completed, failed := 0, 0
	findings := make([]string, 0, len(wf.Steps))
	for _, step := range wf.Steps {
		switch step.Status {
		case models.WorkflowStatusCompleted:
			completed++
			if step.Result != "" {
				findings = append(findings, fmt.Sprintf("%s: %s", step.Description, truncate(step.Result, 200)))
			}
		case models.WorkflowStatusFailed:
			failed++
		}
	}

	summary := &models.WorkflowSummary{
		ExecutiveSummary: fmt.Sprintf("Workflow %q finished with %d of %d steps completed (%d failed).",
			wf.Goal, completed, len(wf.Steps), failed),
		KeyFindings:     findings,
		Recommendations: []string{"Review the step results above before acting."},
		Fallback:        true,
	}
	if len(wf.Steps) == 0 {
		summary.ExecutiveSummary = fmt.Sprintf("No executable plan could be produced for %q.", wf.Goal)
		summary.Recommendations = []string{"Rephrase the goal and try again."}
	}
	return summary
}

// Get returns a stored workflow by id.
func (c *Coordinator) Get(ctx context.Context, id string) (*models.Workflow, error) {
	return c.storage.Get(ctx, id)
}

func (c *Coordinator) save(ctx context.Context, wf *models.Workflow) {
	if c.storage == nil {
		return
	}
	if err := c.storage.Save(ctx, wf); err != nil && c.logger != nil {
		c.logger.Error().Err(err).Str("workflow_id", wf.ID).Msg("Failed to save workflow")
	}
}

func (c *Coordinator) finish(ctx context.Context, wf *models.Workflow) {
	now := time.Now().UTC()
	wf.CompletedAt = &now
	c.save(ctx, wf)
}

func (c *Coordinator) publish(eventType, message string, data map[string]interface{}) {
	if c.events == nil {
		return
	}
	c.events.Publish(interfaces.Event{
		Type:      eventType,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

var _ interfaces.WorkflowService = (*Coordinator)(nil)
