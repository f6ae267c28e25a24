package agents

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

// Registry resolves agents by name and runs tasks under the
// configured per-task timeout.
type Registry struct {
	config *common.AgentsConfig
	logger arbor.ILogger

	mu     sync.RWMutex
	agents map[string]interfaces.AgentExecutor
}

// NewRegistry creates an empty agent registry.
func NewRegistry(config *common.AgentsConfig, logger arbor.ILogger) *Registry {
	return &Registry{
		config: config,
		logger: logger,
		agents: make(map[string]interfaces.AgentExecutor),
	}
}

// Register adds an agent to the registry.
func (r *Registry) Register(agent interfaces.AgentExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.Name()] = agent
	if r.logger != nil {
		r.logger.Info().Str("agent", agent.Name()).Msg("Agent registered")
	}
}

// Get resolves an agent by name.
func (r *Registry) Get(name string) (interfaces.AgentExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[name]
	return agent, ok
}

// Names returns the registered agent names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs one task on the named agent under the task timeout.
func (r *Registry) Execute(ctx context.Context, agentName, task string, params map[string]interface{}, taskContext map[string]interface{}) (*interfaces.TaskResult, error) {
	agent, ok := r.Get(agentName)
	if !ok {
		return nil, fmt.Errorf("unknown agent: %s", agentName)
	}

	taskCtx, cancel := context.WithTimeout(ctx, time.Duration(r.config.TaskTimeoutSeconds)*time.Second)
	defer cancel()

	start := time.Now()
	result, err := agent.Execute(taskCtx, task, params, taskContext)
	if err != nil {
		if r.logger != nil {
			r.logger.Error().
				Err(err).
				Str("agent", agentName).
				Dur("duration", time.Since(start)).
				Msg("Agent task failed")
		}
		return nil, err
	}

	if r.logger != nil {
		r.logger.Info().
			Str("agent", agentName).
			Bool("success", result.Success).
			Int("tools_used", len(result.ToolsUsed)).
			Dur("duration", time.Since(start)).
			Msg("Agent task completed")
	}
	return result, nil
}

var _ interfaces.AgentRegistry = (*Registry)(nil)
