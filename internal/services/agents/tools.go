package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ToolHandler executes one tool call. The returned string is fed back
// to the model as an observation.
type ToolHandler func(ctx context.Context, params map[string]interface{}) (string, error)

// Tool is one capability an agent may invoke during its reasoning
// loop. Params is a JSON-schema object describing the accepted
// parameters; a nil schema means the tool takes none.
type Tool struct {
	Name        string
	Description string
	Params      map[string]interface{}
	Handler     ToolHandler
}

// objectSchema builds a JSON-schema object from its properties.
func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ToolRegistry holds the fixed toolset of one agent.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewToolRegistry creates an empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Registering the same name twice replaces the
// earlier tool.
func (r *ToolRegistry) Register(tool *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// Get resolves a tool by name.
func (r *ToolRegistry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names, sorted.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe renders the toolset for the agent's system prompt.
func (r *ToolRegistry) Describe() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		tool := r.tools[name]
		fmt.Fprintf(&b, "- %s: %s", name, tool.Description)
		if tool.Params != nil {
			if encoded, err := json.Marshal(tool.Params); err == nil {
				fmt.Fprintf(&b, " Parameters: %s", encoded)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Invoke runs the named tool. An unknown tool or a tool failure is
// returned as an observation string so the reasoning loop can recover.
func (r *ToolRegistry) Invoke(ctx context.Context, name string, params map[string]interface{}) string {
	tool, ok := r.Get(name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q. Available tools: %s", name, strings.Join(r.Names(), ", "))
	}

	result, err := tool.Handler(ctx, params)
	if err != nil {
		return fmt.Sprintf("Error: tool %s failed: %v", name, err)
	}
	return result
}
