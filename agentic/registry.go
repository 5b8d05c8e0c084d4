package agentic

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry binds tool names to executors at runtime. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]ToolExecutor
	defs      map[string]ToolDefinition
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]ToolExecutor),
		defs:      make(map[string]ToolDefinition),
	}
}

// Register binds every tool listed by the executor. Registering a name that
// is already bound is an error; tools are bound once at startup.
func (r *Registry) Register(exec ToolExecutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, def := range exec.ListTools() {
		if _, exists := r.executors[def.Name]; exists {
			return fmt.Errorf("tool already registered: %s", def.Name)
		}
		r.executors[def.Name] = exec
		r.defs[def.Name] = def
	}
	return nil
}

// Lookup returns the executor bound to a tool name.
func (r *Registry) Lookup(name string) (ToolExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.executors[name]
	return exec, ok
}

// ToolsForPhase returns the definitions offered in the given phase, sorted
// by name. Definitions with no phase list are offered everywhere.
func (r *Registry) ToolsForPhase(phase string) []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var defs []ToolDefinition
	for _, def := range r.defs {
		if len(def.Phases) == 0 {
			defs = append(defs, def)
			continue
		}
		for _, p := range def.Phases {
			if p == phase {
				defs = append(defs, def)
				break
			}
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute dispatches the call to the executor bound to its tool name, making
// the registry itself usable as a ToolExecutor.
func (r *Registry) Execute(ctx context.Context, call ToolCall) (ToolResult, error) {
	exec, ok := r.Lookup(call.Name)
	if !ok {
		return ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("unknown tool: %s", call.Name),
		}, fmt.Errorf("unknown tool: %s", call.Name)
	}
	return exec.Execute(ctx, call)
}

// ListTools returns every registered definition, sorted by name.
func (r *Registry) ListTools() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
