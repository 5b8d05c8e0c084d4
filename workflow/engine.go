package workflow

import (
	"errors"
	"sync"
)

// ErrModuleRequired is returned when Initialize is called without a module name.
var ErrModuleRequired = errors.New("module name is required")

// Engine tracks the current step of one module's workflow run. The current
// phase is always derived from the current step through the graph, never
// stored independently, so phase and step cannot diverge.
//
// Illegal triggers are benign: Fire returns false and leaves the state
// unchanged. Callers probe PermittedTriggers and adapt.
type Engine struct {
	mu       sync.RWMutex
	graph    *Graph
	module   string
	current  Step
	complete bool
}

// NewEngine creates an engine over the given step graph. A nil graph uses
// DefaultGraph.
func NewEngine(graph *Graph) *Engine {
	if graph == nil {
		graph = DefaultGraph()
	}
	return &Engine{graph: graph}
}

// Initialize resets the engine to the graph's start step for a fresh module.
func (e *Engine) Initialize(module string) error {
	if module == "" {
		return ErrModuleRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.module = module
	e.current = e.graph.Start()
	e.complete = false
	return nil
}

// Fire attempts a transition. It returns false, with no state change, when
// the trigger is not permitted from the current step or the workflow is
// already complete.
func (e *Engine) Fire(trigger Trigger) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.complete || e.current == "" {
		return false
	}

	node, ok := e.graph.Node(e.current)
	if !ok {
		return false
	}
	next, ok := node.Transitions[trigger]
	if !ok {
		return false
	}

	e.current = next
	if target, ok := e.graph.Node(next); ok && target.Terminal {
		e.complete = true
	}
	return true
}

// PermittedTriggers enumerates the legal triggers from the current step.
// A completed workflow permits none.
func (e *Engine) PermittedTriggers() []Trigger {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.complete {
		return nil
	}
	return e.graph.Triggers(e.current)
}

// CurrentStep returns the current step.
func (e *Engine) CurrentStep() Step {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// CurrentPhase returns the phase of the current step.
func (e *Engine) CurrentPhase() Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.PhaseOf(e.current)
}

// IsComplete reports whether the terminal step has been reached.
func (e *Engine) IsComplete() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.complete
}

// Module returns the module name this engine was initialized with.
func (e *Engine) Module() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.module
}

// Restore sets the engine to a previously checkpointed step. Used when
// resuming a run from session state. Restoring an unknown step is rejected.
func (e *Engine) Restore(module string, step Step) error {
	if module == "" {
		return ErrModuleRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	node, ok := e.graph.Node(step)
	if !ok {
		return errors.New("cannot restore to unknown step: " + string(step))
	}

	e.module = module
	e.current = step
	e.complete = node.Terminal
	return nil
}
