package workflow

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for graph construction.
var (
	ErrNoSteps         = errors.New("graph has no steps")
	ErrNoStartStep     = errors.New("graph has no start step")
	ErrNoTerminalStep  = errors.New("graph has no terminal step")
	ErrUnknownNextStep = errors.New("transition targets unknown step")
	ErrUnreachableStep = errors.New("step is unreachable from the start step")
)

// Node describes a single step in the graph: its phase, whether it is the
// terminal step, and the triggers permitted from it.
type Node struct {
	// Phase is the workflow phase this step belongs to.
	Phase Phase `yaml:"phase"`

	// Terminal marks the designated completion step. At most one node may
	// set this.
	Terminal bool `yaml:"terminal,omitempty"`

	// Transitions maps trigger names to next steps.
	Transitions map[Trigger]Step `yaml:"transitions,omitempty"`
}

// Graph is an immutable step graph. Build one with NewGraph or LoadGraphFile;
// a validated graph is safe for concurrent readers.
type Graph struct {
	start Step
	nodes map[Step]Node
}

// GraphFile is the on-disk YAML representation of a step graph.
type GraphFile struct {
	Start Step          `yaml:"start"`
	Steps map[Step]Node `yaml:"steps"`
}

// NewGraph validates and constructs a step graph.
func NewGraph(start Step, nodes map[Step]Node) (*Graph, error) {
	if len(nodes) == 0 {
		return nil, ErrNoSteps
	}
	if _, ok := nodes[start]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoStartStep, start)
	}

	terminals := 0
	for step, node := range nodes {
		if !node.Phase.IsValid() {
			return nil, fmt.Errorf("step %q: unknown phase %q", step, node.Phase)
		}
		if node.Terminal {
			terminals++
		}
		for trigger, next := range node.Transitions {
			if _, ok := nodes[next]; !ok {
				return nil, fmt.Errorf("%w: %q -> %q via %q", ErrUnknownNextStep, step, next, trigger)
			}
		}
	}
	if terminals == 0 {
		return nil, ErrNoTerminalStep
	}
	if terminals > 1 {
		return nil, fmt.Errorf("graph has %d terminal steps, want exactly 1", terminals)
	}

	reachable := map[Step]bool{start: true}
	frontier := []Step{start}
	for len(frontier) > 0 {
		step := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		for _, next := range nodes[step].Transitions {
			if !reachable[next] {
				reachable[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	for step := range nodes {
		if !reachable[step] {
			return nil, fmt.Errorf("%w: %q", ErrUnreachableStep, step)
		}
	}

	// Copy nodes so later mutation of the caller's map cannot corrupt the graph.
	copied := make(map[Step]Node, len(nodes))
	for step, node := range nodes {
		transitions := make(map[Trigger]Step, len(node.Transitions))
		for t, s := range node.Transitions {
			transitions[t] = s
		}
		node.Transitions = transitions
		copied[step] = node
	}

	return &Graph{start: start, nodes: copied}, nil
}

// LoadGraphFile loads and validates a step graph from a YAML file.
func LoadGraphFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph file: %w", err)
	}

	var file GraphFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse graph file: %w", err)
	}

	return NewGraph(file.Start, file.Steps)
}

// Start returns the graph's starting step.
func (g *Graph) Start() Step {
	return g.start
}

// Node returns the node for a step and whether it exists.
func (g *Graph) Node(step Step) (Node, bool) {
	node, ok := g.nodes[step]
	return node, ok
}

// PhaseOf returns the phase a step belongs to. Unknown steps return the
// empty phase.
func (g *Graph) PhaseOf(step Step) Phase {
	return g.nodes[step].Phase
}

// Triggers returns the permitted triggers from a step, sorted for
// deterministic output.
func (g *Graph) Triggers(step Step) []Trigger {
	node, ok := g.nodes[step]
	if !ok {
		return nil
	}
	triggers := make([]Trigger, 0, len(node.Transitions))
	for t := range node.Transitions {
		triggers = append(triggers, t)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}

// DefaultGraph returns the built-in step graph covering the standard
// requirement-gathering, planning and building progression.
func DefaultGraph() *Graph {
	g, err := NewGraph(StepDraftSpecification, map[Step]Node{
		StepDraftSpecification: {
			Phase: PhaseRequirementGathering,
			Transitions: map[Trigger]Step{
				TriggerAssess: StepIdentifyComponents,
			},
		},
		StepIdentifyComponents: {
			Phase: PhasePlanning,
			Transitions: map[Trigger]Step{
				TriggerAssess: StepIterateThroughTasks,
			},
		},
		StepIterateThroughTasks: {
			Phase: PhaseBuilding,
			Transitions: map[Trigger]Step{
				TriggerRepeat:   StepRepeat,
				TriggerComplete: StepComplete,
			},
		},
		StepRepeat: {
			Phase: PhaseBuilding,
			Transitions: map[Trigger]Step{
				TriggerAdvance: StepIterateThroughTasks,
			},
		},
		StepComplete: {
			Phase:    PhaseBuilding,
			Terminal: true,
		},
	})
	if err != nil {
		// The built-in graph is a constant; a validation failure here is a bug.
		panic(fmt.Sprintf("default graph invalid: %v", err))
	}
	return g
}
