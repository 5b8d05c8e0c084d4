package workflow

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewGraphValidation(t *testing.T) {
	tests := []struct {
		name    string
		start   Step
		nodes   map[Step]Node
		wantErr bool
	}{
		{
			name:    "empty graph",
			start:   "a",
			nodes:   map[Step]Node{},
			wantErr: true,
		},
		{
			name:  "unknown start",
			start: "missing",
			nodes: map[Step]Node{
				"a": {Phase: PhaseBuilding, Terminal: true},
			},
			wantErr: true,
		},
		{
			name:  "no terminal",
			start: "a",
			nodes: map[Step]Node{
				"a": {Phase: PhaseBuilding},
			},
			wantErr: true,
		},
		{
			name:  "two terminals",
			start: "a",
			nodes: map[Step]Node{
				"a": {Phase: PhaseBuilding, Terminal: true},
				"b": {Phase: PhaseBuilding, Terminal: true},
			},
			wantErr: true,
		},
		{
			name:  "transition to unknown step",
			start: "a",
			nodes: map[Step]Node{
				"a": {Phase: PhaseBuilding, Terminal: true, Transitions: map[Trigger]Step{"go": "missing"}},
			},
			wantErr: true,
		},
		{
			name:  "invalid phase",
			start: "a",
			nodes: map[Step]Node{
				"a": {Phase: "bogus", Terminal: true},
			},
			wantErr: true,
		},
		{
			name:  "unreachable step",
			start: "a",
			nodes: map[Step]Node{
				"a": {Phase: PhaseBuilding, Terminal: true},
				"b": {Phase: PhaseBuilding},
			},
			wantErr: true,
		},
		{
			name:  "valid",
			start: "a",
			nodes: map[Step]Node{
				"a": {Phase: PhasePlanning, Transitions: map[Trigger]Step{"go": "b"}},
				"b": {Phase: PhaseBuilding, Terminal: true},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.start, tt.nodes)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGraph error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadGraphFile(t *testing.T) {
	content := `
start: draft
steps:
  draft:
    phase: requirement_gathering
    transitions:
      assess: build
  build:
    phase: building
    terminal: true
`
	path := filepath.Join(t.TempDir(), "graph.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	g, err := LoadGraphFile(path)
	if err != nil {
		t.Fatalf("LoadGraphFile: %v", err)
	}
	if g.Start() != "draft" {
		t.Errorf("start = %q, want draft", g.Start())
	}
	if got := g.PhaseOf("build"); got != PhaseBuilding {
		t.Errorf("PhaseOf(build) = %q, want %q", got, PhaseBuilding)
	}
	if got := g.Triggers("draft"); len(got) != 1 || got[0] != "assess" {
		t.Errorf("Triggers(draft) = %v, want [assess]", got)
	}
}

func TestDefaultGraphTriggersSorted(t *testing.T) {
	g := DefaultGraph()
	got := g.Triggers(StepIterateThroughTasks)
	if len(got) != 2 || got[0] != TriggerComplete || got[1] != TriggerRepeat {
		t.Errorf("Triggers = %v, want [complete repeat]", got)
	}
}
