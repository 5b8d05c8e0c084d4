package llm

import (
	"strings"
	"testing"

	"github.com/c360studio/semflow/workflow"
)

func testSelector() *Selector {
	return NewSelector(map[workflow.Phase]PhaseModels{
		workflow.PhasePlanning: {
			Model:     "claude-opus",
			Fallbacks: []string{"claude-sonnet", "Claude-Opus", "qwen"},
		},
		workflow.PhaseBuilding: {
			Model:     "claude-sonnet",
			Fallbacks: []string{"qwen"},
		},
		workflow.PhaseResearch: {
			Model: "claude-sonnet",
		},
	}, "llama3.2")
}

func TestSelectModel(t *testing.T) {
	s := testSelector()

	got := s.SelectModel(workflow.PhasePlanning)
	if got.SelectedModel != "claude-opus" || got.WasFallback {
		t.Errorf("SelectModel(planning) = %+v, want claude-opus without fallback", got)
	}

	// Unconfigured phase falls back to the global default.
	got = s.SelectModel(workflow.PhaseRequirementGathering)
	if got.SelectedModel != "llama3.2" || !got.WasFallback {
		t.Errorf("SelectModel(requirement_gathering) = %+v, want global fallback flagged", got)
	}
}

func TestFallbackChainNoDuplicates(t *testing.T) {
	s := testSelector()

	chain := s.FallbackChain(workflow.PhasePlanning)

	// "Claude-Opus" duplicates the primary case-insensitively.
	want := []string{"claude-opus", "claude-sonnet", "qwen", "llama3.2"}
	if len(chain) != len(want) {
		t.Fatalf("chain = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("chain[%d] = %q, want %q", i, chain[i], want[i])
		}
	}

	seen := map[string]bool{}
	for _, m := range chain {
		key := strings.ToLower(m)
		if seen[key] {
			t.Errorf("chain contains duplicate model %q", m)
		}
		seen[key] = true
	}
}

func TestFallbackChainEndsWithGlobalFallback(t *testing.T) {
	s := testSelector()

	for _, phase := range []workflow.Phase{
		workflow.PhaseRequirementGathering,
		workflow.PhasePlanning,
		workflow.PhaseBuilding,
		workflow.PhaseResearch,
	} {
		chain := s.FallbackChain(phase)
		if len(chain) == 0 {
			t.Fatalf("empty chain for phase %s", phase)
		}
		found := false
		for _, m := range chain {
			if strings.EqualFold(m, "llama3.2") {
				found = true
			}
		}
		if !found {
			t.Errorf("phase %s: chain %v does not contain global fallback", phase, chain)
		}
	}

	// Global fallback already in the phase list is not appended twice.
	s2 := NewSelector(map[workflow.Phase]PhaseModels{
		workflow.PhaseBuilding: {Model: "qwen", Fallbacks: []string{"LLAMA3.2"}},
	}, "llama3.2")
	chain := s2.FallbackChain(workflow.PhaseBuilding)
	if len(chain) != 2 {
		t.Errorf("chain = %v, want [qwen LLAMA3.2]", chain)
	}
}

func TestChainForModel(t *testing.T) {
	s := testSelector()

	// claude-sonnet is primary for both building (chain len 3) and research
	// (chain len 2); the longest chain wins.
	chain := s.ChainForModel("claude-sonnet")
	want := []string{"claude-sonnet", "qwen", "llama3.2"}
	if len(chain) != len(want) {
		t.Fatalf("chain = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("chain[%d] = %q, want %q", i, chain[i], want[i])
		}
	}

	// A model that is no phase's primary degrades to [model, global].
	chain = s.ChainForModel("mystery-model")
	if len(chain) != 2 || chain[0] != "mystery-model" || chain[1] != "llama3.2" {
		t.Errorf("chain = %v, want [mystery-model llama3.2]", chain)
	}

	// Matching is case-insensitive.
	chain = s.ChainForModel("CLAUDE-OPUS")
	if len(chain) != 4 || chain[0] != "claude-opus" {
		t.Errorf("chain = %v, want planning chain", chain)
	}
}
