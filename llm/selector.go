package llm

import (
	"sort"
	"strings"
	"sync"

	"github.com/c360studio/semflow/workflow"
)

// PhaseModels configures model preference for one workflow phase.
type PhaseModels struct {
	// Model is the primary model for the phase.
	Model string

	// Fallbacks are tried in order when the primary is unavailable.
	Fallbacks []string
}

// FallbackResult reports which model a selection resolved to. Ephemeral,
// returned per selection call.
type FallbackResult struct {
	// SelectedModel is the model to invoke.
	SelectedModel string

	// WasFallback is true when the phase had no configured model and the
	// global fallback was substituted.
	WasFallback bool

	// OriginalModel is the requested phase's configured model when a
	// substitution happened, empty otherwise.
	OriginalModel string
}

// Selector resolves per-phase model choices and fallback chains.
type Selector struct {
	mu             sync.RWMutex
	phases         map[workflow.Phase]PhaseModels
	globalFallback string
}

// NewSelector creates a selector from per-phase preferences and a single
// global fallback model. The global fallback terminates every chain.
func NewSelector(phases map[workflow.Phase]PhaseModels, globalFallback string) *Selector {
	copied := make(map[workflow.Phase]PhaseModels, len(phases))
	for phase, pm := range phases {
		fallbacks := make([]string, len(pm.Fallbacks))
		copy(fallbacks, pm.Fallbacks)
		pm.Fallbacks = fallbacks
		copied[phase] = pm
	}
	return &Selector{
		phases:         copied,
		globalFallback: globalFallback,
	}
}

// SelectModel returns the configured model for a phase. An unconfigured
// phase falls back to the global fallback and flags the substitution.
func (s *Selector) SelectModel(phase workflow.Phase) FallbackResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pm, ok := s.phases[phase]; ok && pm.Model != "" {
		return FallbackResult{SelectedModel: pm.Model}
	}
	return FallbackResult{
		SelectedModel: s.globalFallback,
		WasFallback:   true,
	}
}

// FallbackChain returns the ordered models to try for a phase: the primary,
// the phase fallbacks, then the global fallback if not already present.
// Duplicates are removed case-insensitively, first occurrence wins.
func (s *Selector) FallbackChain(phase workflow.Phase) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainLocked(phase)
}

func (s *Selector) chainLocked(phase workflow.Phase) []string {
	var chain []string
	seen := make(map[string]bool)

	add := func(model string) {
		if model == "" {
			return
		}
		key := strings.ToLower(model)
		if seen[key] {
			return
		}
		seen[key] = true
		chain = append(chain, model)
	}

	if pm, ok := s.phases[phase]; ok {
		add(pm.Model)
		for _, fb := range pm.Fallbacks {
			add(fb)
		}
	}
	add(s.globalFallback)
	return chain
}

// ChainForModel resolves the fallback chain for an arbitrary requested
// model: the chain of the phase whose primary matches it, preferring the
// longest chain when several phases share the primary. A model that is no
// phase's primary degrades to [model, globalFallback].
func (s *Selector) ChainForModel(model string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best []string
	// Sort phases for deterministic tie-breaking.
	phases := make([]workflow.Phase, 0, len(s.phases))
	for phase := range s.phases {
		phases = append(phases, phase)
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i] < phases[j] })

	for _, phase := range phases {
		if !strings.EqualFold(s.phases[phase].Model, model) {
			continue
		}
		chain := s.chainLocked(phase)
		if len(chain) > len(best) {
			best = chain
		}
	}
	if best != nil {
		return best
	}

	chain := []string{model}
	if s.globalFallback != "" && !strings.EqualFold(s.globalFallback, model) {
		chain = append(chain, s.globalFallback)
	}
	return chain
}

// GlobalFallback returns the configured global fallback model.
func (s *Selector) GlobalFallback() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.globalFallback
}
