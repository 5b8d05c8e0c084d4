// Package workflow implements the phase/step state machine that governs a
// module's progression through the development workflow. Steps are nodes in a
// per-phase graph, triggers are edge labels, and the engine tracks exactly one
// current step per module. The step graph is configuration, not code: callers
// load it from YAML or use DefaultGraph.
package workflow

import "fmt"

// Phase classifies a workflow step into one of the top-level stages.
type Phase string

const (
	// PhaseRequirementGathering covers requirement capture and specification drafting.
	PhaseRequirementGathering Phase = "requirement_gathering"

	// PhasePlanning covers component identification and plan generation.
	PhasePlanning Phase = "planning"

	// PhaseBuilding covers iterative task implementation.
	PhaseBuilding Phase = "building"

	// PhaseResearch covers exploratory investigation outside the main flow.
	PhaseResearch Phase = "research"
)

// IsValid returns true if the phase is recognized.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseRequirementGathering, PhasePlanning, PhaseBuilding, PhaseResearch:
		return true
	}
	return false
}

// ParsePhase converts a string to a Phase, returning an error for unknown values.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown phase: %q", s)
	}
	return p, nil
}

// Step is a named node in the workflow graph. Each step belongs to exactly
// one phase.
type Step string

// Evidenced steps of the default graph.
const (
	StepDraftSpecification  Step = "draft_specification"
	StepIdentifyComponents  Step = "identify_components"
	StepIterateThroughTasks Step = "iterate_through_tasks"
	StepRepeat              Step = "repeat"
	StepComplete            Step = "complete"
)

// Trigger is a named edge label. Firing a trigger from the current step
// either transitions to a new step or is rejected.
type Trigger string

// Triggers of the default graph.
const (
	TriggerAssess   Trigger = "assess"
	TriggerAdvance  Trigger = "advance"
	TriggerComplete Trigger = "complete"
	TriggerRepeat   Trigger = "repeat"
)
