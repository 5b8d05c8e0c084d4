package prompt

import (
	"fmt"
	"strings"

	"github.com/c360studio/semflow/agentic"
	"github.com/c360studio/semflow/workflow"
)

// phaseInstructions carries the per-phase guidance block. Keyed by phase so
// a custom step graph with its own phases degrades to the generic role text
// instead of failing.
var phaseInstructions = map[workflow.Phase]string{
	workflow.PhaseRequirementGathering: "Gather and refine requirements. Ask clarifying questions through the available tools, draft the specification, and iterate until it is unambiguous.",
	workflow.PhasePlanning:             "Break the specification into components and ordered tasks. Each task needs explicit acceptance criteria.",
	workflow.PhaseBuilding:             "Work through tasks one at a time. Verify each task with the verification tools before marking it complete. Never claim completion without a passing verification in this invocation.",
	workflow.PhaseResearch:             "Investigate the open question. Collect evidence with the available tools and summarize findings with sources.",
}

const rolePreamble = "You are a software development agent working through a phased workflow. Use only the tools offered for the current phase. Keep changes scoped to the active module."

// BuildInput is everything an iteration's system prompt is assembled from.
type BuildInput struct {
	// Module is the module under development.
	Module string

	// Step and Phase describe current workflow position.
	Step  workflow.Step
	Phase workflow.Phase

	// Tools are the definitions offered this phase.
	Tools []agentic.ToolDefinition

	// Sections is budget-managed context, most important first.
	Sections []Section

	// Budget is the token allowance for Sections only; the fixed scaffolding
	// around them is not counted against it.
	Budget int

	// GuardrailFeedback is a pre-formatted markdown block from the previous
	// iteration's pipeline result, empty when the pipeline passed.
	GuardrailFeedback string
}

// BuildSystemPrompt assembles the system prompt for one invocation: role,
// workflow position, phase instructions, budget-trimmed context sections,
// the tool listing, and any pending guardrail feedback.
func BuildSystemPrompt(in BuildInput) (string, error) {
	fitted, err := FitToBudget(in.Sections, in.Budget)
	if err != nil {
		return "", fmt.Errorf("build system prompt: %w", err)
	}

	var b strings.Builder
	b.WriteString(rolePreamble)
	b.WriteString("\n\n## Workflow state\n\n")
	fmt.Fprintf(&b, "Module: %s\nPhase: %s\nStep: %s\n", in.Module, in.Phase, in.Step)

	if instructions, ok := phaseInstructions[in.Phase]; ok {
		b.WriteString("\n## Phase instructions\n\n")
		b.WriteString(instructions)
		b.WriteString("\n")
	}

	for _, s := range fitted {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", s.Title, s.Content)
	}

	if len(in.Tools) > 0 {
		b.WriteString("\n## Available tools\n\n")
		for _, tool := range in.Tools {
			fmt.Fprintf(&b, "- %s: %s\n", tool.Name, tool.Description)
		}
	}

	if in.GuardrailFeedback != "" {
		b.WriteString("\n")
		b.WriteString(in.GuardrailFeedback)
	}

	return b.String(), nil
}
