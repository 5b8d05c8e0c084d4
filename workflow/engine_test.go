package workflow

import (
	"testing"
)

func TestEngineInitialize(t *testing.T) {
	e := NewEngine(nil)

	if err := e.Initialize(""); err == nil {
		t.Fatal("expected error for empty module name")
	}

	if err := e.Initialize("billing"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := e.CurrentStep(); got != StepDraftSpecification {
		t.Errorf("start step = %q, want %q", got, StepDraftSpecification)
	}
	if got := e.CurrentPhase(); got != PhaseRequirementGathering {
		t.Errorf("start phase = %q, want %q", got, PhaseRequirementGathering)
	}
	if e.IsComplete() {
		t.Error("fresh engine should not be complete")
	}
}

func TestEngineFireIllegalTrigger(t *testing.T) {
	e := NewEngine(nil)
	if err := e.Initialize("billing"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	before := e.CurrentStep()
	if e.Fire(TriggerComplete) {
		t.Error("illegal trigger should return false")
	}
	if got := e.CurrentStep(); got != before {
		t.Errorf("illegal trigger changed step: %q -> %q", before, got)
	}
}

func TestEngineFireAllIllegalTriggersLeaveStepUnchanged(t *testing.T) {
	// Property: for all steps S and triggers T, Fire(T) with T not in
	// PermittedTriggers returns false and leaves CurrentStep unchanged.
	all := []Trigger{TriggerAssess, TriggerAdvance, TriggerComplete, TriggerRepeat, "bogus"}

	e := NewEngine(nil)
	if err := e.Initialize("billing"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	for steps := 0; steps < 10 && !e.IsComplete(); steps++ {
		permitted := map[Trigger]bool{}
		for _, tr := range e.PermittedTriggers() {
			permitted[tr] = true
		}
		before := e.CurrentStep()
		for _, tr := range all {
			if permitted[tr] {
				continue
			}
			if e.Fire(tr) {
				t.Fatalf("step %q: illegal trigger %q fired", before, tr)
			}
			if e.CurrentStep() != before {
				t.Fatalf("step %q: illegal trigger %q mutated state", before, tr)
			}
		}
		// Advance via the first permitted trigger.
		triggers := e.PermittedTriggers()
		if len(triggers) == 0 {
			break
		}
		if !e.Fire(triggers[0]) {
			t.Fatalf("permitted trigger %q rejected at step %q", triggers[0], before)
		}
	}
}

func TestEnginePhaseDerivedFromStep(t *testing.T) {
	e := NewEngine(nil)
	if err := e.Initialize("billing"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	want := map[Step]Phase{
		StepDraftSpecification:  PhaseRequirementGathering,
		StepIdentifyComponents:  PhasePlanning,
		StepIterateThroughTasks: PhaseBuilding,
	}

	for e.CurrentStep() != StepIterateThroughTasks {
		if phase, ok := want[e.CurrentStep()]; ok && e.CurrentPhase() != phase {
			t.Errorf("step %q: phase = %q, want %q", e.CurrentStep(), e.CurrentPhase(), phase)
		}
		if !e.Fire(TriggerAssess) {
			t.Fatalf("assess rejected at %q", e.CurrentStep())
		}
	}
	if e.CurrentPhase() != PhaseBuilding {
		t.Errorf("phase = %q, want %q", e.CurrentPhase(), PhaseBuilding)
	}
}

func TestEngineTerminalStep(t *testing.T) {
	e := NewEngine(nil)
	if err := e.Initialize("billing"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	e.Fire(TriggerAssess)   // -> identify_components
	e.Fire(TriggerAssess)   // -> iterate_through_tasks
	e.Fire(TriggerRepeat)   // -> repeat
	e.Fire(TriggerAdvance)  // -> iterate_through_tasks
	e.Fire(TriggerComplete) // -> complete (terminal)

	if !e.IsComplete() {
		t.Fatal("expected complete after terminal step")
	}
	if e.Fire(TriggerAssess) {
		t.Error("Fire on completed workflow should return false")
	}
	if got := e.PermittedTriggers(); len(got) != 0 {
		t.Errorf("completed workflow permits triggers: %v", got)
	}
}

func TestEngineRestore(t *testing.T) {
	e := NewEngine(nil)
	if err := e.Restore("billing", StepIterateThroughTasks); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if e.CurrentPhase() != PhaseBuilding {
		t.Errorf("restored phase = %q, want %q", e.CurrentPhase(), PhaseBuilding)
	}

	if err := e.Restore("billing", "nonexistent"); err == nil {
		t.Error("expected error restoring to unknown step")
	}
}
