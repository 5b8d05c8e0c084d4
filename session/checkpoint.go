// Package session persists workflow run state so interrupted runs can
// resume. Checkpoints are written at step and phase boundaries and at task
// completion or failure, never mid-iteration: the loop between checkpoints is
// re-runnable, so resolution finer than a boundary buys nothing.
package session

import (
	"context"
	"errors"
	"time"
)

// Event classifies what a checkpoint records.
type Event string

const (
	// EventStepCompleted marks a workflow step transition.
	EventStepCompleted Event = "step_completed"

	// EventTaskCompleted marks a task passing its verification gate.
	EventTaskCompleted Event = "task_completed"

	// EventTaskFailed marks a task surfacing a non-recoverable failure.
	EventTaskFailed Event = "task_failed"

	// EventPhaseTransition marks entry into a new phase.
	EventPhaseTransition Event = "phase_transition"

	// EventRunInterrupted marks a guardrail block or invocation failure.
	EventRunInterrupted Event = "run_interrupted"
)

// ErrNotFound is returned when no checkpoint exists for a module.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is a resumable snapshot of one module's workflow position.
type Checkpoint struct {
	Module    string    `json:"module"`
	Step      string    `json:"step"`
	Phase     string    `json:"phase"`
	TaskID    string    `json:"task_id,omitempty"`
	Component string    `json:"component,omitempty"`
	CommitRef string    `json:"commit_ref,omitempty"`
	Event     Event     `json:"event"`
	At        time.Time `json:"at"`
}

// Store persists checkpoints keyed by module. A later Save for the same
// module replaces the earlier checkpoint; history beyond the latest snapshot
// is not this package's concern.
type Store interface {
	// Save writes the checkpoint, replacing any existing one for the module.
	Save(ctx context.Context, cp Checkpoint) error

	// Load returns the latest checkpoint for the module, or ErrNotFound.
	Load(ctx context.Context, module string) (*Checkpoint, error)

	// Delete removes the module's checkpoint. Deleting a missing checkpoint
	// is not an error.
	Delete(ctx context.Context, module string) error
}
