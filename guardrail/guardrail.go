// Package guardrail provides back-pressure checks run after each model
// invocation. Guardrails are pure functions of a per-evaluation context
// snapshot: any counters they inspect are owned by the orchestration loop and
// passed in fresh each time, so evaluating the same snapshot twice yields the
// same result.
package guardrail

import (
	"context"
	"fmt"
)

// Status classifies a guardrail result.
type Status int

const (
	// StatusPass indicates compliant usage.
	StatusPass Status = iota

	// StatusWarn indicates advisory feedback that should be surfaced to the
	// model on the next iteration.
	StatusWarn

	// StatusBlock indicates the run must stop pending external intervention.
	StatusBlock
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusBlock:
		return "block"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result is the outcome of one guardrail evaluation, or of a whole pipeline
// run. Message is empty for a pass.
type Result struct {
	Status  Status
	Message string
}

// Pass returns a passing result.
func Pass() Result {
	return Result{Status: StatusPass}
}

// Warnf returns a warning result with a formatted message.
func Warnf(format string, args ...any) Result {
	return Result{Status: StatusWarn, Message: fmt.Sprintf(format, args...)}
}

// Blockf returns a blocking result with a formatted message.
func Blockf(format string, args ...any) Result {
	return Result{Status: StatusBlock, Message: fmt.Sprintf(format, args...)}
}

// FormatFeedback renders the result as a markdown block suitable for
// injecting into the next system prompt. Empty for a pass.
func (r Result) FormatFeedback() string {
	if r.Status == StatusPass || r.Message == "" {
		return ""
	}
	return fmt.Sprintf("## Guardrail feedback\n\n%s\n", r.Message)
}

// Context is a snapshot of one iteration's accumulated usage. Constructed
// fresh by the orchestration loop before each pipeline run and never mutated
// after construction.
type Context struct {
	// Module is the module under development.
	Module string

	// TaskID identifies the active task, if any.
	TaskID string

	// Iteration is the current iteration count within the phase run.
	Iteration int

	// ToolCalls is the cumulative tool-call count for the phase run.
	ToolCalls int

	// FileReads maps file paths to read counts.
	FileReads map[string]int

	// CommandRetries maps commands to retry counts.
	CommandRetries map[string]int
}

// Guardrail is a single back-pressure check.
type Guardrail interface {
	// Name identifies the guardrail in logs and metrics.
	Name() string

	// Order is the sort key; lower orders evaluate first.
	Order() int

	// ShortCircuitOnBlock stops pipeline evaluation when this guardrail
	// blocks. Guardrails that never block should return false.
	ShortCircuitOnBlock() bool

	// Evaluate classifies the usage snapshot. Implementations must be pure
	// and non-blocking: no I/O, no internal state carried between calls.
	Evaluate(ctx context.Context, gc Context) Result
}
