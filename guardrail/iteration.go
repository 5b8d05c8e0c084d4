package guardrail

import "context"

// IterationLimitOrder runs before advisory guardrails so a blocked run is
// not padded with warnings it cannot act on.
const IterationLimitOrder = 100

// IterationLimit blocks a phase run once its iteration count exceeds a
// configured maximum, escalating to external intervention instead of
// spinning indefinitely.
type IterationLimit struct {
	// MaxIterations is the iteration ceiling. Zero disables the check.
	MaxIterations int
}

// NewIterationLimit creates an iteration-limit guardrail.
func NewIterationLimit(max int) *IterationLimit {
	return &IterationLimit{MaxIterations: max}
}

// Name implements Guardrail.
func (l *IterationLimit) Name() string {
	return "iteration_limit"
}

// Order implements Guardrail.
func (l *IterationLimit) Order() int {
	return IterationLimitOrder
}

// ShortCircuitOnBlock implements Guardrail.
func (l *IterationLimit) ShortCircuitOnBlock() bool {
	return true
}

// Evaluate implements Guardrail.
func (l *IterationLimit) Evaluate(_ context.Context, gc Context) Result {
	if l.MaxIterations <= 0 || gc.Iteration <= l.MaxIterations {
		return Pass()
	}
	return Blockf("Iteration limit exceeded: %d iterations (max %d); intervention required before resuming",
		gc.Iteration, l.MaxIterations)
}
