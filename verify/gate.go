package verify

import "fmt"

// verificationTools maps each scope to the tool the model must call before a
// completion claim at that scope is honored. Rejection reasons name the tool
// so the model can self-correct on the next turn.
var verificationTools = map[Scope]string{
	ScopeTask:      "verify_task_completion",
	ScopeComponent: "verify_component_integration",
	ScopeModule:    "verify_module_completion",
}

// Decision is the gate's answer to a completion claim.
type Decision struct {
	// Allowed is true when the claim may proceed.
	Allowed bool

	// Reason explains a rejection. Empty when allowed.
	Reason string
}

// Gate enforces verify-before-complete: completion claims are checked against
// the tracker's invocation-local verdicts.
type Gate struct {
	tracker *Tracker
}

// NewGate returns a gate backed by the given tracker.
func NewGate(tracker *Tracker) *Gate {
	return &Gate{tracker: tracker}
}

// ValidateCompletion decides whether a completion claim for the scope and
// identifier may proceed. Claims without a passing verdict recorded in the
// current invocation are rejected with a reason naming the verification tool
// to call first.
func (g *Gate) ValidateCompletion(scope Scope, id string) Decision {
	if id == "" {
		return Decision{Reason: "completion claim missing identifier"}
	}
	if !scope.IsValid() {
		return Decision{Reason: fmt.Sprintf("unknown completion scope %q", scope)}
	}
	if !g.tracker.IsVerified(scope, id) {
		return Decision{
			Reason: fmt.Sprintf("%s %q has not been verified in this invocation: call %s first", scope, id, verificationTools[scope]),
		}
	}
	return Decision{Allowed: true}
}

// ToolForScope returns the verification tool name the gate expects for a
// given scope, or the empty string for an unknown scope.
func ToolForScope(scope Scope) string {
	return verificationTools[scope]
}
