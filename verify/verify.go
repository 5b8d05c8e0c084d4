// Package verify implements the oracle-verification gate that guards
// completion: a "mark complete" request is honored only when a passing
// verdict for the same scope and identifier was recorded during the current
// model invocation. Verdicts never carry over between invocations, so any
// new round of changes forces fresh verification.
package verify

import "fmt"

// Scope indicates the granularity an oracle verdict applies to.
type Scope string

const (
	// ScopeTask covers a single task.
	ScopeTask Scope = "task"

	// ScopeComponent covers one component of a module.
	ScopeComponent Scope = "component"

	// ScopeModule covers the whole module.
	ScopeModule Scope = "module"
)

// IsValid returns true if the scope is recognized.
func (s Scope) IsValid() bool {
	switch s {
	case ScopeTask, ScopeComponent, ScopeModule:
		return true
	}
	return false
}

// Verdict is an oracle's judgment of evidence against acceptance criteria.
// Not cached beyond one invocation.
type Verdict struct {
	// Passed is true when the evidence satisfies the criteria.
	Passed bool `json:"passed"`

	// Gaps lists unmet criteria, in the oracle's order.
	Gaps []string `json:"gaps,omitempty"`

	// Scope is the granularity this verdict applies to.
	Scope Scope `json:"scope"`
}

// Summary renders a one-line human-readable form of the verdict.
func (v *Verdict) Summary() string {
	if v.Passed {
		return fmt.Sprintf("%s verification passed", v.Scope)
	}
	return fmt.Sprintf("%s verification failed with %d gap(s)", v.Scope, len(v.Gaps))
}
