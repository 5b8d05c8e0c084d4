package verify

import (
	"errors"
	"fmt"
	"sync"
)

// ErrEmptyIdentifier is returned when a verdict is recorded against a blank
// identifier.
var ErrEmptyIdentifier = errors.New("verification identifier required")

// ErrInvalidScope is returned when a verdict names an unknown scope.
var ErrInvalidScope = errors.New("invalid verification scope")

type verificationKey struct {
	scope Scope
	id    string
}

// Tracker records passing verdicts for the current model invocation.
// Verdicts are invocation-local: ResetForInvocation is called at the start of
// every invocation, so evidence produced in an earlier round never vouches
// for work changed since.
type Tracker struct {
	mu     sync.Mutex
	passed map[verificationKey]bool
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{passed: make(map[verificationKey]bool)}
}

// ResetForInvocation discards all recorded verdicts.
func (t *Tracker) ResetForInvocation() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.passed = make(map[verificationKey]bool)
}

// RecordVerification stores the outcome of an oracle run for the given scope
// and identifier. A failing verdict overwrites a previously passing one for
// the same key.
func (t *Tracker) RecordVerification(scope Scope, id string, passed bool) error {
	if id == "" {
		return fmt.Errorf("record verification: %w", ErrEmptyIdentifier)
	}
	if !scope.IsValid() {
		return fmt.Errorf("record verification: %w: %q", ErrInvalidScope, scope)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.passed[verificationKey{scope: scope, id: id}] = passed
	return nil
}

// IsVerified reports whether a passing verdict for the scope and identifier
// was recorded during the current invocation.
func (t *Tracker) IsVerified(scope Scope, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.passed[verificationKey{scope: scope, id: id}]
}
