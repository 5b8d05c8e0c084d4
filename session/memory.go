package session

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps checkpoints in process memory. Used by tests and by CLI
// runs without a NATS server configured.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]Checkpoint
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{checkpoints: make(map[string]Checkpoint)}
}

// Save stores the checkpoint, replacing any prior one for the module.
func (s *MemoryStore) Save(_ context.Context, cp Checkpoint) error {
	if cp.Module == "" {
		return fmt.Errorf("save checkpoint: module required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[cp.Module] = cp
	return nil
}

// Load returns the module's checkpoint or ErrNotFound.
func (s *MemoryStore) Load(_ context.Context, module string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[module]
	if !ok {
		return nil, fmt.Errorf("load checkpoint %s: %w", module, ErrNotFound)
	}
	return &cp, nil
}

// Delete removes the module's checkpoint if present.
func (s *MemoryStore) Delete(_ context.Context, module string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, module)
	return nil
}
