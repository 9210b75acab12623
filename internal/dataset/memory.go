package dataset

import (
	"sync"

	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// Memory is a types.Store that keeps the matrix in memory. SaveErr, when
// set, is returned by Save without changing the stored matrix.
type Memory struct {
	mu       sync.Mutex
	attached bool
	stored   *types.Matrix
	saves    int

	SaveErr error
}

// NewMemory returns an attached Memory store holding a copy of m.
func NewMemory(m *types.Matrix) *Memory {
	return &Memory{attached: true, stored: m.Clone()}
}

var _ types.Store = (*Memory)(nil)

// Attach marks the store attached, seeding it when empty.
func (s *Memory) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached {
		return types.ErrAlreadyAttached
	}
	if s.stored == nil {
		s.stored = Seed()
	}
	s.attached = true
	return nil
}

// Detach is idempotent.
func (s *Memory) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = false
	return nil
}

// Load returns a copy of the stored matrix.
func (s *Memory) Load() (*types.Matrix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return nil, types.ErrStoreDetached
	}
	return s.stored.Clone(), nil
}

// Save replaces the stored matrix unless SaveErr is set.
func (s *Memory) Save(m *types.Matrix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return types.ErrStoreDetached
	}
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.stored = m.Clone()
	s.saves++
	return nil
}

// Saves returns how many Save calls succeeded.
func (s *Memory) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
