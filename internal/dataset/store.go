// Package dataset holds the process-wide attribute matrix and commits
// replacements through a durable types.Store.
package dataset

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// Store is the in-memory Dataset Store. Readers get clones; Commit persists
// a replacement through the backend before it becomes visible.
type Store struct {
	mu      sync.RWMutex
	backend types.Store
	current *types.Matrix
	log     *zap.Logger
}

// Open loads the matrix from an attached backend.
func Open(backend types.Store, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validating dataset: %w", err)
	}
	log.Named("dataset").Info("dataset loaded",
		zap.Int("entities", m.Len()),
		zap.Int("attributes", m.NumColumns()))
	return &Store{backend: backend, current: m, log: log.Named("dataset")}, nil
}

// Snapshot returns a private copy of the current matrix.
func (s *Store) Snapshot() *types.Matrix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Len returns the number of entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Len()
}

// Commit validates next, saves it through the backend and makes it current.
// On any error the current matrix is unchanged. The Store keeps its own copy
// of next.
func (s *Store) Commit(next *types.Matrix) error {
	if err := next.Validate(); err != nil {
		return fmt.Errorf("validating dataset: %w", err)
	}
	snapshot := next.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Save(snapshot); err != nil {
		s.log.Error("persisting dataset failed", zap.Error(err))
		return fmt.Errorf("persisting dataset: %w", err)
	}
	s.current = snapshot
	s.log.Info("dataset committed",
		zap.Int("entities", snapshot.Len()),
		zap.Int("attributes", snapshot.NumColumns()))
	return nil
}

// Has reports whether an entity exists, matching names after normalization.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Has(name)
}

// Columns returns the current attribute columns in order.
func (s *Store) Columns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Columns()
}
