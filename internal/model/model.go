// Package model bundles a trained tree with everything derived from the same
// matrix snapshot, and publishes it through an atomically swapped Handle.
package model

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/twentyq/internal/question"
	"github.com/mesh-intelligence/twentyq/internal/tree"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// Model is one immutable training generation. Tree, feature list,
// importances, class labels, cached questions and the matrix they were
// derived from are built together and never updated in place.
type Model struct {
	Version     string
	TrainedAt   time.Time
	Tree        *tree.Tree
	Features    []string
	Importances []float64
	Classes     []string
	Matrix      *types.Matrix

	questions  map[string]string
	importance map[string]float64
}

// Build trains t on a private copy of m and assembles a Model.
func Build(t tree.Trainer, m *types.Matrix) (*Model, error) {
	snapshot := m.Clone()
	res, err := t.Fit(snapshot)
	if err != nil {
		return nil, fmt.Errorf("training tree: %w", err)
	}
	features := snapshot.Columns()
	if len(res.Importances) != len(features) {
		return nil, fmt.Errorf("trainer returned %d importances for %d features", len(res.Importances), len(features))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating model version: %w", err)
	}

	mdl := &Model{
		Version:     id.String(),
		TrainedAt:   time.Now().UTC(),
		Tree:        res.Tree,
		Features:    features,
		Importances: res.Importances,
		Classes:     res.Classes,
		Matrix:      snapshot,
		questions:   make(map[string]string, len(features)),
		importance:  make(map[string]float64, len(features)),
	}
	for j, f := range features {
		mdl.questions[f] = question.Format(f)
		mdl.importance[f] = res.Importances[j]
	}
	return mdl, nil
}

// FeatureOf returns the feature name tested at node, or leaf=true for a
// leaf. A feature index outside the feature list is ErrTraversalInconsistency.
func (m *Model) FeatureOf(node int) (name string, leaf bool, err error) {
	if m.Tree.IsLeaf(node) {
		return "", true, nil
	}
	f, err := m.Tree.Feature(node)
	if err != nil {
		return "", false, err
	}
	if f >= len(m.Features) {
		return "", false, fmt.Errorf("node %d feature %d of %d: %w", node, f, len(m.Features), types.ErrTraversalInconsistency)
	}
	return m.Features[f], false, nil
}

// Predict returns the entity predicted at a leaf.
func (m *Model) Predict(node int) (string, error) {
	c, err := m.Tree.Predict(node)
	if err != nil {
		return "", err
	}
	if c >= len(m.Classes) {
		return "", fmt.Errorf("leaf %d class %d of %d: %w", node, c, len(m.Classes), types.ErrTraversalInconsistency)
	}
	return m.Classes[c], nil
}

// Question returns the cached question text for a feature.
func (m *Model) Question(feature string) string {
	if q, ok := m.questions[feature]; ok {
		return q
	}
	return question.Format(feature)
}

// Importance returns the importance score of a feature, 0 if unknown.
func (m *Model) Importance(feature string) float64 {
	return m.importance[feature]
}

// Handle publishes the current Model. Readers Load a snapshot once per
// operation; writers replace the whole Model with Store.
type Handle struct {
	current atomic.Pointer[Model]
}

// NewHandle returns a Handle holding m.
func NewHandle(m *Model) *Handle {
	h := &Handle{}
	h.current.Store(m)
	return h
}

// Load returns the current Model.
func (h *Handle) Load() *Model {
	return h.current.Load()
}

// Store publishes m as the current Model.
func (h *Handle) Store(m *Model) {
	h.current.Store(m)
}
