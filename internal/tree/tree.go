// Package tree holds the immutable decision tree snapshot, the traversal
// functions over it, and the Trainer capability that builds one.
package tree

import (
	"fmt"

	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// Root is the id of the first node of every tree.
const Root = 0

// Leaf sentinels. A node is a leaf iff Left == Right; Feature is LeafFeature
// for leaves but is never consulted by the leaf test.
const (
	LeafChild   = -1
	LeafFeature = -2
)

// Node is either a split (Feature, Threshold, Left, Right) or a leaf holding
// the class-count distribution of the training rows that reached it.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Samples   int     `json:"samples"`
	Impurity  float64 `json:"impurity"`
	Value     []int   `json:"value"`
}

// Tree is an immutable snapshot. Node ids are only meaningful within the
// Tree that produced them.
type Tree struct {
	Nodes       []Node
	NumFeatures int
	NumClasses  int
}

func (t *Tree) node(id int) (*Node, error) {
	if id < 0 || id >= len(t.Nodes) {
		return nil, fmt.Errorf("node %d of %d: %w", id, len(t.Nodes), types.ErrTraversalInconsistency)
	}
	return &t.Nodes[id], nil
}

// IsLeaf reports whether node id has equal child ids. Out-of-range ids are
// reported as leaves so that loops over a damaged tree stop.
func (t *Tree) IsLeaf(id int) bool {
	n, err := t.node(id)
	if err != nil {
		return true
	}
	return n.Left == n.Right
}

// Feature returns the feature index tested at node id, or LeafFeature.
func (t *Tree) Feature(id int) (int, error) {
	n, err := t.node(id)
	if err != nil {
		return LeafFeature, err
	}
	if n.Left == n.Right {
		return LeafFeature, nil
	}
	if n.Feature < 0 || n.Feature >= t.NumFeatures {
		return LeafFeature, fmt.Errorf("node %d tests feature %d of %d: %w", id, n.Feature, t.NumFeatures, types.ErrTraversalInconsistency)
	}
	return n.Feature, nil
}

// Advance returns the child selected by value: value <= threshold goes left,
// anything else goes right. Advancing from a leaf is an error.
func (t *Tree) Advance(id int, value uint8) (int, error) {
	n, err := t.node(id)
	if err != nil {
		return id, err
	}
	if n.Left == n.Right {
		return id, fmt.Errorf("advance from leaf %d: %w", id, types.ErrTraversalInconsistency)
	}
	if float64(value) <= n.Threshold {
		return n.Left, nil
	}
	return n.Right, nil
}

// Left returns the left child of a split node, or id itself for a leaf.
func (t *Tree) Left(id int) int {
	n, err := t.node(id)
	if err != nil || n.Left == n.Right {
		return id
	}
	return n.Left
}

// Predict returns the class index with the largest count at a leaf. Ties go
// to the lowest class index.
func (t *Tree) Predict(id int) (int, error) {
	n, err := t.node(id)
	if err != nil {
		return 0, err
	}
	if n.Left != n.Right {
		return 0, fmt.Errorf("predict at split node %d: %w", id, types.ErrTraversalInconsistency)
	}
	if len(n.Value) == 0 {
		return 0, fmt.Errorf("leaf %d has no class counts: %w", id, types.ErrTraversalInconsistency)
	}
	best := 0
	for c, count := range n.Value {
		if count > n.Value[best] {
			best = c
		}
	}
	return best, nil
}

// MaxDepth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) MaxDepth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(id, depth int) int
	walk = func(id, depth int) int {
		if t.IsLeaf(id) {
			return depth
		}
		n := t.Nodes[id]
		return max(walk(n.Left, depth+1), walk(n.Right, depth+1))
	}
	return walk(Root, 0)
}

// NumLeaves counts leaf nodes.
func (t *Tree) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].Left == t.Nodes[i].Right {
			count++
		}
	}
	return count
}
