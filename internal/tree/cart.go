package tree

import (
	"slices"

	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// Result is what a Trainer produces from one matrix snapshot.
type Result struct {
	Tree        *Tree
	Classes     []string  // class labels; Node.Value is indexed by position here
	Importances []float64 // one per matrix column, sums to 1 unless the tree is a single leaf
}

// Trainer builds a decision tree from an attribute matrix. Implementations
// must be deterministic for identical input (same row and column order).
type Trainer interface {
	Fit(m *types.Matrix) (*Result, error)
}

// splitThreshold separates 0 from 1 on binary features.
const splitThreshold = 0.5

// impurityEpsilon treats tiny gini values as pure.
const impurityEpsilon = 1e-12

// CART is a deterministic gini-impurity tree builder for binary features.
// Nodes are numbered depth-first, left subtree before right. When two
// features split equally well the earlier column wins.
type CART struct {
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int // 0 means types.DefaultMinSamplesSplit
}

// NewCART returns a trainer with the given limits.
func NewCART(cfg types.TrainerConfig) *CART {
	return &CART{MaxDepth: cfg.MaxDepth, MinSamplesSplit: cfg.GetMinSamplesSplit()}
}

var _ Trainer = (*CART)(nil)

// builder carries the working state of one Fit call.
type builder struct {
	cart       *CART
	m          *types.Matrix
	y          []int
	numClasses int
	nodes      []Node
	decrease   []float64
	total      float64
}

// Fit trains a tree on every row of m. Class labels are the sorted entity
// names. Returns ErrEmptyDataset when m has no rows.
func (c *CART) Fit(m *types.Matrix) (*Result, error) {
	if m.Len() == 0 {
		return nil, types.ErrEmptyDataset
	}
	classes := m.Names()
	slices.Sort(classes)
	classIndex := make(map[string]int, len(classes))
	for i, name := range classes {
		classIndex[name] = i
	}

	b := &builder{
		cart:       c,
		m:          m,
		y:          make([]int, m.Len()),
		numClasses: len(classes),
		decrease:   make([]float64, m.NumColumns()),
		total:      float64(m.Len()),
	}
	for i := 0; i < m.Len(); i++ {
		b.y[i] = classIndex[m.Name(i)]
	}

	samples := make([]int, m.Len())
	for i := range samples {
		samples[i] = i
	}
	b.grow(samples, 0)

	importances := make([]float64, m.NumColumns())
	var sum float64
	for _, d := range b.decrease {
		sum += d
	}
	if sum > 0 {
		for j, d := range b.decrease {
			importances[j] = d / sum
		}
	}

	t := &Tree{Nodes: b.nodes, NumFeatures: m.NumColumns(), NumClasses: len(classes)}
	return &Result{Tree: t, Classes: classes, Importances: importances}, nil
}

// grow appends the node for samples and its subtrees, returning its id.
func (b *builder) grow(samples []int, depth int) int {
	counts := b.counts(samples)
	impurity := gini(counts, len(samples))

	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Feature:   LeafFeature,
		Threshold: -2,
		Left:      LeafChild,
		Right:     LeafChild,
		Samples:   len(samples),
		Impurity:  impurity,
		Value:     counts,
	})

	if impurity <= impurityEpsilon ||
		len(samples) < b.cart.minSamplesSplit() ||
		(b.cart.MaxDepth > 0 && depth >= b.cart.MaxDepth) {
		return id
	}

	feature, left, right, childImpurity, ok := b.bestSplit(samples)
	if !ok {
		return id
	}

	n := float64(len(samples))
	b.decrease[feature] += (n*impurity - childImpurity) / b.total

	leftID := b.grow(left, depth+1)
	rightID := b.grow(right, depth+1)

	node := &b.nodes[id]
	node.Feature = feature
	node.Threshold = splitThreshold
	node.Left = leftID
	node.Right = rightID
	return id
}

// bestSplit tries every non-constant feature in column order and keeps the
// one with the lowest weighted child impurity. childImpurity is returned
// weighted by sample count (nl*gl + nr*gr).
func (b *builder) bestSplit(samples []int) (feature int, left, right []int, childImpurity float64, ok bool) {
	best := -1.0
	for j := 0; j < b.m.NumColumns(); j++ {
		var l, r []int
		for _, s := range samples {
			if float64(b.m.Cell(s, j)) <= splitThreshold {
				l = append(l, s)
			} else {
				r = append(r, s)
			}
		}
		if len(l) == 0 || len(r) == 0 {
			continue
		}
		weighted := float64(len(l))*gini(b.counts(l), len(l)) + float64(len(r))*gini(b.counts(r), len(r))
		if !ok || weighted < best-impurityEpsilon {
			best = weighted
			feature, left, right, childImpurity, ok = j, l, r, weighted, true
		}
	}
	return feature, left, right, childImpurity, ok
}

func (b *builder) counts(samples []int) []int {
	counts := make([]int, b.numClasses)
	for _, s := range samples {
		counts[b.y[s]]++
	}
	return counts
}

func (c *CART) minSamplesSplit() int {
	if c.MinSamplesSplit < types.DefaultMinSamplesSplit {
		return types.DefaultMinSamplesSplit
	}
	return c.MinSamplesSplit
}

// gini returns 1 - sum(p_k^2) for a class-count distribution.
func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		sum += p * p
	}
	return 1 - sum
}
