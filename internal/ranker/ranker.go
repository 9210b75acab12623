// Package ranker picks the follow-up questions asked after a rejected guess
// and produces the nearest-neighbour second guess from partial answers.
package ranker

import (
	"slices"

	"github.com/mesh-intelligence/twentyq/internal/model"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// Unknown marks a feature with no recorded answer in a user vector.
const Unknown int8 = -1

// Queue length bounds.
const (
	minQueue = 4
	maxQueue = 8
)

// QueueLength returns how many refine questions to ask when n features are
// still unanswered: a third of them, at least 4 and at most 8, never more
// than n.
func QueueLength(n int) int {
	if n <= 0 {
		return 0
	}
	k := max(minQueue, min(maxQueue, max(1, n/3)))
	return min(k, n)
}

// Queue returns the unanswered features of mdl, most important first. Equal
// importances keep column order.
func Queue(mdl *model.Model, answers map[string]uint8) []string {
	remaining := make([]string, 0, len(mdl.Features))
	for _, f := range mdl.Features {
		if _, ok := answers[f]; !ok {
			remaining = append(remaining, f)
		}
	}
	slices.SortStableFunc(remaining, func(a, b string) int {
		ia, ib := mdl.Importance(a), mdl.Importance(b)
		switch {
		case ia > ib:
			return -1
		case ia < ib:
			return 1
		}
		return 0
	})
	return remaining[:QueueLength(len(remaining))]
}

// UserVector lays answers out over features. Features without an answer hold
// Unknown.
func UserVector(features []string, answers map[string]uint8) []int8 {
	v := make([]int8, len(features))
	for j, f := range features {
		if a, ok := answers[f]; ok {
			v[j] = int8(a)
		} else {
			v[j] = Unknown
		}
	}
	return v
}

// Distance counts positions where both values are known and differ.
func Distance(user []int8, row []uint8) int {
	d := 0
	for j, u := range user {
		if u == Unknown || j >= len(row) {
			continue
		}
		if uint8(u) != row[j] {
			d++
		}
	}
	return d
}

// NearestNeighbor returns the entity of m closest to the answers over the
// given features. Ties go to the earlier row. Returns ErrEmptyDataset when m
// has no rows.
func NearestNeighbor(m *types.Matrix, answers map[string]uint8) (string, error) {
	if m.Len() == 0 {
		return "", types.ErrEmptyDataset
	}
	user := UserVector(m.Columns(), answers)
	best, bestDist := 0, -1
	for i := 0; i < m.Len(); i++ {
		d := Distance(user, m.Row(i))
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return m.Name(best), nil
}
