package dml

import (
	"fmt"
	"math/rand"
)

// FoldAssignment maps every dataset row to exactly one of K folds. Folds are
// balanced: sizes differ by at most one. An assignment is write-once; it is
// generated per run and shared unchanged by every specification step.
type FoldAssignment struct {
	labels []int
	k      int
}

// NewFoldAssignment shuffles the row indices with the given seed and deals
// them round-robin into k folds.
func NewFoldAssignment(n, k int, seed int64) (*FoldAssignment, error) {
	if k < 2 {
		return nil, &ConfigError{Field: "Folds", Reason: fmt.Sprintf("need at least 2 folds, got %d", k)}
	}
	if n < k {
		return nil, &ConfigError{Field: "Folds", Reason: fmt.Sprintf("%d folds need at least %d rows, got %d", k, k, n)}
	}

	rng := rand.New(rand.NewSource(seed))
	labels := make([]int, n)
	for pos, row := range rng.Perm(n) {
		labels[row] = pos % k
	}
	return &FoldAssignment{labels: labels, k: k}, nil
}

// FoldAssignmentFromLabels adopts caller-supplied fold labels. Every label
// must lie in [0, k) and every fold must be non-empty.
func FoldAssignmentFromLabels(labels []int, k int) (*FoldAssignment, error) {
	if k < 2 {
		return nil, &ConfigError{Field: "Folds", Reason: fmt.Sprintf("need at least 2 folds, got %d", k)}
	}
	counts := make([]int, k)
	for i, l := range labels {
		if l < 0 || l >= k {
			return nil, &ConfigError{Field: "Folds", Reason: fmt.Sprintf("row %d has fold %d, want [0, %d)", i, l, k)}
		}
		counts[l]++
	}
	for f, c := range counts {
		if c == 0 {
			return nil, &ConfigError{Field: "Folds", Reason: fmt.Sprintf("fold %d is empty", f)}
		}
	}
	return &FoldAssignment{labels: append([]int(nil), labels...), k: k}, nil
}

// K reports the number of folds.
func (f *FoldAssignment) K() int { return f.k }

// Len reports the number of assigned rows.
func (f *FoldAssignment) Len() int { return len(f.labels) }

// Fold reports the fold label of row i.
func (f *FoldAssignment) Fold(i int) int { return f.labels[i] }

// HeldOut returns the row indices of fold k, in ascending row order.
func (f *FoldAssignment) HeldOut(k int) []int {
	var rows []int
	for i, l := range f.labels {
		if l == k {
			rows = append(rows, i)
		}
	}
	return rows
}

// Training returns the row indices outside fold k, in ascending row order.
// Together with HeldOut(k) it partitions the rows: the held-out fold never
// overlaps its training set.
func (f *FoldAssignment) Training(k int) []int {
	rows := make([]int, 0, len(f.labels))
	for i, l := range f.labels {
		if l != k {
			rows = append(rows, i)
		}
	}
	return rows
}
