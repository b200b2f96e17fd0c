package model

import (
	"math/rand"
	"sort"
)

// treeNode is one node of a CART regression tree. Leaves carry the mean of
// their training targets; internal nodes route rows by a single threshold.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

type treeParams struct {
	maxDepth int
	minLeaf  int
	mtry     int
}

// growTree builds a regression tree over the rows named by idx, choosing at
// each node the variance-minimizing split among mtry randomly sampled
// features.
func growTree(x [][]float64, y []float64, idx []int, params treeParams, rng *rand.Rand, depth int) *treeNode {
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	mean := sum / float64(len(idx))

	node := &treeNode{value: mean, leaf: true}
	if depth >= params.maxDepth || len(idx) < 2*params.minLeaf {
		return node
	}

	best := splitResult{score: -1}
	p := len(x[0])
	for _, f := range rng.Perm(p)[:params.mtry] {
		if s := bestSplit(x, y, idx, f, params.minLeaf); s.score > best.score {
			best = s
			best.feature = f
		}
	}
	if best.score < 0 {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if x[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < params.minLeaf || len(right) < params.minLeaf {
		return node
	}

	node.leaf = false
	node.feature = best.feature
	node.threshold = best.threshold
	node.left = growTree(x, y, left, params, rng, depth+1)
	node.right = growTree(x, y, right, params, rng, depth+1)
	return node
}

type splitResult struct {
	feature   int
	threshold float64
	score     float64
}

// bestSplit scans every admissible threshold on one feature and returns the
// split maximizing the between-group sum of squares (equivalently,
// minimizing residual variance). score < 0 means no admissible split.
func bestSplit(x [][]float64, y []float64, idx []int, feature int, minLeaf int) splitResult {
	n := len(idx)
	order := append([]int(nil), idx...)
	sort.Slice(order, func(a, b int) bool { return x[order[a]][feature] < x[order[b]][feature] })

	total := 0.0
	for _, i := range order {
		total += y[i]
	}

	best := splitResult{score: -1}
	leftSum := 0.0
	for k := 1; k < n; k++ {
		leftSum += y[order[k-1]]
		if k < minLeaf || n-k < minLeaf {
			continue
		}
		lo := x[order[k-1]][feature]
		hi := x[order[k]][feature]
		if lo == hi {
			continue // no threshold separates equal values
		}

		rightSum := total - leftSum
		nl, nr := float64(k), float64(n-k)
		score := leftSum*leftSum/nl + rightSum*rightSum/nr
		if score > best.score {
			best.score = score
			best.threshold = lo + (hi-lo)/2
		}
	}
	return best
}

// predict routes one row to its leaf mean.
func (t *treeNode) predict(row []float64) float64 {
	node := t
	for !node.leaf {
		if row[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}
