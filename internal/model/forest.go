package model

import (
	"math/rand"

	"github.com/causalkit/oster/internal/constants"
)

// ForestTemplate configures a random forest and serves as both a regressor
// and a classifier template. Zero values fall back to package defaults, and
// MTry 0 means max(1, p/3) features per split.
//
// The same Seed always yields the same forest: per-tree generators are
// derived sequentially from one base source, and trees are grown in order.
// Parallelism belongs to the caller, which fits independent model instances.
type ForestTemplate struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	MTry     int
	Seed     int64
}

func (t ForestTemplate) withDefaults() ForestTemplate {
	if t.Trees == 0 {
		t.Trees = constants.DefaultForestTrees
	}
	if t.MaxDepth == 0 {
		t.MaxDepth = constants.DefaultForestMaxDepth
	}
	if t.MinLeaf == 0 {
		t.MinLeaf = constants.DefaultForestMinLeaf
	}
	return t
}

// NewRegressor returns an unfitted bagged regression forest.
func (t ForestTemplate) NewRegressor() Regressor {
	return &forestRegressor{cfg: t.withDefaults()}
}

// NewClassifier returns an unfitted probability forest for binary targets.
// It regresses on the 0/1 labels and clips the bagged mean into [0, 1].
func (t ForestTemplate) NewClassifier() ProbabilisticClassifier {
	return &forestClassifier{forestRegressor{cfg: t.withDefaults()}}
}

type forestRegressor struct {
	cfg   ForestTemplate
	p     int
	trees []*treeNode
}

func (f *forestRegressor) Fit(x [][]float64, y []float64) error {
	p, err := checkFit(x, y)
	if err != nil {
		return err
	}
	f.p = p

	mtry := f.cfg.MTry
	if mtry <= 0 {
		mtry = p / 3
	}
	if mtry < 1 {
		mtry = 1
	}
	if mtry > p {
		mtry = p
	}
	params := treeParams{maxDepth: f.cfg.MaxDepth, minLeaf: f.cfg.MinLeaf, mtry: mtry}

	n := len(y)
	base := rand.New(rand.NewSource(f.cfg.Seed))
	f.trees = make([]*treeNode, f.cfg.Trees)
	for t := range f.trees {
		rng := rand.New(rand.NewSource(base.Int63()))
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		f.trees[t] = growTree(x, y, idx, params, rng, 0)
	}
	return nil
}

func (f *forestRegressor) Predict(x [][]float64) ([]float64, error) {
	if err := checkPredict(x, f.p); err != nil {
		return nil, err
	}

	out := make([]float64, len(x))
	for i, row := range x {
		sum := 0.0
		for _, tree := range f.trees {
			sum += tree.predict(row)
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out, nil
}

type forestClassifier struct {
	forestRegressor
}

func (f *forestClassifier) Fit(x [][]float64, y []float64) error {
	if err := checkBinary(y); err != nil {
		return err
	}
	return f.forestRegressor.Fit(x, y)
}

func (f *forestClassifier) PredictProba(x [][]float64) ([]float64, error) {
	out, err := f.forestRegressor.Predict(x)
	if err != nil {
		return nil, err
	}
	for i, v := range out {
		if v < 0 {
			out[i] = 0
		} else if v > 1 {
			out[i] = 1
		}
	}
	return out, nil
}
