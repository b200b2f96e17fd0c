package simulation_test

import (
	"testing"

	"github.com/causalkit/oster/internal/model"
	"github.com/causalkit/oster/internal/simulation"
	"github.com/causalkit/oster/internal/synth"
)

// Nonparametric nuisance learners plug into the same pipeline. At this
// sample size their regularization costs accuracy, so the tolerance is
// wider than in the linear scenarios, and two runs of the same seeded
// scenario must agree bit for bit.
func TestForestLearnersRecoverEffect(t *testing.T) {
	cfg := synth.DefaultConfig()
	cfg.N = 400
	cfg.Relevant = 3
	cfg.Irrelevant = 0
	cfg.Seed = 11

	forest := model.ForestTemplate{Trees: 30, MaxDepth: 5, MinLeaf: 5, Seed: 11}
	scenario := simulation.Scenario{
		Name:           "forest-learners",
		Synth:          cfg,
		Folds:          3,
		Seed:           11,
		OutcomeModel:   forest,
		TreatmentModel: forest,
	}

	r := simulation.NewRunner(t)
	result := r.Run(scenario)

	if got := result.Steps(); got != 3 {
		t.Fatalf("expected 3 curve steps, got %d", got)
	}
	simulation.AssertEstimateNear(t, result, 3, cfg.ATE, 2.0)
	simulation.AssertNoDegenerateFolds(t, result)

	again := r.Run(scenario)
	for i := range result.Curve.Steps {
		first := result.Curve.Steps[i].Estimate.ATE
		second := again.Curve.Steps[i].Estimate.ATE
		if first != second {
			t.Errorf("step %d: reruns disagree: %.12f vs %.12f", i+1, first, second)
		}
	}
}
