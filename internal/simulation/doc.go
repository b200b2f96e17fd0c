// Package simulation provides a scenario harness for validating statistical
// properties of the full estimation pipeline.
//
// A scenario draws a seeded synthetic dataset with known ground truth, ranks
// its covariates, and runs the real specification-curve loop over them. The
// exercised components are the real ones throughout: the synth generator,
// the OLS ranker, cross-fitted nuisance estimation, and the sensitivity
// statistic. No mocks.
//
// Scenarios are deterministic: the same Scenario always produces the same
// Result, so assertions can use fixed thresholds.
//
// Usage:
//
//	func TestEffectRecovery(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:  "effect-recovery",
//	        Synth: synth.DefaultConfig(),
//	    })
//	    simulation.AssertEstimateNear(t, result, 12, 5.0, 0.5)
//	}
package simulation
