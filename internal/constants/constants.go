// Package constants provides named defaults used throughout the oster codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Cross-fitting defaults.
const (
	// DefaultFolds is the default number of cross-fitting folds (K).
	DefaultFolds = 5

	// DefaultTrimLower is the default lower clip bound for estimated
	// treatment probabilities. Propensities below this are raised to it.
	DefaultTrimLower = 0.01

	// DefaultTrimUpper is the default upper clip bound for estimated
	// treatment probabilities.
	DefaultTrimUpper = 0.99
)

// Delta-statistic defaults.
const (
	// DefaultBetaHyp is the default hypothesized full-controls coefficient.
	// Zero means "unobserved confounding fully explains the estimated effect".
	DefaultBetaHyp = 0.0

	// DefaultRMax is the default hypothesized maximum achievable R² once
	// unobserved controls are included.
	DefaultRMax = 1.0

	// DefaultDenomTol is the tolerance below which the delta-star denominator
	// is treated as zero and the statistic reported as undefined rather than
	// a meaningless near-infinite value.
	DefaultDenomTol = 1e-9
)

// Random-forest nuisance model defaults.
const (
	// DefaultForestTrees is the default ensemble size.
	DefaultForestTrees = 100

	// DefaultForestMaxDepth is the default maximum tree depth.
	DefaultForestMaxDepth = 6

	// DefaultForestMinLeaf is the default minimum number of samples in a leaf.
	DefaultForestMinLeaf = 5
)

// Linear model defaults.
const (
	// DefaultRidge is the L2 penalty added to the normal equations when a
	// plain least-squares solve encounters a singular system.
	DefaultRidge = 1e-8

	// LogisticMaxIter is the iteration cap for logistic IRLS fitting.
	LogisticMaxIter = 50

	// LogisticTol is the coefficient-change threshold at which logistic
	// IRLS fitting stops early.
	LogisticTol = 1e-8
)

// Seeds. Fold assignment and synthetic generation are always explicitly
// seeded; these are the values used when the caller does not supply one.
const (
	// DefaultSeed seeds fold assignment for a curve run.
	DefaultSeed = 1

	// DefaultSynthSeed seeds the synthetic data generator.
	DefaultSynthSeed = 42
)
