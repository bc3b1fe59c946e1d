package scatterfit

import "errors"

//////
// Error taxonomy.
//
// Configuration errors (bad window sizes, mismatched lengths, too little
// data) indicate a caller contract violation and are returned immediately.
// Numeric failures during fitting (non-convergence, singular kernel
// matrices) are isolated per model family by the benchmark orchestrator and
// surface as NaN metrics instead of aborting the run.
//////

var (
	// ErrInvalidWindow is returned when a smoothing window is even, not
	// larger than the polynomial order, or larger than the signal itself.
	ErrInvalidWindow = errors.New("invalid smoothing window")

	// ErrNotFitted is returned when Transform or Predict is called on a
	// transformer or regressor that has not been fitted yet.
	ErrNotFitted = errors.New("not fitted")

	// ErrSearchSpaceExhausted is returned when every trial of a randomized
	// search failed to produce a finite cross-validation score.
	ErrSearchSpaceExhausted = errors.New("search space exhausted")

	// ErrInsufficientData is returned when a signal or dataset is too short
	// for the requested window, fold count, or sequence length.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrConvergence is returned by iterative fitters whose optimization
	// diverged or produced non-finite parameters within the iteration
	// budget. The benchmark records it as NaN metrics and continues.
	ErrConvergence = errors.New("failed to converge")

	// ErrDimensionMismatch is returned when inputs disagree on length or
	// feature count.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrDegenerateInput is returned by the dimensionality reducers when
	// the input has no usable variance structure. Callers treat it as a
	// reportable, non-fatal condition.
	ErrDegenerateInput = errors.New("degenerate input")
)
