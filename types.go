package scatterfit

//////
// Shared contract types.
//////

// ProgressUpdate represents the current state of a long-running operation:
// a randomized hyperparameter search, a direct model fit, or an epoch of
// sequential training.
type ProgressUpdate struct {
	// Phase indicates which stage produced the update. One of the Phase*
	// constants below.
	Phase string

	// Family names the model family being processed, or "sequential" for
	// the recurrent trainer.
	Family string

	// CurrentIteration is the current trial or epoch number (1-based).
	CurrentIteration int

	// TotalIterations is the total number of trials or the epoch budget.
	TotalIterations int

	// CurrentParams holds the hyperparameter values being evaluated.
	// Nil for families fitted directly with defaults.
	CurrentParams map[string]float64

	// CurrentBestParams holds the best hyperparameters found so far.
	CurrentBestParams map[string]float64

	// CurrentBestScore holds the best score found so far. For searches the
	// score is mean negative MSE across folds (higher is better); for
	// sequential training it is the best single-window loss (lower is
	// better).
	CurrentBestScore float64

	// LastScore holds the score of the most recent trial or epoch.
	LastScore float64
}

// Phases reported through ProgressUpdate.
const (
	PhaseSearch   = "Search"
	PhaseFit      = "Fit"
	PhaseEvaluate = "Evaluate"
	PhaseEpoch    = "Epoch"
)

// Regressor is the contract every batch-fit model family implements.
//
// Fit estimates model parameters from a feature matrix X (one row per
// sample) and a target vector y. Predict maps a feature matrix to one
// prediction per row and returns ErrNotFitted if called before Fit.
//
// Implementations are single-shot: a second Fit call re-estimates all
// parameters from scratch. After a successful Fit the model is immutable
// and Predict is safe for concurrent use.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// Transformer is the contract for feature-space transforms.
//
// Fit estimates stage parameters (means, variances) from training data and
// stores them. Transform applies the stored parameters without
// re-estimation; calling it on data disjoint from the fit data must reuse
// exactly the stored parameters. Transform before Fit returns ErrNotFitted.
type Transformer interface {
	Fit(X [][]float64) error
	Transform(X [][]float64) ([][]float64, error)
	FitTransform(X [][]float64) ([][]float64, error)
}

// ModelFamily couples a named regressor variant with its constructor and an
// optional hyperparameter search space.
//
// New builds a fresh, unfitted model from concrete hyperparameter values;
// it must tolerate a nil map by applying defaults. A nil Space means the
// family is fitted directly with defaults instead of searched.
type ModelFamily struct {
	// Name identifies the family in benchmark results, e.g.
	// "linear-elastic" or "gaussian-process".
	Name string

	// New constructs an unfitted model from hyperparameter values.
	New func(params map[string]float64) Regressor

	// Space declares the hyperparameters to search, keyed by the names New
	// understands. Nil disables the search for this family.
	Space SearchSpace
}
