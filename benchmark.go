package scatterfit

import (
	"fmt"
	"math"
)

//////
// Model benchmark orchestrator.
//////

// BenchmarkConfig controls one benchmark run.
type BenchmarkConfig struct {
	// TestFraction is the share of rows held out for evaluation,
	// strictly between 0 and 1.
	TestFraction float64

	// Seed drives the randomized train/test row assignment and, combined
	// with each family name, the stochastic learners.
	Seed int64

	// PolynomialDegree configures the feature pipeline shared (in shape,
	// not in state) by every family; each family fits its own pipeline
	// instance so runs stay independent.
	PolynomialDegree int

	// Search is the per-family randomized search budget. The per-family
	// search seed is derived from Search.Seed and the family name.
	Search SearchConfig

	// ProgressChan receives search-trial and per-family updates. Nil
	// disables progress updates; sends never block.
	ProgressChan chan<- ProgressUpdate
}

// DefaultBenchmarkConfig returns the benchmark settings used by the
// reference analysis: an 80/20 split and a 50-trial, 5-fold search.
func DefaultBenchmarkConfig() BenchmarkConfig {
	return BenchmarkConfig{
		TestFraction:     0.2,
		Seed:             42,
		PolynomialDegree: 5,
		Search:           DefaultSearchConfig(),
	}
}

// BenchmarkResult records one family's outcome: the fitted model with its
// selected hyperparameters, or NaN metrics plus the error that prevented a
// fit. Every configured family yields exactly one result.
type BenchmarkResult struct {
	// Family is the model family name.
	Family string

	// Model is the fitted pipeline+model unit. Nil when Err is set.
	Model Regressor

	// Params holds the hyperparameters selected by search, or nil for
	// families fitted with defaults.
	Params map[string]float64

	// Metrics holds r2/mse/mae on the held-out test split, or NaN on
	// failure.
	Metrics Metrics

	// Err is the failure that produced NaN metrics, nil otherwise.
	Err error
}

// pipelineModel composes a feature pipeline and a regressor into one unit,
// so cross-validation refits the pipeline on exactly the rows the model
// trains on. This is what keeps fold scores and held-out scores free of
// preprocessing leakage.
type pipelineModel struct {
	pipe  *FeaturePipeline
	model Regressor
}

func (pm *pipelineModel) Fit(X [][]float64, y []float64) error {
	features, err := pm.pipe.FitTransform(X)
	if err != nil {
		return err
	}

	return pm.model.Fit(features, y)
}

func (pm *pipelineModel) Predict(X [][]float64) ([]float64, error) {
	features, err := pm.pipe.Transform(X)
	if err != nil {
		return nil, err
	}

	return pm.model.Predict(features)
}

// Benchmark fits every model family on a fixed train/test split of the
// (scan angle, conditioned intensity) pairs and scores it on the held-out
// rows.
//
// For each family:
//   - A fresh feature pipeline + model unit is composed.
//   - Families with a search space run a randomized search with k-fold
//     cross-validation on the training split only; the winner is refit on
//     the full training split.
//   - Families without a search space are fitted directly with defaults.
//   - The unit's predictions on the test split yield r2/mse/mae.
//
// Per-family failures (non-convergence, exhausted searches) are isolated:
// the family is recorded with NaN metrics and its error, and the run
// continues. The returned map always contains every configured family.
//
// The error return covers caller contract violations only (mismatched
// lengths, bad fractions, too little data); those are fatal because they
// would invalidate every family alike.
func Benchmark(cfg BenchmarkConfig, families []ModelFamily, x, y []float64) (map[string]BenchmarkResult, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%d inputs vs %d targets: %w", len(x), len(y), ErrDimensionMismatch)
	}

	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		return nil, fmt.Errorf("test fraction %g outside (0, 1): %w", cfg.TestFraction, ErrDimensionMismatch)
	}

	if cfg.PolynomialDegree < 1 {
		return nil, fmt.Errorf("polynomial degree %d: %w", cfg.PolynomialDegree, ErrDimensionMismatch)
	}

	if len(families) == 0 {
		return nil, fmt.Errorf("no model families configured: %w", ErrDimensionMismatch)
	}

	n := len(x)
	if n < 2*cfg.Search.Folds {
		return nil, fmt.Errorf("%d rows for %d-fold search: %w", n, cfg.Search.Folds, ErrInsufficientData)
	}

	trainX, trainY, testX, testY := trainTestSplit(x, y, cfg.TestFraction, cfg.Seed)

	results := make(map[string]BenchmarkResult, len(families))

	for _, family := range families {
		build := func(params map[string]float64) Regressor {
			return &pipelineModel{
				pipe:  NewFeaturePipeline(cfg.PolynomialDegree),
				model: family.New(params),
			}
		}

		var (
			model  Regressor
			params map[string]float64
			err    error
		)

		if family.Space != nil {
			searchCfg := cfg.Search
			searchCfg.Seed = deriveSeed(cfg.Search.Seed, family.Name)
			searchCfg.ProgressChan = cfg.ProgressChan

			var sr *SearchResult

			sr, err = RandomizedSearchCV(searchCfg, family.Space, build, trainX, trainY)
			if err == nil {
				model = sr.Model
				params = sr.Params
			}
		} else {
			model = build(nil)

			err = model.Fit(trainX, trainY)

			sendProgress(cfg.ProgressChan, ProgressUpdate{
				Phase:            PhaseFit,
				Family:           family.Name,
				CurrentIteration: 1,
				TotalIterations:  1,
			})
		}

		result := BenchmarkResult{Family: family.Name, Params: params}

		if err != nil {
			result.Err = fmt.Errorf("%s: %w", family.Name, err)
			result.Metrics = NaNMetrics()
			results[family.Name] = result

			continue
		}

		preds, predErr := model.Predict(testX)
		if predErr != nil || !allFinite(preds) {
			if predErr == nil {
				predErr = fmt.Errorf("non-finite test predictions: %w", ErrConvergence)
			}

			result.Err = fmt.Errorf("%s: %w", family.Name, predErr)
			result.Metrics = NaNMetrics()
			results[family.Name] = result

			continue
		}

		result.Model = model
		result.Metrics = Evaluate(testY, preds)
		results[family.Name] = result

		sendProgress(cfg.ProgressChan, ProgressUpdate{
			Phase:            PhaseEvaluate,
			Family:           family.Name,
			CurrentIteration: 1,
			TotalIterations:  1,
			LastScore:        result.Metrics.R2,
		})
	}

	return results, nil
}

// trainTestSplit assigns rows to train/test by a seeded shuffle. The test
// share is rounded to at least one row on each side.
func trainTestSplit(x, y []float64, testFraction float64, seed int64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	n := len(x)
	rng := newRand(seed)

	perm := rng.Perm(n)

	nTest := int(math.Round(testFraction * float64(n)))
	nTest = clamp(nTest, 1, n-1)

	for i, idx := range perm {
		if i < nTest {
			testX = append(testX, []float64{x[idx]})
			testY = append(testY, y[idx])
		} else {
			trainX = append(trainX, []float64{x[idx]})
			trainY = append(trainY, y[idx])
		}
	}

	return trainX, trainY, testX, testY
}

// sendProgress delivers an update without ever blocking the pipeline.
func sendProgress(ch chan<- ProgressUpdate, update ProgressUpdate) {
	if ch == nil {
		return
	}

	select {
	case ch <- update:
	default:
		// Skip update if channel is full.
	}
}
