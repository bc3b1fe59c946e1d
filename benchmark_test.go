package scatterfit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// benchmarkData builds the (scan angle, conditioned intensity) pairs the
// orchestrator consumes.
func benchmarkData(t *testing.T, n int) ([]float64, []float64) {
	t.Helper()

	raw := GenerateSignal(n, 0, 180, 0.02, 42)

	smooth, err := SavitzkyGolay(raw, 11, 3)
	require.NoError(t, err)

	return smooth.Positions, smooth.Values
}

// rowCountSpy records how many rows its Fit call receives.
type rowCountSpy struct {
	rows int
}

func (s *rowCountSpy) Fit(X [][]float64, y []float64) error {
	s.rows = len(X)

	return nil
}

func (s *rowCountSpy) Predict(X [][]float64) ([]float64, error) {
	return make([]float64, len(X)), nil
}

func smallBenchmarkConfig() BenchmarkConfig {
	cfg := DefaultBenchmarkConfig()
	cfg.PolynomialDegree = 3
	cfg.Search = SearchConfig{Trials: 3, Folds: 3, Seed: 42, Workers: 2}

	return cfg
}

func TestBenchmarkIsolatesFamilyFailures(t *testing.T) {
	x, y := benchmarkData(t, 60)

	families := []ModelFamily{
		{
			Name: "linear-elastic",
			New:  func(params map[string]float64) Regressor { return NewElasticNet(params) },
			Space: SearchSpace{
				"alpha":   {Min: 1e-4, Max: 1e-2, Log: true},
				"l1Ratio": {Min: 0, Max: 1},
			},
		},
		{
			Name: "gaussian-process",
			New:  func(params map[string]float64) Regressor { return NewGPRegressor(params) },
		},
		{
			Name: "always-fails",
			New:  func(params map[string]float64) Regressor { return failingModel{} },
		},
	}

	results, err := Benchmark(smallBenchmarkConfig(), families, x, y)
	require.NoError(t, err)

	// Every configured family is present, succeeded or not.
	require.Len(t, results, 3)

	failed := results["always-fails"]
	require.ErrorIs(t, failed.Err, ErrConvergence)
	assert.True(t, math.IsNaN(failed.Metrics.R2))
	assert.True(t, math.IsNaN(failed.Metrics.MSE))
	assert.True(t, math.IsNaN(failed.Metrics.MAE))
	assert.Nil(t, failed.Model)

	for _, name := range []string{"linear-elastic", "gaussian-process"} {
		result := results[name]

		require.NoError(t, result.Err, name)
		require.NotNil(t, result.Model, name)
		assert.False(t, math.IsNaN(result.Metrics.R2), name)
		assert.False(t, math.IsNaN(result.Metrics.MSE), name)
	}

	// The searched family keeps its selected hyperparameters.
	assert.Contains(t, results["linear-elastic"].Params, "alpha")
	assert.Contains(t, results["linear-elastic"].Params, "l1Ratio")

	// The default-fitted family has none.
	assert.Nil(t, results["gaussian-process"].Params)
}

func TestBenchmarkHoldsOutTestRows(t *testing.T) {
	x, y := benchmarkData(t, 60)

	spy := &rowCountSpy{}
	families := []ModelFamily{
		{
			Name: "spy",
			New:  func(params map[string]float64) Regressor { return spy },
		},
	}

	cfg := smallBenchmarkConfig()

	_, err := Benchmark(cfg, families, x, y)
	require.NoError(t, err)

	// 20% of 60 rows are held out: the model never sees more than the 48
	// training rows.
	assert.Equal(t, 48, spy.rows)
}

func TestBenchmarkDeterministic(t *testing.T) {
	x, y := benchmarkData(t, 60)

	run := func() map[string]BenchmarkResult {
		families := []ModelFamily{
			{
				Name:  "linear-elastic",
				New:   func(params map[string]float64) Regressor { return NewElasticNet(params) },
				Space: SearchSpace{"alpha": {Min: 1e-4, Max: 1e-2, Log: true}},
			},
		}

		results, err := Benchmark(smallBenchmarkConfig(), families, x, y)
		require.NoError(t, err)

		return results
	}

	a := run()
	b := run()

	assert.Equal(t, a["linear-elastic"].Params, b["linear-elastic"].Params)
	assert.Equal(t, a["linear-elastic"].Metrics, b["linear-elastic"].Metrics)
}

func TestBenchmarkValidation(t *testing.T) {
	x, y := benchmarkData(t, 60)

	families := []ModelFamily{
		{Name: "gaussian-process", New: func(params map[string]float64) Regressor { return NewGPRegressor(params) }},
	}

	// Mismatched lengths.
	_, err := Benchmark(smallBenchmarkConfig(), families, x, y[:30])
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	// Test fraction outside (0, 1).
	cfg := smallBenchmarkConfig()
	cfg.TestFraction = 0
	_, err = Benchmark(cfg, families, x, y)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	cfg = smallBenchmarkConfig()
	cfg.TestFraction = 1
	_, err = Benchmark(cfg, families, x, y)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	// No families.
	_, err = Benchmark(smallBenchmarkConfig(), nil, x, y)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	// Too few rows for the search folds.
	_, err = Benchmark(smallBenchmarkConfig(), families, x[:5], y[:5])
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestBenchmarkEndToEnd(t *testing.T) {
	// The full default lineup on a conditioned sinusoid, with a reduced
	// search budget to keep the test quick. The curve is smooth and the
	// features polynomial, so at least the best families must score well.
	x, y := benchmarkData(t, 100)

	cfg := smallBenchmarkConfig()
	cfg.Search.Trials = 5

	results, err := Benchmark(cfg, DefaultFamilies(42), x, y)
	require.NoError(t, err)

	require.Len(t, results, 6)

	ranked := RankResults(results)
	require.Len(t, ranked, 6)

	// Ranking is non-increasing in R2 with failures trailing.
	for i := 1; i < len(ranked); i++ {
		prev, cur := ranked[i-1].Metrics.R2, ranked[i].Metrics.R2

		if math.IsNaN(prev) {
			assert.True(t, math.IsNaN(cur))

			continue
		}

		if !math.IsNaN(cur) {
			assert.GreaterOrEqual(t, prev, cur)
		}
	}

	// The top-ranked family actually fits the curve.
	assert.Greater(t, ranked[0].Metrics.R2, 0.9)
}
