package scatterfit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatePerfectFit(t *testing.T) {
	y := []float64{1, 2, 3, 4}

	m := Evaluate(y, []float64{1, 2, 3, 4})

	assert.InDelta(t, 1, m.R2, 1e-12)
	assert.InDelta(t, 0, m.MSE, 1e-12)
	assert.InDelta(t, 0, m.MAE, 1e-12)
}

func TestEvaluateKnownErrors(t *testing.T) {
	yTrue := []float64{0, 0, 0, 0}
	yPred := []float64{1, -1, 2, -2}

	m := Evaluate(yTrue, yPred)

	// Squared errors 1, 1, 4, 4 average to 2.5; absolute errors to 1.5.
	assert.InDelta(t, 2.5, m.MSE, 1e-12)
	assert.InDelta(t, 1.5, m.MAE, 1e-12)
}

func TestEvaluateMismatch(t *testing.T) {
	// Mismatched or empty inputs mark a failed fit, not a panic.
	m := Evaluate([]float64{1, 2}, []float64{1})
	assert.True(t, math.IsNaN(m.R2))
	assert.True(t, math.IsNaN(m.MSE))
	assert.True(t, math.IsNaN(m.MAE))

	m = Evaluate(nil, nil)
	assert.True(t, math.IsNaN(m.R2))
}

func TestRMSERelation(t *testing.T) {
	yTrue := []float64{0, 1, 2, 3}
	yPred := []float64{0.5, 1.5, 1.5, 2}

	assert.InDelta(t, math.Sqrt(MSE(yTrue, yPred)), RMSE(yTrue, yPred), 1e-12)
}

func TestSummarizeResiduals(t *testing.T) {
	yTrue := []float64{0, 0, 0, 0}
	yPred := []float64{1, -2, 3, 0}

	s := SummarizeResiduals(yTrue, yPred)

	// Absolute residuals 1, 2, 3, 0.
	assert.InDelta(t, 1.5, s.MeanAbs, 1e-12)
	assert.InDelta(t, 1.5, s.MedianAbs, 1e-12)
	assert.InDelta(t, 3, s.MaxAbs, 1e-12)
}

func TestRankResultsOrdering(t *testing.T) {
	nan := math.NaN()

	results := map[string]BenchmarkResult{
		"mid":      {Family: "mid", Metrics: Metrics{R2: 0.5}},
		"best":     {Family: "best", Metrics: Metrics{R2: 0.9}},
		"worst":    {Family: "worst", Metrics: Metrics{R2: -0.3}},
		"failed-b": {Family: "failed-b", Metrics: Metrics{R2: nan, MSE: nan, MAE: nan}},
		"failed-a": {Family: "failed-a", Metrics: Metrics{R2: nan, MSE: nan, MAE: nan}},
	}

	ranked := RankResults(results)
	require.Len(t, ranked, 5)

	// Finite scores descend; failures trail in name order so they stay
	// visible in the table.
	assert.Equal(t, "best", ranked[0].Family)
	assert.Equal(t, "mid", ranked[1].Family)
	assert.Equal(t, "worst", ranked[2].Family)
	assert.Equal(t, "failed-a", ranked[3].Family)
	assert.Equal(t, "failed-b", ranked[4].Family)
}

func TestRankResultsTieBreak(t *testing.T) {
	results := map[string]BenchmarkResult{
		"b": {Family: "b", Metrics: Metrics{R2: 0.7}},
		"a": {Family: "a", Metrics: Metrics{R2: 0.7}},
	}

	ranked := RankResults(results)

	// Equal scores rank by name so the order is reproducible.
	assert.Equal(t, "a", ranked[0].Family)
	assert.Equal(t, "b", ranked[1].Family)
}

func TestRankResultsEmpty(t *testing.T) {
	assert.Empty(t, RankResults(nil))
}
