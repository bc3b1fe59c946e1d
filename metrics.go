package scatterfit

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

//////
// Metrics and ranking.
//////

// Metrics holds the three scores reported for every benchmarked family.
// All fields are NaN when the family failed to fit.
type Metrics struct {
	// R2 is the coefficient of determination (1 is a perfect fit).
	R2 float64

	// MSE is the mean squared error.
	MSE float64

	// MAE is the mean absolute error.
	MAE float64
}

// NaNMetrics returns the explicit failure marker recorded for families
// whose fit or search did not produce a usable model.
func NaNMetrics() Metrics {
	nan := math.NaN()

	return Metrics{R2: nan, MSE: nan, MAE: nan}
}

// Evaluate scores predictions against ground truth. Inputs must be
// non-empty and of equal length; violations yield NaN metrics, since they
// only arise from failed upstream fits.
func Evaluate(yTrue, yPred []float64) Metrics {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return NaNMetrics()
	}

	return Metrics{
		R2:  RSquared(yTrue, yPred),
		MSE: MSE(yTrue, yPred),
		MAE: MAE(yTrue, yPred),
	}
}

// RSquared returns the coefficient of determination of yPred against
// yTrue.
func RSquared(yTrue, yPred []float64) float64 {
	return stat.RSquaredFrom(yPred, yTrue, nil)
}

// MSE returns the mean squared error.
func MSE(yTrue, yPred []float64) float64 {
	res := residuals(yTrue, yPred)
	for i, r := range res {
		res[i] = r * r
	}

	mean, err := stats.Mean(res)
	if err != nil {
		return math.NaN()
	}

	return mean
}

// MAE returns the mean absolute error.
func MAE(yTrue, yPred []float64) float64 {
	res := residuals(yTrue, yPred)
	for i, r := range res {
		res[i] = math.Abs(r)
	}

	mean, err := stats.Mean(res)
	if err != nil {
		return math.NaN()
	}

	return mean
}

// RMSE returns the root mean squared error.
func RMSE(yTrue, yPred []float64) float64 {
	return math.Sqrt(MSE(yTrue, yPred))
}

// ResidualSummary describes the error distribution of a fitted model
// beyond the three headline metrics.
type ResidualSummary struct {
	MeanAbs   float64
	MedianAbs float64
	MaxAbs    float64
}

// SummarizeResiduals computes descriptive statistics of the absolute
// residuals.
func SummarizeResiduals(yTrue, yPred []float64) ResidualSummary {
	res := residuals(yTrue, yPred)
	for i, r := range res {
		res[i] = math.Abs(r)
	}

	mean, _ := stats.Mean(res)
	median, _ := stats.Median(res)
	max, _ := stats.Max(res)

	return ResidualSummary{MeanAbs: mean, MedianAbs: median, MaxAbs: max}
}

// RankResults orders benchmark results by R2 descending. Entries with NaN
// metrics trail the ranking in name order, so failed families stay visible
// instead of being silently dropped.
func RankResults(results map[string]BenchmarkResult) []BenchmarkResult {
	ranked := make([]BenchmarkResult, 0, len(results))
	for _, r := range results {
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		ra, rb := ranked[a].Metrics.R2, ranked[b].Metrics.R2

		aNaN, bNaN := math.IsNaN(ra), math.IsNaN(rb)

		switch {
		case aNaN && bNaN:
			return ranked[a].Family < ranked[b].Family
		case aNaN:
			return false
		case bNaN:
			return true
		case ra != rb:
			return ra > rb
		default:
			return ranked[a].Family < ranked[b].Family
		}
	})

	return ranked
}
