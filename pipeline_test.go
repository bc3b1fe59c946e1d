package scatterfit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestStandardScalerNotFitted(t *testing.T) {
	scaler := NewStandardScaler()

	_, err := scaler.Transform([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestStandardScalerStandardizes(t *testing.T) {
	X := [][]float64{{1, 10}, {2, 20}, {3, 30}, {4, 40}}

	scaler := NewStandardScaler()

	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	// Each column of the output has zero mean and unit variance.
	for j := 0; j < 2; j++ {
		col := make([]float64, len(out))
		for i := range out {
			col[i] = out[i][j]
		}

		mean, std := stat.MeanStdDev(col, nil)
		assert.InDelta(t, 0, mean, 1e-12)
		assert.InDelta(t, 1, std, 1e-12)
	}
}

func TestStandardScalerConstantColumn(t *testing.T) {
	// A zero-variance column is centered but not scaled.
	X := [][]float64{{5}, {5}, {5}}

	scaler := NewStandardScaler()

	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	for _, row := range out {
		assert.Equal(t, 0.0, row[0])
	}
}

func TestPolynomialFeaturesExpansion(t *testing.T) {
	poly := NewPolynomialFeatures(3)

	out, err := poly.FitTransform([][]float64{{2}})
	require.NoError(t, err)

	// Powers 1..3, no bias column.
	assert.Equal(t, []float64{2, 4, 8}, out[0])
}

func TestPolynomialFeaturesNotFitted(t *testing.T) {
	poly := NewPolynomialFeatures(2)

	_, err := poly.Transform([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestFeaturePipelineNotFitted(t *testing.T) {
	pipe := NewFeaturePipeline(3)

	_, err := pipe.Transform([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestFeaturePipelineDimension(t *testing.T) {
	pipe := NewFeaturePipeline(5)

	X := columnMatrix([]float64{1, 2, 3, 4, 5, 6})

	out, err := pipe.FitTransform(X)
	require.NoError(t, err)

	// A scalar input expands to exactly Degree features, a configuration
	// constant independent of the data.
	assert.Len(t, out[0], 5)
}

func TestFeaturePipelineFitTransformCoherence(t *testing.T) {
	X := columnMatrix([]float64{1, 2, 3, 4, 5, 6, 7, 8})

	// FitTransform must agree with Fit followed by Transform on the same
	// data.
	a := NewFeaturePipeline(3)
	combined, err := a.FitTransform(X)
	require.NoError(t, err)

	b := NewFeaturePipeline(3)
	require.NoError(t, b.Fit(X))

	separate, err := b.Transform(X)
	require.NoError(t, err)

	for i := range combined {
		for j := range combined[i] {
			assert.InDelta(t, combined[i][j], separate[i][j], 1e-12)
		}
	}
}

func TestFeaturePipelineParametersFrozen(t *testing.T) {
	train := columnMatrix([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	future := columnMatrix([]float64{100, 200, 300})

	pipe := NewFeaturePipeline(3)

	first, err := pipe.FitTransform(train)
	require.NoError(t, err)

	// Transforming disjoint data must not re-estimate anything: the
	// training rows transform identically before and after.
	_, err = pipe.Transform(future)
	require.NoError(t, err)

	second, err := pipe.Transform(train)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFeaturePipelineDimensionMismatch(t *testing.T) {
	pipe := NewFeaturePipeline(2)

	_, err := pipe.FitTransform(columnMatrix([]float64{1, 2, 3}))
	require.NoError(t, err)

	// A row with the wrong feature count is a contract violation.
	_, err = pipe.Transform([][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
