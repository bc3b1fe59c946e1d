package scatterfit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestSavitzkyGolayValidation(t *testing.T) {
	sig := GenerateSignal(50, 0, 180, 0, 1)

	// Even windows are rejected.
	_, err := SavitzkyGolay(sig, 14, 3)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	// The window must exceed the polynomial order.
	_, err = SavitzkyGolay(sig, 3, 3)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	// The window cannot exceed the signal length.
	_, err = SavitzkyGolay(sig, 51, 3)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	// Negative orders are rejected.
	_, err = SavitzkyGolay(sig, 15, -1)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	// Signals shorter than three samples cannot be smoothed.
	short := Signal{Positions: []float64{0, 1}, Values: []float64{1, 2}}
	_, err = SavitzkyGolay(short, 1, 0)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSavitzkyGolayPreservesAxis(t *testing.T) {
	raw := GenerateSignal(200, 0, 180, 0.05, 42)

	smooth, err := SavitzkyGolay(raw, 15, 3)
	require.NoError(t, err)

	// The output has exactly the input's length and position axis.
	assert.Equal(t, raw.Len(), smooth.Len())
	assert.Equal(t, raw.Positions, smooth.Positions)
}

func TestSavitzkyGolayReproducesPolynomial(t *testing.T) {
	// A cubic signal is inside the model class of an order-3 fit, so the
	// interior samples must come back unchanged up to rounding.
	n := 60
	sig := Signal{
		Positions: make([]float64, n),
		Values:    make([]float64, n),
	}

	for i := 0; i < n; i++ {
		x := float64(i) / 10

		sig.Positions[i] = x
		sig.Values[i] = 0.5*x*x*x - 2*x*x + x - 3
	}

	window := 11
	smooth, err := SavitzkyGolay(sig, window, 3)
	require.NoError(t, err)

	half := window / 2
	for i := half; i < n-half; i++ {
		assert.InDelta(t, sig.Values[i], smooth.Values[i], 1e-8)
	}
}

func TestSavitzkyGolayReducesNoiseVariance(t *testing.T) {
	// The end-to-end conditioning contract: on a length-200 noisy sinusoid
	// with a fixed seed, window=15/order=3 must strictly reduce the
	// residual variance against the clean curve.
	clean := GenerateSignal(200, 0, 180, 0, 1)
	raw := GenerateSignal(200, 0, 180, 0.05, 42)

	smooth, err := SavitzkyGolay(raw, 15, 3)
	require.NoError(t, err)

	rawResidual := residuals(clean.Values, raw.Values)
	smoothResidual := residuals(clean.Values, smooth.Values)

	assert.Less(t, stat.Variance(smoothResidual, nil), stat.Variance(rawResidual, nil))
}

func TestGenerateSignalDeterminism(t *testing.T) {
	a := GenerateSignal(100, 0, 180, 0.1, 7)
	b := GenerateSignal(100, 0, 180, 0.1, 7)

	// Identical seeds reproduce identical curves.
	assert.Equal(t, a, b)

	// The position axis is strictly increasing.
	assert.NoError(t, a.Validate())
}
