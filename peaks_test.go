package scatterfit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPeaksPureSine(t *testing.T) {
	// A pure sin over [0, 180] degrees has exactly one analytic maximum,
	// at 90 degrees.
	sig := GenerateSignal(181, 0, 180, 0, 1)

	peaks, err := FindPeaks(sig, FindPeaksConfig{MinHeight: 0.01, MinProminence: 0.01, MinDistance: 1})
	require.NoError(t, err)

	require.Len(t, peaks, 1)
	assert.InDelta(t, 90, peaks[0].Position, 1.5)
	assert.InDelta(t, 1, peaks[0].Height, 1e-3)

	// No higher terrain exists, so the prominence is the full height
	// above the boundary valleys.
	assert.InDelta(t, 1, peaks[0].Prominence, 1e-3)

	// sin crosses the half-prominence level 0.5 at 30 and 150 degrees.
	assert.InDelta(t, 120, peaks[0].Width, 2.5)
}

func TestFindPeaksPeriodicSine(t *testing.T) {
	// Two full maxima over [0, 720] degrees, at 90 and 450.
	sig := GenerateSignal(721, 0, 720, 0, 1)

	peaks, err := FindPeaks(sig, FindPeaksConfig{MinHeight: 0.01, MinProminence: 0.01, MinDistance: 5})
	require.NoError(t, err)

	require.Len(t, peaks, 2)
	assert.InDelta(t, 90, peaks[0].Position, 1.5)
	assert.InDelta(t, 450, peaks[1].Position, 1.5)

	// Output is ordered by position.
	assert.Less(t, peaks[0].Position, peaks[1].Position)
}

func TestFindPeaksNoPeaks(t *testing.T) {
	// A monotonic ramp has no interior maxima; the empty result is valid,
	// not an error.
	sig := Signal{
		Positions: []float64{0, 1, 2, 3, 4},
		Values:    []float64{0, 1, 2, 3, 4},
	}

	peaks, err := FindPeaks(sig, DefaultFindPeaksConfig())
	require.NoError(t, err)
	assert.Empty(t, peaks)
}

func TestFindPeaksMinDistancePrefersHigher(t *testing.T) {
	// Two candidates two samples apart; with MinDistance 3 only the
	// higher one may survive.
	sig := Signal{
		Positions: []float64{0, 1, 2, 3, 4},
		Values:    []float64{0, 1, 0.2, 0.9, 0},
	}

	peaks, err := FindPeaks(sig, FindPeaksConfig{MinHeight: 0.1, MinProminence: 0.1, MinDistance: 3})
	require.NoError(t, err)

	require.Len(t, peaks, 1)
	assert.Equal(t, 1.0, peaks[0].Height)
	assert.Equal(t, 1.0, peaks[0].Position)
}

func TestFindPeaksHeightAndProminenceFilters(t *testing.T) {
	sig := Signal{
		Positions: []float64{0, 1, 2, 3, 4},
		Values:    []float64{0, 1, 0.2, 0.9, 0},
	}

	// A height floor above both candidates leaves nothing.
	peaks, err := FindPeaks(sig, FindPeaksConfig{MinHeight: 2, MinProminence: 0.1, MinDistance: 1})
	require.NoError(t, err)
	assert.Empty(t, peaks)

	// The lower peak's prominence is limited by the saddle at 0.2; a
	// prominence floor above it keeps only the higher peak.
	peaks, err = FindPeaks(sig, FindPeaksConfig{MinHeight: 0.1, MinProminence: 0.8, MinDistance: 1})
	require.NoError(t, err)
	require.Len(t, peaks, 1)
	assert.Equal(t, 1.0, peaks[0].Height)
}

func TestFindPeaksNegativeDistance(t *testing.T) {
	sig := GenerateSignal(20, 0, 180, 0, 1)

	_, err := FindPeaks(sig, FindPeaksConfig{MinDistance: -1})
	assert.Error(t, err)
}
