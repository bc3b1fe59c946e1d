package scatterfit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

//////
// Signal type and Savitzky-Golay conditioning.
//////

// Signal is an ordered scattering-intensity curve: one intensity value per
// scan position, positions strictly increasing. The raw (noisy) and
// conditioned (smoothed) variants of a curve share the same position axis.
type Signal struct {
	// Positions holds the scan angles, strictly increasing.
	Positions []float64

	// Values holds one intensity value per position.
	Values []float64
}

// Len returns the number of samples in the signal.
func (s Signal) Len() int {
	return len(s.Values)
}

// Validate checks the Signal's structural invariants: matching slice
// lengths and a strictly increasing position axis.
func (s Signal) Validate() error {
	if len(s.Positions) != len(s.Values) {
		return fmt.Errorf("positions has %d entries, values has %d: %w",
			len(s.Positions), len(s.Values), ErrDimensionMismatch)
	}

	for i := 1; i < len(s.Positions); i++ {
		if s.Positions[i] <= s.Positions[i-1] {
			return fmt.Errorf("positions must be strictly increasing at index %d: %w",
				i, ErrDimensionMismatch)
		}
	}

	return nil
}

// SavitzkyGolay smooths a signal by local least-squares polynomial fitting:
// a polynomial of the given order is fitted to each window-sized
// neighborhood and the fitted value at the center replaces the sample.
// The boundaries are handled by edge replication, so the output has exactly
// the input's length and position axis.
//
// Parameters:
// - sig: The raw signal to condition
// - window: Neighborhood size; must be odd, larger than order, and at most sig.Len()
// - order: Polynomial order of the local fit
//
// Returns:
// - Signal: The conditioned signal (new slices; the input is not modified)
// - error: ErrInvalidWindow for bad (window, order) combinations,
//   ErrInsufficientData for signals shorter than three samples
//
// Usage example:
//
//	smoothed, err := scatterfit.SavitzkyGolay(raw, 15, 3)
//	if err != nil {
//	    return err
//	}
//
// Important notes:
// - Deterministic: identical inputs always produce identical outputs
// - Reduces additive high-frequency noise while preserving low-order
//   curvature; a signal that is itself a polynomial of degree <= order is
//   reproduced up to floating-point error
// - The smoothing weights are derived once per (window, order) pair from
//   the pseudoinverse of the local Vandermonde design matrix.
func SavitzkyGolay(sig Signal, window, order int) (Signal, error) {
	if err := sig.Validate(); err != nil {
		return Signal{}, err
	}

	n := sig.Len()
	if n < 3 {
		return Signal{}, fmt.Errorf("signal has %d samples, need at least 3: %w", n, ErrInsufficientData)
	}

	if window%2 == 0 {
		return Signal{}, fmt.Errorf("window %d is even: %w", window, ErrInvalidWindow)
	}

	if window <= order {
		return Signal{}, fmt.Errorf("window %d not larger than order %d: %w", window, order, ErrInvalidWindow)
	}

	if window > n {
		return Signal{}, fmt.Errorf("window %d exceeds signal length %d: %w", window, n, ErrInvalidWindow)
	}

	if order < 0 {
		return Signal{}, fmt.Errorf("negative order %d: %w", order, ErrInvalidWindow)
	}

	weights, err := savGolWeights(window, order)
	if err != nil {
		return Signal{}, err
	}

	half := window / 2

	// Edge replication keeps the output aligned with the input axis.
	padded := make([]float64, n+2*half)
	for i := range padded {
		switch {
		case i < half:
			padded[i] = sig.Values[0]
		case i >= n+half:
			padded[i] = sig.Values[n-1]
		default:
			padded[i] = sig.Values[i-half]
		}
	}

	out := Signal{
		Positions: append([]float64(nil), sig.Positions...),
		Values:    make([]float64, n),
	}

	for i := 0; i < n; i++ {
		var sum float64
		for k := 0; k < window; k++ {
			sum += weights[k] * padded[i+k]
		}

		out.Values[i] = sum
	}

	return out, nil
}

// savGolWeights computes the Savitzky-Golay convolution weights for a
// centered window: row zero of the pseudoinverse of the Vandermonde design
// matrix, obtained by a QR least-squares solve against the identity.
func savGolWeights(window, order int) ([]float64, error) {
	half := window / 2

	design := mat.NewDense(window, order+1, nil)
	for r := 0; r < window; r++ {
		t := float64(r - half)

		p := 1.0
		for j := 0; j <= order; j++ {
			design.Set(r, j, p)
			p *= t
		}
	}

	eye := mat.NewDense(window, window, nil)
	for i := 0; i < window; i++ {
		eye.Set(i, i, 1)
	}

	var qr mat.QR
	qr.Factorize(design)

	var pinv mat.Dense
	if err := qr.SolveTo(&pinv, false, eye); err != nil {
		return nil, fmt.Errorf("design matrix is rank deficient: %w", ErrInvalidWindow)
	}

	weights := make([]float64, window)
	for k := 0; k < window; k++ {
		weights[k] = pinv.At(0, k)
	}

	return weights, nil
}

// GenerateSignal produces the synthetic scattering curve used by examples
// and tests: a sinusoid of the scan angle over [startDeg, endDeg] plus
// seeded additive Gaussian noise.
//
// Parameters:
// - n: Number of samples
// - startDeg, endDeg: Scan-angle range in degrees (startDeg < endDeg)
// - noiseStd: Standard deviation of the additive noise; 0 yields a pure sinusoid
// - seed: Noise seed; identical seeds reproduce identical curves
func GenerateSignal(n int, startDeg, endDeg, noiseStd float64, seed int64) Signal {
	rng := newRand(seed)

	sig := Signal{
		Positions: make([]float64, n),
		Values:    make([]float64, n),
	}

	step := (endDeg - startDeg) / float64(n-1)
	for i := 0; i < n; i++ {
		deg := startDeg + float64(i)*step

		sig.Positions[i] = deg
		sig.Values[i] = math.Sin(deg * math.Pi / 180)

		if noiseStd > 0 {
			sig.Values[i] += noiseStd * rng.NormFloat64()
		}
	}

	return sig
}
