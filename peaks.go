package scatterfit

import (
	"fmt"
	"sort"
)

//////
// Peak detection.
//////

// Peak describes one detected local maximum of a signal. Peaks are computed
// once per signal variant and immutable afterwards.
type Peak struct {
	// Position is the scan angle of the maximum.
	Position float64

	// Height is the signal value at the maximum.
	Height float64

	// Prominence is the minimum vertical drop required to reach higher
	// terrain on either side of the peak.
	Prominence float64

	// Width is the full width at the half-prominence level, in position
	// units, estimated by linear interpolation on both flanks.
	Width float64
}

// FindPeaksConfig holds the detection thresholds. Thresholds are fixed per
// run: the extractor never tunes them.
type FindPeaksConfig struct {
	// MinHeight discards maxima whose value is below this level.
	MinHeight float64

	// MinProminence discards maxima whose prominence is below this level.
	MinProminence float64

	// MinDistance is the minimum index separation between reported peaks.
	// When two candidates conflict, the higher one wins.
	MinDistance int
}

// DefaultFindPeaksConfig returns the thresholds used by the reference
// scattering-curve analysis.
func DefaultFindPeaksConfig() FindPeaksConfig {
	return FindPeaksConfig{
		MinHeight:     0.01,
		MinProminence: 0.01,
		MinDistance:   1,
	}
}

// FindPeaks detects local maxima of a signal subject to minimum height,
// minimum prominence, and minimum index separation constraints.
//
// Algorithm:
//  1. Scan for indices strictly greater than both neighbors.
//  2. Discard candidates below MinHeight.
//  3. Compute each candidate's prominence (valley walk that stops at higher
//     terrain) and discard those below MinProminence.
//  4. Greedily enforce MinDistance, preferring higher peaks on conflict.
//  5. Report survivors ordered by position, with widths at half prominence.
//
// Returns:
// - []Peak: Detected peaks ordered by position. An empty slice is a valid,
//   non-error result.
// - error: Only for contract violations (malformed signal, negative
//   distance). Absence of peaks is never an error.
func FindPeaks(sig Signal, cfg FindPeaksConfig) ([]Peak, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	if cfg.MinDistance < 0 {
		return nil, fmt.Errorf("negative MinDistance %d: %w", cfg.MinDistance, ErrDimensionMismatch)
	}

	values := sig.Values
	n := len(values)

	type candidate struct {
		index      int
		prominence float64
	}

	var candidates []candidate

	for i := 1; i < n-1; i++ {
		if values[i] <= values[i-1] || values[i] <= values[i+1] {
			continue
		}

		if values[i] < cfg.MinHeight {
			continue
		}

		prom := prominenceAt(values, i)
		if prom < cfg.MinProminence {
			continue
		}

		candidates = append(candidates, candidate{index: i, prominence: prom})
	}

	// Higher peaks claim their neighborhood first.
	sort.SliceStable(candidates, func(a, b int) bool {
		if values[candidates[a].index] != values[candidates[b].index] {
			return values[candidates[a].index] > values[candidates[b].index]
		}

		return candidates[a].index < candidates[b].index
	})

	var kept []candidate

	for _, c := range candidates {
		conflict := false

		for _, k := range kept {
			d := c.index - k.index
			if d < 0 {
				d = -d
			}

			if d < cfg.MinDistance {
				conflict = true

				break
			}
		}

		if !conflict {
			kept = append(kept, c)
		}
	}

	sort.Slice(kept, func(a, b int) bool { return kept[a].index < kept[b].index })

	peaks := make([]Peak, 0, len(kept))
	for _, c := range kept {
		peaks = append(peaks, Peak{
			Position:   sig.Positions[c.index],
			Height:     values[c.index],
			Prominence: c.prominence,
			Width:      widthAt(sig, c.index, c.prominence),
		})
	}

	return peaks, nil
}

// prominenceAt walks outward from a local maximum on both sides, tracking
// the lowest valley until higher terrain (a strictly greater value) is
// reached or the signal ends. The prominence is the drop from the peak to
// the higher of the two valleys.
func prominenceAt(values []float64, peak int) float64 {
	height := values[peak]

	leftMin := height
	for i := peak - 1; i >= 0; i-- {
		if values[i] > height {
			break
		}

		if values[i] < leftMin {
			leftMin = values[i]
		}
	}

	rightMin := height
	for i := peak + 1; i < len(values); i++ {
		if values[i] > height {
			break
		}

		if values[i] < rightMin {
			rightMin = values[i]
		}
	}

	valley := leftMin
	if rightMin > valley {
		valley = rightMin
	}

	return height - valley
}

// widthAt estimates the full width of a peak at its half-prominence level.
// Each flank is walked outward until the signal crosses the level; the
// crossing position is linearly interpolated between the straddling
// samples. Flanks that reach the signal boundary without crossing are
// clamped at the boundary.
func widthAt(sig Signal, peak int, prominence float64) float64 {
	values := sig.Values
	level := values[peak] - prominence/2

	left := sig.Positions[0]
	for i := peak - 1; i >= 0; i-- {
		if values[i] <= level {
			left = interpolateCrossing(sig, i, i+1, level)

			break
		}
	}

	right := sig.Positions[len(values)-1]
	for i := peak + 1; i < len(values); i++ {
		if values[i] <= level {
			right = interpolateCrossing(sig, i-1, i, level)

			break
		}
	}

	return right - left
}

// interpolateCrossing returns the position where the signal crosses level
// between samples lo and hi, by linear interpolation.
func interpolateCrossing(sig Signal, lo, hi int, level float64) float64 {
	v0, v1 := sig.Values[lo], sig.Values[hi]
	if v0 == v1 {
		return sig.Positions[lo]
	}

	t := (level - v0) / (v1 - v0)

	return sig.Positions[lo] + t*(sig.Positions[hi]-sig.Positions[lo])
}
