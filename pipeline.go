package scatterfit

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

//////
// Feature pipeline: scale -> polynomial expansion -> scale.
//
// Every batch regressor in the benchmark consumes features produced by this
// chain. Fit estimates stage parameters from training data only; Transform
// applies the stored parameters without re-estimation, which is what makes
// held-out evaluation and future projection sound.
//////

// StandardScaler standardizes each feature column to zero mean and unit
// variance using parameters estimated during Fit.
//
// Columns with (near) zero variance are scaled by 1 instead, so constant
// features pass through centered rather than exploding.
type StandardScaler struct {
	means  []float64
	stds   []float64
	fitted bool
}

// NewStandardScaler returns an unfitted scaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit estimates the per-column mean and standard deviation.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return fmt.Errorf("empty feature matrix: %w", ErrInsufficientData)
	}

	cols := len(X[0])

	s.means = make([]float64, cols)
	s.stds = make([]float64, cols)

	column := make([]float64, len(X))

	for j := 0; j < cols; j++ {
		for i, row := range X {
			if len(row) != cols {
				return fmt.Errorf("row %d has %d features, expected %d: %w",
					i, len(row), cols, ErrDimensionMismatch)
			}

			column[i] = row[j]
		}

		mean, std := stat.MeanStdDev(column, nil)
		if std < 1e-12 {
			std = 1
		}

		s.means[j] = mean
		s.stds[j] = std
	}

	s.fitted = true

	return nil
}

// Transform standardizes X with the stored parameters. Returns ErrNotFitted
// before Fit. Safe for concurrent use after fitting.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	if !s.fitted {
		return nil, fmt.Errorf("StandardScaler: %w", ErrNotFitted)
	}

	out := make([][]float64, len(X))

	for i, row := range X {
		if len(row) != len(s.means) {
			return nil, fmt.Errorf("row %d has %d features, expected %d: %w",
				i, len(row), len(s.means), ErrDimensionMismatch)
		}

		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.means[j]) / s.stds[j]
		}

		out[i] = scaled
	}

	return out, nil
}

// FitTransform fits the scaler on X and returns the transformed X.
func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}

	return s.Transform(X)
}

// PolynomialFeatures expands each feature column into its powers
// 1..Degree, without a bias column. For the pipeline's scalar input the
// output dimension is exactly Degree, a configuration constant.
//
// The expansion itself is parameter-free; Fit only records the expected
// input width so Transform can validate it.
type PolynomialFeatures struct {
	// Degree is the highest power generated. Must be at least 1.
	Degree int

	nFeatures int
	fitted    bool
}

// NewPolynomialFeatures returns an unfitted expansion of the given degree.
func NewPolynomialFeatures(degree int) *PolynomialFeatures {
	return &PolynomialFeatures{Degree: degree}
}

// Fit records the input width.
func (p *PolynomialFeatures) Fit(X [][]float64) error {
	if p.Degree < 1 {
		return fmt.Errorf("polynomial degree %d, need at least 1: %w", p.Degree, ErrDimensionMismatch)
	}

	if len(X) == 0 || len(X[0]) == 0 {
		return fmt.Errorf("empty feature matrix: %w", ErrInsufficientData)
	}

	p.nFeatures = len(X[0])
	p.fitted = true

	return nil
}

// Transform expands every row to [x1, x1^2, .., x1^D, x2, ..].
func (p *PolynomialFeatures) Transform(X [][]float64) ([][]float64, error) {
	if !p.fitted {
		return nil, fmt.Errorf("PolynomialFeatures: %w", ErrNotFitted)
	}

	out := make([][]float64, len(X))

	for i, row := range X {
		if len(row) != p.nFeatures {
			return nil, fmt.Errorf("row %d has %d features, expected %d: %w",
				i, len(row), p.nFeatures, ErrDimensionMismatch)
		}

		expanded := make([]float64, 0, p.nFeatures*p.Degree)

		for _, v := range row {
			power := v
			for d := 1; d <= p.Degree; d++ {
				expanded = append(expanded, power)
				power *= v
			}
		}

		out[i] = expanded
	}

	return out, nil
}

// FitTransform fits the expansion on X and returns the expanded X.
func (p *PolynomialFeatures) FitTransform(X [][]float64) ([][]float64, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}

	return p.Transform(X)
}

// FeaturePipeline is the fixed three-stage transform shared by every batch
// regressor: standardize the scalar input, expand to a polynomial basis,
// standardize the expanded vector.
//
// The pipeline's fitted parameters are written once by Fit and read-only
// afterwards; concurrent Transform calls after fitting are safe. Each
// benchmark run owns its own pipeline instance, keeping runs independent.
type FeaturePipeline struct {
	inputScaler  *StandardScaler
	expansion    *PolynomialFeatures
	outputScaler *StandardScaler
}

// NewFeaturePipeline returns an unfitted pipeline with the given polynomial
// degree.
func NewFeaturePipeline(degree int) *FeaturePipeline {
	return &FeaturePipeline{
		inputScaler:  NewStandardScaler(),
		expansion:    NewPolynomialFeatures(degree),
		outputScaler: NewStandardScaler(),
	}
}

// Fit estimates all stage parameters from the training input, in order.
func (fp *FeaturePipeline) Fit(X [][]float64) error {
	_, err := fp.FitTransform(X)

	return err
}

// Transform applies the stored stage parameters in order without
// re-estimation.
func (fp *FeaturePipeline) Transform(X [][]float64) ([][]float64, error) {
	scaled, err := fp.inputScaler.Transform(X)
	if err != nil {
		return nil, err
	}

	expanded, err := fp.expansion.Transform(scaled)
	if err != nil {
		return nil, err
	}

	return fp.outputScaler.Transform(expanded)
}

// FitTransform fits every stage on the (transformed) training input and
// returns the final features.
func (fp *FeaturePipeline) FitTransform(X [][]float64) ([][]float64, error) {
	scaled, err := fp.inputScaler.FitTransform(X)
	if err != nil {
		return nil, err
	}

	expanded, err := fp.expansion.FitTransform(scaled)
	if err != nil {
		return nil, err
	}

	return fp.outputScaler.FitTransform(expanded)
}
