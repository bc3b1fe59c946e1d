package scatterfit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//////
// Dimensionality reduction for inspection.
//
// Both reducers project (standardized scan angle, conditioned intensity)
// rows into two components. The embeddings are purely descriptive: they are
// consumed by visualization only and nothing downstream depends on them, so
// a degenerate input is reported as an error and the rest of the pipeline
// carries on.
//////

// PCA2 projects the rows of data onto the top two directions of variance.
//
// Parameters:
// - data: Matrix with one row per sample and at least two columns
//
// Returns:
// - [][]float64: One two-component embedding row per input row
// - error: ErrDegenerateInput when the covariance structure cannot be
//   decomposed (too few rows or columns, or zero variance)
func PCA2(data [][]float64) ([][]float64, error) {
	rows, cols, err := matrixDims(data)
	if err != nil {
		return nil, err
	}

	if rows < 3 || cols < 2 {
		return nil, fmt.Errorf("need at least 3 rows and 2 columns, got %dx%d: %w",
			rows, cols, ErrDegenerateInput)
	}

	m := mat.NewDense(rows, cols, nil)
	for i, row := range data {
		m.SetRow(i, row)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(m, nil); !ok {
		return nil, fmt.Errorf("principal component decomposition failed: %w", ErrDegenerateInput)
	}

	var vectors mat.Dense
	pc.VectorsTo(&vectors)

	// Project mean-centered rows onto the first two component directions.
	means := make([]float64, cols)
	for j := 0; j < cols; j++ {
		col := make([]float64, rows)
		mat.Col(col, j, m)
		means[j] = stat.Mean(col, nil)
	}

	out := make([][]float64, rows)

	for i := 0; i < rows; i++ {
		point := make([]float64, 2)

		for c := 0; c < 2; c++ {
			var sum float64
			for j := 0; j < cols; j++ {
				sum += (m.At(i, j) - means[j]) * vectors.At(j, c)
			}

			point[c] = sum
		}

		out[i] = point
	}

	return out, nil
}

// KernelPCA2 projects the rows of data onto two components of a radial
// basis function kernel space. The kernel matrix is double-centered and
// eigendecomposed; each embedding axis is the corresponding eigenvector
// scaled by the square root of its eigenvalue.
//
// Parameters:
// - data: Matrix with one row per sample
// - gamma: RBF kernel coefficient, k(a, b) = exp(-gamma * ||a-b||^2); must be positive
//
// Returns:
// - [][]float64: One two-component embedding row per input row
// - error: ErrDegenerateInput when fewer than three rows are supplied or
//   the centered kernel has no positive spectrum
func KernelPCA2(data [][]float64, gamma float64) ([][]float64, error) {
	rows, _, err := matrixDims(data)
	if err != nil {
		return nil, err
	}

	if rows < 3 {
		return nil, fmt.Errorf("need at least 3 rows, got %d: %w", rows, ErrDegenerateInput)
	}

	if gamma <= 0 {
		return nil, fmt.Errorf("gamma must be positive, got %g: %w", gamma, ErrDegenerateInput)
	}

	// Kernel matrix.
	k := mat.NewSymDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := i; j < rows; j++ {
			var sq float64
			for d := range data[i] {
				diff := data[i][d] - data[j][d]
				sq += diff * diff
			}

			k.SetSym(i, j, math.Exp(-gamma*sq))
		}
	}

	centered := centerKernel(k)

	var eig mat.EigenSym
	if ok := eig.Factorize(centered, true); !ok {
		return nil, fmt.Errorf("kernel eigendecomposition failed: %w", ErrDegenerateInput)
	}

	values := eig.Values(nil)

	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Eigenvalues come back in ascending order; the top two sit at the end.
	top := []int{rows - 1, rows - 2}
	for _, idx := range top {
		if values[idx] <= 1e-12 {
			return nil, fmt.Errorf("centered kernel has no positive spectrum: %w", ErrDegenerateInput)
		}
	}

	out := make([][]float64, rows)

	for i := 0; i < rows; i++ {
		point := make([]float64, 2)
		for c, idx := range top {
			point[c] = vectors.At(i, idx) * math.Sqrt(values[idx])
		}

		out[i] = point
	}

	return out, nil
}

// centerKernel applies double centering: K' = K - 1K - K1 + 1K1, where 1 is
// the constant 1/n matrix. Centering moves the implicit feature map to the
// origin, which kernel PCA requires.
func centerKernel(k *mat.SymDense) *mat.SymDense {
	n := k.SymmetricDim()

	rowMeans := make([]float64, n)
	var total float64

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rowMeans[i] += k.At(i, j)
		}

		rowMeans[i] /= float64(n)
		total += rowMeans[i]
	}

	grand := total / float64(n)

	centered := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			centered.SetSym(i, j, k.At(i, j)-rowMeans[i]-rowMeans[j]+grand)
		}
	}

	return centered
}

// matrixDims validates that data is rectangular and returns its dimensions.
func matrixDims(data [][]float64) (rows, cols int, err error) {
	rows = len(data)
	if rows == 0 {
		return 0, 0, fmt.Errorf("empty matrix: %w", ErrInsufficientData)
	}

	cols = len(data[0])
	for i, row := range data {
		if len(row) != cols {
			return 0, 0, fmt.Errorf("row %d has %d columns, expected %d: %w",
				i, len(row), cols, ErrDimensionMismatch)
		}
	}

	return rows, cols, nil
}
