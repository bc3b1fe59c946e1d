package scatterfit

import (
	"fmt"
	"math"
	"math/rand"
)

//////
// Batch-fit model families.
//
// Every family implements Regressor. Hyperparameter constructors accept a
// possibly-nil map of values sampled by the randomized search; missing keys
// fall back to defaults.
//////

// paramOr reads a hyperparameter value with a default.
func paramOr(params map[string]float64, name string, def float64) float64 {
	if params == nil {
		return def
	}

	if v, ok := params[name]; ok {
		return v
	}

	return def
}

//////
// Elastic net.
//////

// ElasticNet is a linear model with combined L1/L2 regularization, fitted
// by cyclic coordinate descent with soft thresholding.
//
// Non-convergence within MaxIter is tolerated: the coefficients of the last
// sweep are still a usable (if suboptimal) linear fit, matching how the
// benchmark treats iterative solvers.
type ElasticNet struct {
	// Alpha is the overall regularization strength.
	Alpha float64

	// L1Ratio mixes the penalties: 1 is pure lasso, 0 is pure ridge.
	L1Ratio float64

	// MaxIter caps the coordinate-descent sweeps.
	MaxIter int

	// Tol stops the sweeps once the largest coefficient change drops
	// below it.
	Tol float64

	coef      []float64
	intercept float64
	fitted    bool
}

// NewElasticNet builds an elastic net from sampled hyperparameters
// ("alpha", "l1Ratio").
func NewElasticNet(params map[string]float64) *ElasticNet {
	return &ElasticNet{
		Alpha:   paramOr(params, "alpha", 0.01),
		L1Ratio: paramOr(params, "l1Ratio", 0.5),
		MaxIter: 1000,
		Tol:     1e-6,
	}
}

// Fit runs cyclic coordinate descent on centered data.
func (e *ElasticNet) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || n != len(y) {
		return fmt.Errorf("ElasticNet.Fit: %d rows vs %d targets: %w", n, len(y), ErrDimensionMismatch)
	}

	d := len(X[0])
	nf := float64(n)

	// Center columns and targets; the intercept absorbs the means.
	colMeans := make([]float64, d)
	for j := 0; j < d; j++ {
		for i := 0; i < n; i++ {
			colMeans[j] += X[i][j]
		}
		colMeans[j] /= nf
	}

	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= nf

	centered := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, d)
		for j := 0; j < d; j++ {
			row[j] = X[i][j] - colMeans[j]
		}
		centered[i] = row
	}

	colSq := make([]float64, d)
	for j := 0; j < d; j++ {
		for i := 0; i < n; i++ {
			colSq[j] += centered[i][j] * centered[i][j]
		}
	}

	coef := make([]float64, d)

	residual := make([]float64, n)
	for i := 0; i < n; i++ {
		residual[i] = y[i] - yMean
	}

	l1 := e.Alpha * e.L1Ratio * nf
	l2 := e.Alpha * (1 - e.L1Ratio) * nf

	for iter := 0; iter < e.MaxIter; iter++ {
		var maxDelta float64

		for j := 0; j < d; j++ {
			if colSq[j] == 0 {
				continue
			}

			// rho is the partial correlation of feature j with the
			// residual, with j's own contribution restored.
			var rho float64
			for i := 0; i < n; i++ {
				rho += centered[i][j] * (residual[i] + centered[i][j]*coef[j])
			}

			updated := softThreshold(rho, l1) / (colSq[j] + l2)

			delta := updated - coef[j]
			if delta != 0 {
				for i := 0; i < n; i++ {
					residual[i] -= centered[i][j] * delta
				}
			}

			if math.Abs(delta) > maxDelta {
				maxDelta = math.Abs(delta)
			}

			coef[j] = updated
		}

		if maxDelta < e.Tol {
			break
		}
	}

	if !allFinite(coef) {
		return fmt.Errorf("ElasticNet.Fit: non-finite coefficients: %w", ErrConvergence)
	}

	intercept := yMean
	for j := 0; j < d; j++ {
		intercept -= coef[j] * colMeans[j]
	}

	e.coef = coef
	e.intercept = intercept
	e.fitted = true

	return nil
}

// Predict returns the linear response for each row.
func (e *ElasticNet) Predict(X [][]float64) ([]float64, error) {
	if !e.fitted {
		return nil, fmt.Errorf("ElasticNet: %w", ErrNotFitted)
	}

	out := make([]float64, len(X))

	for i, row := range X {
		if len(row) != len(e.coef) {
			return nil, fmt.Errorf("row %d has %d features, expected %d: %w",
				i, len(row), len(e.coef), ErrDimensionMismatch)
		}

		v := e.intercept
		for j, x := range row {
			v += e.coef[j] * x
		}

		out[i] = v
	}

	return out, nil
}

func softThreshold(v, threshold float64) float64 {
	switch {
	case v > threshold:
		return v - threshold
	case v < -threshold:
		return v + threshold
	default:
		return 0
	}
}

//////
// Gradient-boosted trees.
//////

// GradientBoosting fits an additive ensemble of depth-limited regression
// trees on the residuals of the running prediction, shrunk by LearningRate.
type GradientBoosting struct {
	NEstimators  int
	LearningRate float64
	MaxDepth     int

	// Subsample is the fraction of rows each tree sees; 1 disables
	// stochastic boosting.
	Subsample float64

	Seed int64

	base   float64
	trees  []*regressionTree
	fitted bool
}

// NewGradientBoosting builds a booster from sampled hyperparameters
// ("nEstimators", "learningRate", "maxDepth", "subsample").
func NewGradientBoosting(params map[string]float64, seed int64) *GradientBoosting {
	return &GradientBoosting{
		NEstimators:  int(paramOr(params, "nEstimators", 100)),
		LearningRate: paramOr(params, "learningRate", 0.1),
		MaxDepth:     int(paramOr(params, "maxDepth", 3)),
		Subsample:    paramOr(params, "subsample", 1.0),
		Seed:         seed,
	}
}

// Fit grows NEstimators trees against the running residual.
func (g *GradientBoosting) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || n != len(y) {
		return fmt.Errorf("GradientBoosting.Fit: %d rows vs %d targets: %w", n, len(y), ErrDimensionMismatch)
	}

	rng := newRand(g.Seed)

	g.base = 0
	for _, v := range y {
		g.base += v
	}
	g.base /= float64(n)

	current := make([]float64, n)
	for i := range current {
		current[i] = g.base
	}

	residual := make([]float64, n)
	g.trees = make([]*regressionTree, 0, g.NEstimators)

	sampleSize := n
	if g.Subsample > 0 && g.Subsample < 1 {
		sampleSize = int(math.Ceil(g.Subsample * float64(n)))
	}

	for t := 0; t < g.NEstimators; t++ {
		for i := 0; i < n; i++ {
			residual[i] = y[i] - current[i]
		}

		indices := sampleIndices(n, sampleSize, rng)

		tree := newRegressionTree(g.MaxDepth, 1, 0, rng)
		tree.fit(X, residual, indices)

		for i := 0; i < n; i++ {
			current[i] += g.LearningRate * tree.predictOne(X[i])
		}

		g.trees = append(g.trees, tree)
	}

	g.fitted = true

	return nil
}

// Predict sums the shrunk tree responses over the base prediction.
func (g *GradientBoosting) Predict(X [][]float64) ([]float64, error) {
	if !g.fitted {
		return nil, fmt.Errorf("GradientBoosting: %w", ErrNotFitted)
	}

	out := make([]float64, len(X))

	for i, row := range X {
		v := g.base
		for _, tree := range g.trees {
			v += g.LearningRate * tree.predictOne(row)
		}

		out[i] = v
	}

	return out, nil
}

//////
// Random forest.
//////

// RandomForest averages deep regression trees grown on bootstrap samples
// with per-split feature subsampling.
type RandomForest struct {
	NEstimators int
	MaxDepth    int
	MinLeaf     int
	Seed        int64

	trees  []*regressionTree
	fitted bool
}

// NewRandomForest builds a forest from sampled hyperparameters
// ("nEstimators", "maxDepth", "minLeaf").
func NewRandomForest(params map[string]float64, seed int64) *RandomForest {
	return &RandomForest{
		NEstimators: int(paramOr(params, "nEstimators", 100)),
		MaxDepth:    int(paramOr(params, "maxDepth", 8)),
		MinLeaf:     int(paramOr(params, "minLeaf", 1)),
		Seed:        seed,
	}
}

// Fit grows the ensemble on bootstrap resamples of the training rows.
func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || n != len(y) {
		return fmt.Errorf("RandomForest.Fit: %d rows vs %d targets: %w", n, len(y), ErrDimensionMismatch)
	}

	rng := newRand(f.Seed)

	// The regression default: a third of the features per split.
	maxFeatures := len(X[0]) / 3
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	f.trees = make([]*regressionTree, 0, f.NEstimators)

	for t := 0; t < f.NEstimators; t++ {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = rng.Intn(n)
		}

		tree := newRegressionTree(f.MaxDepth, f.MinLeaf, maxFeatures, rng)
		tree.fit(X, y, indices)

		f.trees = append(f.trees, tree)
	}

	f.fitted = true

	return nil
}

// Predict averages the per-tree responses.
func (f *RandomForest) Predict(X [][]float64) ([]float64, error) {
	if !f.fitted {
		return nil, fmt.Errorf("RandomForest: %w", ErrNotFitted)
	}

	out := make([]float64, len(X))

	for i, row := range X {
		var sum float64
		for _, tree := range f.trees {
			sum += tree.predictOne(row)
		}

		out[i] = sum / float64(len(f.trees))
	}

	return out, nil
}

//////
// Shallow neural network.
//////

// MLPRegressor is a single-hidden-layer tanh network with a linear output,
// trained by full-batch gradient descent with momentum.
//
// The optimizer may diverge for aggressive learning rates; Fit then returns
// ErrConvergence so the benchmark can record NaN metrics for the family
// instead of aborting the run.
type MLPRegressor struct {
	HiddenUnits  int
	LearningRate float64
	Epochs       int
	Momentum     float64
	Seed         int64

	w1 [][]float64 // hidden x inputs
	b1 []float64
	w2 []float64 // output weights
	b2 float64

	fitted bool
}

// NewMLPRegressor builds a network from sampled hyperparameters
// ("hiddenUnits", "learningRate", "epochs").
func NewMLPRegressor(params map[string]float64, seed int64) *MLPRegressor {
	return &MLPRegressor{
		HiddenUnits:  int(paramOr(params, "hiddenUnits", 16)),
		LearningRate: paramOr(params, "learningRate", 0.01),
		Epochs:       int(paramOr(params, "epochs", 500)),
		Momentum:     0.9,
		Seed:         seed,
	}
}

// Fit trains the network on the full batch for the epoch budget.
func (m *MLPRegressor) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || n != len(y) {
		return fmt.Errorf("MLPRegressor.Fit: %d rows vs %d targets: %w", n, len(y), ErrDimensionMismatch)
	}

	d := len(X[0])
	h := m.HiddenUnits
	rng := newRand(m.Seed)

	scale := math.Sqrt(2.0 / float64(d+h))

	m.w1 = make([][]float64, h)
	m.b1 = make([]float64, h)
	m.w2 = make([]float64, h)

	for k := 0; k < h; k++ {
		m.w1[k] = make([]float64, d)
		for j := 0; j < d; j++ {
			m.w1[k][j] = scale * rng.NormFloat64()
		}

		m.w2[k] = scale * rng.NormFloat64()
	}

	vw1 := make([][]float64, h)
	for k := range vw1 {
		vw1[k] = make([]float64, d)
	}
	vb1 := make([]float64, h)
	vw2 := make([]float64, h)
	var vb2 float64

	hidden := make([][]float64, n)
	for i := range hidden {
		hidden[i] = make([]float64, h)
	}

	nf := float64(n)

	for epoch := 0; epoch < m.Epochs; epoch++ {
		// Forward pass.
		preds := make([]float64, n)

		for i := 0; i < n; i++ {
			out := m.b2
			for k := 0; k < h; k++ {
				a := m.b1[k]
				for j := 0; j < d; j++ {
					a += m.w1[k][j] * X[i][j]
				}

				hidden[i][k] = math.Tanh(a)
				out += m.w2[k] * hidden[i][k]
			}

			preds[i] = out
		}

		// Backward pass: mean squared error gradients.
		gw1 := make([][]float64, h)
		for k := range gw1 {
			gw1[k] = make([]float64, d)
		}
		gb1 := make([]float64, h)
		gw2 := make([]float64, h)
		var gb2 float64

		for i := 0; i < n; i++ {
			dOut := 2 * (preds[i] - y[i]) / nf
			gb2 += dOut

			for k := 0; k < h; k++ {
				gw2[k] += dOut * hidden[i][k]

				dHidden := dOut * m.w2[k] * (1 - hidden[i][k]*hidden[i][k])
				gb1[k] += dHidden

				for j := 0; j < d; j++ {
					gw1[k][j] += dHidden * X[i][j]
				}
			}
		}

		// Momentum update.
		for k := 0; k < h; k++ {
			for j := 0; j < d; j++ {
				vw1[k][j] = m.Momentum*vw1[k][j] - m.LearningRate*gw1[k][j]
				m.w1[k][j] += vw1[k][j]
			}

			vb1[k] = m.Momentum*vb1[k] - m.LearningRate*gb1[k]
			m.b1[k] += vb1[k]

			vw2[k] = m.Momentum*vw2[k] - m.LearningRate*gw2[k]
			m.w2[k] += vw2[k]
		}

		vb2 = m.Momentum*vb2 - m.LearningRate*gb2
		m.b2 += vb2

		if math.IsNaN(m.b2) || math.IsInf(m.b2, 0) {
			return fmt.Errorf("MLPRegressor.Fit: diverged at epoch %d: %w", epoch, ErrConvergence)
		}
	}

	for k := 0; k < h; k++ {
		if !allFinite(m.w1[k]) {
			return fmt.Errorf("MLPRegressor.Fit: non-finite weights: %w", ErrConvergence)
		}
	}

	m.fitted = true

	return nil
}

// Predict runs the forward pass.
func (m *MLPRegressor) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, fmt.Errorf("MLPRegressor: %w", ErrNotFitted)
	}

	out := make([]float64, len(X))

	for i, row := range X {
		if len(row) != len(m.w1[0]) {
			return nil, fmt.Errorf("row %d has %d features, expected %d: %w",
				i, len(row), len(m.w1[0]), ErrDimensionMismatch)
		}

		v := m.b2
		for k := range m.w1 {
			a := m.b1[k]
			for j, x := range row {
				a += m.w1[k][j] * x
			}

			v += m.w2[k] * math.Tanh(a)
		}

		out[i] = v
	}

	return out, nil
}

//////
// Kernel support-vector regression.
//////

// KernelSVR is epsilon-insensitive support-vector regression on the radial
// basis function kernel expansion, trained by coordinate-wise updates over
// the dual coefficients.
type KernelSVR struct {
	// C is the penalty weight on margin violations.
	C float64

	// Gamma is the RBF kernel coefficient.
	Gamma float64

	// Epsilon is the insensitivity tube half-width.
	Epsilon float64

	// Epochs is the number of passes over the training rows.
	Epochs int

	Seed int64

	support [][]float64
	alpha   []float64
	bias    float64
	fitted  bool
}

// NewKernelSVR builds a machine from sampled hyperparameters
// ("c", "gamma", "epsilon").
func NewKernelSVR(params map[string]float64, seed int64) *KernelSVR {
	return &KernelSVR{
		C:       paramOr(params, "c", 1.0),
		Gamma:   paramOr(params, "gamma", 1.0),
		Epsilon: paramOr(params, "epsilon", 0.01),
		Epochs:  50,
		Seed:    seed,
	}
}

// Fit learns the dual coefficients by coordinate-wise updates on the
// ridge-regularized kernel system, cycling the rows in seeded random
// order. A row inside the epsilon tube is left alone; a violated row's
// coefficient moves by the exact single-coordinate minimizer, clamped to
// the box [-C, C].
func (k *KernelSVR) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || n != len(y) {
		return fmt.Errorf("KernelSVR.Fit: %d rows vs %d targets: %w", n, len(y), ErrDimensionMismatch)
	}

	rng := newRand(k.Seed)

	k.support = make([][]float64, n)
	for i, row := range X {
		k.support[i] = append([]float64(nil), row...)
	}

	// The bias absorbs the target mean; the coefficients fit the rest.
	k.bias = 0
	for _, v := range y {
		k.bias += v
	}
	k.bias /= float64(n)

	k.alpha = make([]float64, n)

	// Kernel rows are reused every epoch; precompute once.
	kernel := make([][]float64, n)
	for i := 0; i < n; i++ {
		kernel[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			kernel[i][j] = rbfKernel(X[i], X[j], k.Gamma)
		}
	}

	ridge := 1.0 / k.C
	perm := rng.Perm(n)

	for epoch := 0; epoch < k.Epochs; epoch++ {
		rng.Shuffle(n, func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })

		for _, i := range perm {
			f := k.bias
			for j := 0; j < n; j++ {
				f += k.alpha[j] * kernel[i][j]
			}

			err := y[i] - f
			if math.Abs(err) <= k.Epsilon {
				continue
			}

			delta := (err - k.Epsilon*sign(err)) / (kernel[i][i] + ridge)
			k.alpha[i] = clamp(k.alpha[i]+delta, -k.C, k.C)
		}
	}

	if !allFinite(k.alpha) {
		return fmt.Errorf("KernelSVR.Fit: non-finite coefficients: %w", ErrConvergence)
	}

	k.fitted = true

	return nil
}

// Predict evaluates the kernel expansion at each row.
func (k *KernelSVR) Predict(X [][]float64) ([]float64, error) {
	if !k.fitted {
		return nil, fmt.Errorf("KernelSVR: %w", ErrNotFitted)
	}

	out := make([]float64, len(X))

	for i, row := range X {
		v := k.bias
		for j, sv := range k.support {
			v += k.alpha[j] * rbfKernel(row, sv, k.Gamma)
		}

		out[i] = v
	}

	return out, nil
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}

	return 1
}

// sampleIndices draws size row indices without replacement when size < n,
// or the identity selection otherwise.
func sampleIndices(n, size int, rng *rand.Rand) []int {
	if size >= n {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}

		return indices
	}

	return rng.Perm(n)[:size]
}

//////
// Family registry.
//////

// DefaultFamilies returns the benchmarked model families with their search
// spaces. Families without a space (the Gaussian process) are fitted
// directly with defaults. The seed decorrelates the stochastic learners
// while keeping the whole benchmark reproducible.
func DefaultFamilies(seed int64) []ModelFamily {
	return []ModelFamily{
		{
			Name: "linear-elastic",
			New:  func(p map[string]float64) Regressor { return NewElasticNet(p) },
			Space: SearchSpace{
				"alpha":   {Min: 1e-4, Max: 10, Log: true},
				"l1Ratio": {Min: 0, Max: 1},
			},
		},
		{
			Name: "gradient-boosted-trees",
			New: func(p map[string]float64) Regressor {
				return NewGradientBoosting(p, deriveSeed(seed, "gradient-boosted-trees"))
			},
			Space: SearchSpace{
				"nEstimators":  {Min: 50, Max: 300, Integer: true},
				"learningRate": {Min: 0.01, Max: 0.3, Log: true},
				"maxDepth":     {Min: 2, Max: 5, Integer: true},
				"subsample":    {Min: 0.6, Max: 1.0},
			},
		},
		{
			Name: "random-forest",
			New: func(p map[string]float64) Regressor {
				return NewRandomForest(p, deriveSeed(seed, "random-forest"))
			},
			Space: SearchSpace{
				"nEstimators": {Min: 50, Max: 300, Integer: true},
				"maxDepth":    {Min: 3, Max: 12, Integer: true},
				"minLeaf":     {Min: 1, Max: 8, Integer: true},
			},
		},
		{
			Name: "shallow-neural-net",
			New: func(p map[string]float64) Regressor {
				return NewMLPRegressor(p, deriveSeed(seed, "shallow-neural-net"))
			},
			Space: SearchSpace{
				"hiddenUnits":  {Min: 4, Max: 64, Integer: true},
				"learningRate": {Min: 1e-3, Max: 0.1, Log: true},
				"epochs":       {Min: 200, Max: 1000, Integer: true},
			},
		},
		{
			Name: "kernel-support-vector",
			New: func(p map[string]float64) Regressor {
				return NewKernelSVR(p, deriveSeed(seed, "kernel-support-vector"))
			},
			Space: SearchSpace{
				"c":       {Min: 0.1, Max: 100, Log: true},
				"gamma":   {Min: 0.01, Max: 10, Log: true},
				"epsilon": {Min: 0.001, Max: 0.1, Log: true},
			},
		},
		{
			Name: "gaussian-process",
			New:  func(p map[string]float64) Regressor { return NewGPRegressor(p) },
		},
	}
}
