package scatterfit

import (
	"fmt"
	"math"
)

//////
// Sequential trainer: a recurrent regressor over fixed-length windows of
// the raw signal, fitted by iterative gradient descent with early stopping.
//
// The hidden and cell state are reset at the start of every window, in
// training and in inference alike. The recurrent model is used as a
// fixed-window regressor, not a stateful sequence continuator; carrying
// state across windows would change the semantics.
//////

// SequenceWindow pairs a contiguous slice of the raw signal with the next
// value as its label.
type SequenceWindow struct {
	// Input is the window of consecutive signal values, length L.
	Input []float64

	// Target is the value immediately following the window.
	Target float64
}

// MakeWindows builds every overlapping window of the given length from the
// series, in chronological order.
//
// Returns ErrInsufficientData when the series is shorter than length+1 (no
// window has a following value to predict).
func MakeWindows(values []float64, length int) ([]SequenceWindow, error) {
	if length < 1 {
		return nil, fmt.Errorf("window length %d: %w", length, ErrDimensionMismatch)
	}

	if len(values) < length+1 {
		return nil, fmt.Errorf("%d samples for window length %d: %w", len(values), length, ErrInsufficientData)
	}

	windows := make([]SequenceWindow, 0, len(values)-length)

	for i := 0; i+length < len(values); i++ {
		windows = append(windows, SequenceWindow{
			Input:  append([]float64(nil), values[i:i+length]...),
			Target: values[i+length],
		})
	}

	return windows, nil
}

// splitWindows performs the non-shuffled 80/20 split: the test windows are
// the last testFraction of the series, preserving temporal order.
func splitWindows(windows []SequenceWindow, testFraction float64) (train, test []SequenceWindow) {
	nTest := int(math.Round(testFraction * float64(len(windows))))
	nTest = clamp(nTest, 1, len(windows)-1)

	cut := len(windows) - nTest

	return windows[:cut], windows[cut:]
}

// SequenceConfig controls the sequential trainer.
type SequenceConfig struct {
	// WindowLength is the number of consecutive samples fed to the
	// recurrent model per prediction.
	WindowLength int

	// TestFraction is the chronological share of windows held out, from
	// the end of the series.
	TestFraction float64

	// HiddenSize is the width of the recurrent cell.
	HiddenSize int

	// LearningRate scales the per-window gradient step.
	LearningRate float64

	// Epochs is the training budget; early stopping may end training
	// sooner.
	Epochs int

	// Patience is how many consecutive epochs without improvement of the
	// best single-window loss are tolerated before stopping.
	Patience int

	// Seed initializes the weights deterministically.
	Seed int64

	// ProgressChan receives one update per epoch. Nil disables progress
	// updates; sends never block.
	ProgressChan chan<- ProgressUpdate
}

// DefaultSequenceConfig returns the settings used by the reference
// analysis.
func DefaultSequenceConfig() SequenceConfig {
	return SequenceConfig{
		WindowLength: 10,
		TestFraction: 0.2,
		HiddenSize:   16,
		LearningRate: 0.01,
		Epochs:       100,
		Patience:     10,
		Seed:         42,
	}
}

// Validate checks the configuration's structural invariants.
func (c SequenceConfig) Validate() error {
	if c.WindowLength < 1 || c.HiddenSize < 1 || c.Epochs < 1 || c.Patience < 1 {
		return fmt.Errorf("window %d, hidden %d, epochs %d, patience %d must all be positive: %w",
			c.WindowLength, c.HiddenSize, c.Epochs, c.Patience, ErrDimensionMismatch)
	}

	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("test fraction %g outside (0, 1): %w", c.TestFraction, ErrDimensionMismatch)
	}

	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate %g must be positive: %w", c.LearningRate, ErrDimensionMismatch)
	}

	return nil
}

// SequentialResult is the trainer's evaluation record, reported separately
// from the batch-model benchmark table.
type SequentialResult struct {
	// R2, MSE, MAE, RMSE score the per-window predictions on the held-out
	// test windows.
	R2   float64
	MSE  float64
	MAE  float64
	RMSE float64

	// Predictions holds one prediction per test window, in order.
	Predictions []float64

	// Targets holds the matching true values.
	Targets []float64

	// EpochLosses records the best single-window loss observed in each
	// completed epoch.
	EpochLosses []float64

	// EpochsRun is how many epochs actually ran.
	EpochsRun int

	// StoppedEarly reports whether patience ended training before the
	// epoch budget.
	StoppedEarly bool

	// BestLoss is the lowest single-window training loss observed.
	BestLoss float64
}

// TrainSequential builds the window dataset from the raw signal, trains the
// recurrent regressor with early stopping, and evaluates it on the
// chronologically last windows.
//
// Training updates parameters once per window by gradient descent on the
// squared error, with the hidden/cell state reset at the start of every
// window. After each epoch the best (lowest) single-window loss is
// compared against the best seen so far; `patience` consecutive epochs
// without improvement stop the training. At least one epoch always runs.
func TrainSequential(cfg SequenceConfig, sig Signal) (*SequentialResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := sig.Validate(); err != nil {
		return nil, err
	}

	windows, err := MakeWindows(sig.Values, cfg.WindowLength)
	if err != nil {
		return nil, err
	}

	if len(windows) < 2 {
		return nil, fmt.Errorf("%d windows, need at least 2 to split: %w", len(windows), ErrInsufficientData)
	}

	train, test := splitWindows(windows, cfg.TestFraction)

	net := newLSTMNetwork(cfg.HiddenSize, cfg.Seed)

	result := &SequentialResult{BestLoss: math.Inf(1)}
	stale := 0

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		epochBest := math.Inf(1)

		for _, w := range train {
			loss := net.trainWindow(w.Input, w.Target, cfg.LearningRate)
			if loss < epochBest {
				epochBest = loss
			}
		}

		result.EpochLosses = append(result.EpochLosses, epochBest)
		result.EpochsRun = epoch + 1

		improved := epochBest < result.BestLoss
		if improved {
			result.BestLoss = epochBest
			stale = 0
		} else {
			stale++
		}

		sendProgress(cfg.ProgressChan, ProgressUpdate{
			Phase:            PhaseEpoch,
			Family:           "sequential",
			CurrentIteration: epoch + 1,
			TotalIterations:  cfg.Epochs,
			CurrentBestScore: result.BestLoss,
			LastScore:        epochBest,
		})

		if stale >= cfg.Patience {
			result.StoppedEarly = true

			break
		}
	}

	result.Predictions = make([]float64, len(test))
	result.Targets = make([]float64, len(test))

	for i, w := range test {
		result.Predictions[i] = net.predict(w.Input)
		result.Targets[i] = w.Target
	}

	result.R2 = RSquared(result.Targets, result.Predictions)
	result.MSE = MSE(result.Targets, result.Predictions)
	result.MAE = MAE(result.Targets, result.Predictions)
	result.RMSE = RMSE(result.Targets, result.Predictions)

	return result, nil
}

//////
// The recurrent cell.
//////

// lstmNetwork is a single-layer LSTM over scalar inputs with a linear
// head. Gate weights are laid out as hidden x (1 + hidden): the input
// scalar concatenated with the previous hidden state.
type lstmNetwork struct {
	hidden int

	wi, wf, wo, wg [][]float64
	bi, bf, bo, bg []float64

	why []float64
	by  float64
}

func newLSTMNetwork(hidden int, seed int64) *lstmNetwork {
	rng := newRand(seed)
	scale := 1.0 / math.Sqrt(float64(hidden))

	initMatrix := func() [][]float64 {
		m := make([][]float64, hidden)
		for k := range m {
			m[k] = make([]float64, 1+hidden)
			for j := range m[k] {
				m[k][j] = scale * (2*rng.Float64() - 1)
			}
		}

		return m
	}

	net := &lstmNetwork{
		hidden: hidden,
		wi:     initMatrix(),
		wf:     initMatrix(),
		wo:     initMatrix(),
		wg:     initMatrix(),
		bi:     make([]float64, hidden),
		bf:     make([]float64, hidden),
		bo:     make([]float64, hidden),
		bg:     make([]float64, hidden),
		why:    make([]float64, hidden),
	}

	// Positive forget bias keeps early gradients alive.
	for k := 0; k < hidden; k++ {
		net.bf[k] = 1
		net.why[k] = scale * (2*rng.Float64() - 1)
	}

	return net
}

// stepCache holds the activations of one time step for backpropagation.
type stepCache struct {
	z          []float64 // gate input: [x, h_prev]
	i, f, o, g []float64
	c, tanhC   []float64
	cPrev      []float64
}

// forward runs the window through the cell from a zero state and returns
// the prediction with the per-step caches.
func (n *lstmNetwork) forward(window []float64) (float64, []stepCache) {
	h := make([]float64, n.hidden)
	c := make([]float64, n.hidden)

	caches := make([]stepCache, len(window))

	for t, x := range window {
		z := make([]float64, 1+n.hidden)
		z[0] = x
		copy(z[1:], h)

		cache := stepCache{
			z:     z,
			i:     make([]float64, n.hidden),
			f:     make([]float64, n.hidden),
			o:     make([]float64, n.hidden),
			g:     make([]float64, n.hidden),
			c:     make([]float64, n.hidden),
			tanhC: make([]float64, n.hidden),
			cPrev: append([]float64(nil), c...),
		}

		newH := make([]float64, n.hidden)
		newC := make([]float64, n.hidden)

		for k := 0; k < n.hidden; k++ {
			cache.i[k] = sigmoid(dot(n.wi[k], z) + n.bi[k])
			cache.f[k] = sigmoid(dot(n.wf[k], z) + n.bf[k])
			cache.o[k] = sigmoid(dot(n.wo[k], z) + n.bo[k])
			cache.g[k] = math.Tanh(dot(n.wg[k], z) + n.bg[k])

			newC[k] = cache.f[k]*c[k] + cache.i[k]*cache.g[k]
			cache.c[k] = newC[k]
			cache.tanhC[k] = math.Tanh(newC[k])

			newH[k] = cache.o[k] * cache.tanhC[k]
		}

		h, c = newH, newC
		caches[t] = cache
	}

	pred := n.by
	for k := 0; k < n.hidden; k++ {
		pred += n.why[k] * h[k]
	}

	return pred, caches
}

// predict runs inference on one window. The state starts from zero, same
// as in training.
func (n *lstmNetwork) predict(window []float64) float64 {
	pred, _ := n.forward(window)

	return pred
}

// trainWindow performs one gradient-descent update from a single window
// via backpropagation through time, and returns the window's squared-error
// loss before the update.
func (n *lstmNetwork) trainWindow(window []float64, target, lr float64) float64 {
	pred, caches := n.forward(window)

	diff := pred - target
	loss := diff * diff

	h := n.hidden
	steps := len(window)

	gwi := zeroMatrix(h, 1+h)
	gwf := zeroMatrix(h, 1+h)
	gwo := zeroMatrix(h, 1+h)
	gwg := zeroMatrix(h, 1+h)
	gbi := make([]float64, h)
	gbf := make([]float64, h)
	gbo := make([]float64, h)
	gbg := make([]float64, h)
	gwhy := make([]float64, h)

	dOut := 2 * diff
	gby := dOut

	lastH := make([]float64, h)
	for k := 0; k < h; k++ {
		lastH[k] = caches[steps-1].o[k] * caches[steps-1].tanhC[k]
		gwhy[k] = dOut * lastH[k]
	}

	dh := make([]float64, h)
	dc := make([]float64, h)

	for k := 0; k < h; k++ {
		dh[k] = dOut * n.why[k]
	}

	for t := steps - 1; t >= 0; t-- {
		cache := caches[t]

		dhPrev := make([]float64, h)
		dcPrev := make([]float64, h)

		for k := 0; k < h; k++ {
			do := dh[k] * cache.tanhC[k]
			dcTotal := dc[k] + dh[k]*cache.o[k]*(1-cache.tanhC[k]*cache.tanhC[k])

			di := dcTotal * cache.g[k]
			dg := dcTotal * cache.i[k]
			df := dcTotal * cache.cPrev[k]

			dzi := di * cache.i[k] * (1 - cache.i[k])
			dzf := df * cache.f[k] * (1 - cache.f[k])
			dzo := do * cache.o[k] * (1 - cache.o[k])
			dzg := dg * (1 - cache.g[k]*cache.g[k])

			gbi[k] += dzi
			gbf[k] += dzf
			gbo[k] += dzo
			gbg[k] += dzg

			for j := 0; j <= h; j++ {
				gwi[k][j] += dzi * cache.z[j]
				gwf[k][j] += dzf * cache.z[j]
				gwo[k][j] += dzo * cache.z[j]
				gwg[k][j] += dzg * cache.z[j]

				if j > 0 {
					dhPrev[j-1] += n.wi[k][j]*dzi + n.wf[k][j]*dzf + n.wo[k][j]*dzo + n.wg[k][j]*dzg
				}
			}

			dcPrev[k] = dcTotal * cache.f[k]
		}

		dh, dc = dhPrev, dcPrev
	}

	// Clipped descent step. Clipping bounds the exploding-gradient risk
	// inherent to backpropagation through time.
	step := func(w, g float64) float64 {
		return w - lr*clamp(g, -5, 5)
	}

	for k := 0; k < h; k++ {
		for j := 0; j <= h; j++ {
			n.wi[k][j] = step(n.wi[k][j], gwi[k][j])
			n.wf[k][j] = step(n.wf[k][j], gwf[k][j])
			n.wo[k][j] = step(n.wo[k][j], gwo[k][j])
			n.wg[k][j] = step(n.wg[k][j], gwg[k][j])
		}

		n.bi[k] = step(n.bi[k], gbi[k])
		n.bf[k] = step(n.bf[k], gbf[k])
		n.bo[k] = step(n.bo[k], gbo[k])
		n.bg[k] = step(n.bg[k], gbg[k])
		n.why[k] = step(n.why[k], gwhy[k])
	}

	n.by = step(n.by, gby)

	return loss
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}

	return sum
}

func zeroMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}

	return m
}
