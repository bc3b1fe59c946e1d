package scatterfit

import (
	"fmt"
	"math"
	randv2 "math/rand/v2"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

//////
// Randomized hyperparameter search with k-fold cross-validation.
//////

// ParamRange defines the candidate set for one hyperparameter.
//
// Either a finite Values list or a continuous [Min, Max] interval,
// optionally sampled on a log scale, optionally rounded to integers.
//
// Usage:
//
//	// Log-scaled regularization strength from 1e-4 to 10.
//	alpha := ParamRange{Min: 1e-4, Max: 10, Log: true}
//
//	// Tree count between 50 and 300.
//	trees := ParamRange{Min: 50, Max: 300, Integer: true}
//
//	// An explicit candidate list.
//	depth := ParamRange{Values: []float64{2, 3, 5}}
type ParamRange struct {
	// Values, when non-empty, is the finite candidate set; Min/Max/Log are
	// ignored.
	Values []float64

	// Min and Max bound the continuous candidate interval (inclusive).
	Min float64

	// Max is the upper bound of the interval.
	Max float64

	// Log samples uniformly in log space. Requires Min > 0.
	Log bool

	// Integer rounds sampled values to the nearest integer.
	Integer bool
}

// sample draws one candidate value from the range.
func (p ParamRange) sample(src randv2.Source) float64 {
	if len(p.Values) > 0 {
		u := distuv.Uniform{Min: 0, Max: float64(len(p.Values)), Src: src}

		idx := int(u.Rand())
		if idx >= len(p.Values) {
			idx = len(p.Values) - 1
		}

		return p.Values[idx]
	}

	var v float64

	if p.Log {
		u := distuv.Uniform{Min: math.Log(p.Min), Max: math.Log(p.Max), Src: src}
		v = math.Exp(u.Rand())
	} else {
		u := distuv.Uniform{Min: p.Min, Max: p.Max, Src: src}
		v = u.Rand()
	}

	if p.Integer {
		v = math.Round(v)
	}

	return clamp(v, p.Min, p.Max)
}

// SearchSpace maps hyperparameter names to their candidate ranges.
type SearchSpace map[string]ParamRange

// SearchConfig controls the randomized search.
type SearchConfig struct {
	// Trials is the fixed search budget: how many configurations are
	// sampled and cross-validated.
	Trials int

	// Folds is the k of the k-fold cross-validation used to score each
	// trial. Folds are drawn from the training split only.
	Folds int

	// Seed makes the sampled configurations and the fold assignment
	// deterministic.
	Seed int64

	// Workers bounds the number of concurrently evaluated trials. Zero
	// defaults to the number of CPUs. Parallelism is a pure optimization:
	// trial inputs are immutable and results are merged by trial index, so
	// the selected winner never depends on scheduling.
	Workers int

	// ProgressChan receives one update per completed trial. Nil disables
	// progress updates; sends never block.
	ProgressChan chan<- ProgressUpdate
}

// DefaultSearchConfig returns the search budget used by the benchmark:
// 50 trials scored by 5-fold cross-validation.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Trials:  50,
		Folds:   5,
		Seed:    42,
		Workers: runtime.NumCPU(),
	}
}

// SearchResult holds the winning configuration of a randomized search.
type SearchResult struct {
	// Model is the winner refitted on the full training split.
	Model Regressor

	// Params holds the winning hyperparameter values.
	Params map[string]float64

	// Score is the winner's mean negative MSE across folds.
	Score float64
}

// RandomizedSearchCV samples cfg.Trials hyperparameter configurations from
// the space, scores each by k-fold cross-validated negative mean squared
// error, and refits the best configuration on the full data.
//
// Parameters:
// - cfg: Search budget, fold count, seed, and parallelism
// - space: The hyperparameter ranges to sample
// - build: Constructor for the composed estimator (pipeline + model) from
//   concrete hyperparameter values; called fresh for every fold so no
//   fitted state leaks between folds
// - X, y: The training split. The search never sees held-out data.
//
// Returns:
// - *SearchResult: The refitted winner, its parameters, and its score
// - error: ErrSearchSpaceExhausted when every trial failed to produce a
//   finite score; configuration errors for bad budgets or too little data
//
// How it works:
//  1. All trial configurations are sampled up front from a single seeded
//     source, so the candidate sequence is deterministic.
//  2. A bounded worker pool cross-validates the trials; every trial reads
//     only immutable inputs.
//  3. The best score wins; ties resolve by trial order (first found wins).
//  4. The winner is refitted on all of X, y.
func RandomizedSearchCV(
	cfg SearchConfig,
	space SearchSpace,
	build func(params map[string]float64) Regressor,
	X [][]float64,
	y []float64,
) (*SearchResult, error) {
	if cfg.Trials < 1 {
		return nil, fmt.Errorf("trial budget %d: %w", cfg.Trials, ErrDimensionMismatch)
	}

	if cfg.Folds < 2 {
		return nil, fmt.Errorf("fold count %d, need at least 2: %w", cfg.Folds, ErrDimensionMismatch)
	}

	if len(X) != len(y) {
		return nil, fmt.Errorf("%d rows vs %d targets: %w", len(X), len(y), ErrDimensionMismatch)
	}

	if len(X) < cfg.Folds {
		return nil, fmt.Errorf("%d rows for %d folds: %w", len(X), cfg.Folds, ErrInsufficientData)
	}

	if len(space) == 0 {
		return nil, fmt.Errorf("empty search space: %w", ErrSearchSpaceExhausted)
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	// Sample every trial up front from one seeded source. Iterating the
	// space in sorted key order keeps the draw sequence reproducible.
	names := make([]string, 0, len(space))
	for name := range space {
		names = append(names, name)
	}
	sort.Strings(names)

	src := randv2.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)^0x9e3779b97f4a7c15)

	trials := make([]map[string]float64, cfg.Trials)
	for t := range trials {
		params := make(map[string]float64, len(names))
		for _, name := range names {
			params[name] = space[name].sample(src)
		}

		trials[t] = params
	}

	folds := makeFolds(len(X), cfg.Folds, cfg.Seed)

	scores := make([]float64, cfg.Trials)
	errs := make([]error, cfg.Trials)

	// Best-so-far progress bookkeeping, shared across workers.
	var (
		progressMu sync.Mutex
		done       int
		bestScore  = math.Inf(-1)
		bestParams map[string]float64
	)

	report := func(t int) {
		if cfg.ProgressChan == nil {
			progressMu.Lock()
			if scores[t] > bestScore {
				bestScore = scores[t]
				bestParams = trials[t]
			}
			progressMu.Unlock()

			return
		}

		progressMu.Lock()
		done++

		if scores[t] > bestScore {
			bestScore = scores[t]
			bestParams = trials[t]
		}

		update := ProgressUpdate{
			Phase:             PhaseSearch,
			CurrentIteration:  done,
			TotalIterations:   cfg.Trials,
			CurrentParams:     trials[t],
			CurrentBestParams: bestParams,
			CurrentBestScore:  bestScore,
			LastScore:         scores[t],
		}
		progressMu.Unlock()

		select {
		case cfg.ProgressChan <- update:
		default:
			// Skip update if channel is full.
		}
	}

	jobs := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for t := range jobs {
				scores[t], errs[t] = crossValidate(build, trials[t], X, y, folds)
				report(t)
			}
		}()
	}

	for t := 0; t < cfg.Trials; t++ {
		jobs <- t
	}
	close(jobs)

	wg.Wait()

	// Strict best-score selection; ties resolve by trial order.
	best := -1
	bestFound := math.Inf(-1)

	for t := 0; t < cfg.Trials; t++ {
		if errs[t] == nil && scores[t] > bestFound {
			bestFound = scores[t]
			best = t
		}
	}

	if best < 0 {
		return nil, fmt.Errorf("all %d trials failed: %w", cfg.Trials, ErrSearchSpaceExhausted)
	}

	// Refit the winner on the full training split.
	model := build(trials[best])
	if err := model.Fit(X, y); err != nil {
		return nil, fmt.Errorf("refitting winning configuration: %w", err)
	}

	return &SearchResult{
		Model:  model,
		Params: trials[best],
		Score:  bestFound,
	}, nil
}

// crossValidate scores one configuration: mean negative MSE over the
// validation folds. A fold that fails to fit, or that produces non-finite
// predictions, fails the whole trial.
func crossValidate(
	build func(params map[string]float64) Regressor,
	params map[string]float64,
	X [][]float64,
	y []float64,
	folds [][]int,
) (float64, error) {
	var total float64

	for f, validIdx := range folds {
		inValid := make(map[int]bool, len(validIdx))
		for _, idx := range validIdx {
			inValid[idx] = true
		}

		var (
			trainX [][]float64
			trainY []float64
			validX [][]float64
			validY []float64
		)

		for i := range X {
			if inValid[i] {
				validX = append(validX, X[i])
				validY = append(validY, y[i])
			} else {
				trainX = append(trainX, X[i])
				trainY = append(trainY, y[i])
			}
		}

		model := build(params)
		if err := model.Fit(trainX, trainY); err != nil {
			return math.Inf(-1), fmt.Errorf("fold %d: %w", f, err)
		}

		preds, err := model.Predict(validX)
		if err != nil {
			return math.Inf(-1), fmt.Errorf("fold %d: %w", f, err)
		}

		if !allFinite(preds) {
			return math.Inf(-1), fmt.Errorf("fold %d produced non-finite predictions: %w", f, ErrConvergence)
		}

		total += MSE(validY, preds)
	}

	return -total / float64(len(folds)), nil
}

// makeFolds shuffles the row indices with a seeded generator and cuts them
// into k contiguous folds of near-equal size.
func makeFolds(n, k int, seed int64) [][]int {
	rng := newRand(seed)

	indices := rng.Perm(n)

	folds := make([][]int, k)
	for i, idx := range indices {
		f := i % k
		folds[f] = append(folds[f], idx)
	}

	return folds
}
