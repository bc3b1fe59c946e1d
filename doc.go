// Package scatterfit analyzes a one-dimensional scattering-intensity curve
// (intensity versus scan angle): it denoises the curve, detects and
// characterizes its peaks, reduces it to low-dimensional embeddings for
// inspection, and benchmarks several regression-model families, each fitted
// through an automated hyperparameter search, to see which best reproduces
// the denoised curve. A sequence-based variant trains a recurrent regressor
// over fixed-length windows with early stopping.
//
// # Features
//
// The package includes the following key features:
//
//   - Signal Conditioning: Savitzky-Golay local polynomial smoothing with
//     edge replication
//   - Peak Detection: local maxima subject to height, prominence, and
//     separation constraints, with interpolated half-prominence widths
//   - Feature Pipeline: standardize, polynomial expansion, standardize,
//     with strict fit/transform separation
//   - Dimensionality Reduction: linear (PCA) and nonlinear (RBF kernel PCA)
//     two-component embeddings for visualization
//   - Model Benchmarking: six regression families fitted through a
//     randomized, cross-validated hyperparameter search with a bounded
//     trial budget
//   - Sequential Training: a windowed LSTM regressor fitted by gradient
//     descent with early stopping
//   - Progress Monitoring: real-time updates on searches and training via
//     channels
//   - Failure Isolation: per-family fit failures are recorded as NaN
//     metrics and never abort the benchmark run
//
// # Pipeline
//
// The data flows raw signal -> conditioner -> {peaks, features, embeddings}
// -> benchmark / sequential trainer -> metrics:
//
//	raw := scatterfit.GenerateSignal(200, 0, 180, 0.05, 42)
//
//	smooth, err := scatterfit.SavitzkyGolay(raw, 15, 3)
//	if err != nil {
//	    return err
//	}
//
//	peaks, err := scatterfit.FindPeaks(smooth, scatterfit.DefaultFindPeaksConfig())
//	if err != nil {
//	    return err
//	}
//
//	cfg := scatterfit.DefaultBenchmarkConfig()
//	results, err := scatterfit.Benchmark(cfg, scatterfit.DefaultFamilies(cfg.Seed),
//	    raw.Positions, smooth.Values)
//	if err != nil {
//	    return err
//	}
//
//	for _, r := range scatterfit.RankResults(results) {
//	    fmt.Println(r.Family, r.Metrics.R2)
//	}
//
// The sequential variant consumes the raw signal directly:
//
//	seq, err := scatterfit.TrainSequential(scatterfit.DefaultSequenceConfig(), raw)
//
// # Determinism
//
// Every stochastic component (train/test assignment, hyperparameter
// sampling, fold assignment, weight initialization) is driven by explicit
// seeds, so identical configurations reproduce identical numbers. Search
// trials are evaluated in parallel, but results merge by trial index: the
// selected winner never depends on goroutine scheduling.
//
// # Thread Safety
//
// Fitted artifacts are written once and read-only afterwards:
//   - A fitted FeaturePipeline may serve concurrent Transform calls
//   - A fitted Regressor may serve concurrent Predict calls
//   - The randomized search reads only immutable per-trial inputs
//
// Separate benchmark runs own separate pipeline and model instances and
// may run concurrently with different configs.
package scatterfit
