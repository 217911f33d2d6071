package vertex

// Option configures a Stage during creation.
// Use functional options to customize Stage behavior.
//
// Example:
//
//	// Default stage: 0.5 scale, GOMAXPROCS workers, acceleration on
//	stage := vertex.NewStage()
//
//	// Custom transform and serial execution
//	stage := vertex.NewStage(
//	    vertex.WithTransform(vertex.UniformScale(1)),
//	    vertex.WithWorkers(1),
//	)
type Option func(*stageOptions)

// stageOptions holds optional configuration for Stage creation.
type stageOptions struct {
	transform    Transform
	workers      int
	parallelMin  int
	acceleration bool
}

// defaultStageOptions returns the default stage options.
func defaultStageOptions() stageOptions {
	return stageOptions{
		transform:    DefaultTransform(),
		workers:      0, // 0 = GOMAXPROCS, resolved by the worker pool
		parallelMin:  defaultParallelMin,
		acceleration: true,
	}
}

// WithTransform sets the stage's uniform parameters.
// Equivalent to calling SetTransform after NewStage.
func WithTransform(t Transform) Option {
	return func(o *stageOptions) {
		o.transform = t
	}
}

// WithWorkers sets the number of worker goroutines used for batch
// processing. Zero or negative means GOMAXPROCS. One worker disables
// parallel execution entirely.
func WithWorkers(n int) Option {
	return func(o *stageOptions) {
		o.workers = n
	}
}

// WithParallelThreshold sets the minimum batch size that is split across
// workers. Batches below the threshold run serially on the calling
// goroutine, where the per-vertex work is too cheap to amortize task
// handoff.
func WithParallelThreshold(n int) Option {
	return func(o *stageOptions) {
		if n > 0 {
			o.parallelMin = n
		}
	}
}

// WithAcceleration controls whether ProcessBatch consults the registered
// accelerator. Enabled by default; disable to force the CPU path, e.g.
// when comparing outputs in tests.
func WithAcceleration(enabled bool) Option {
	return func(o *stageOptions) {
		o.acceleration = enabled
	}
}
