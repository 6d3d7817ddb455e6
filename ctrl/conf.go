package ctrl

import (
	"runtime"
	"time"

	"golang.org/x/time/rate"
)

// Option is a functional option for configuring a controller.
type Option func(*config)

type config struct {
	workers         int
	queueCapacity   int
	resultBuffer    int
	maxAttempts     int
	initialDelay    time.Duration
	rateLimiter     *rate.Limiter
	finalizeTimeout time.Duration
	pinWorkers      bool
	logger          Logger
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		workers:     runtime.GOMAXPROCS(0),
		maxAttempts: 1,
		logger:      nopLogger{},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.queueCapacity <= 0 {
		cfg.queueCapacity = 1024
	}
	if cfg.resultBuffer <= 0 {
		cfg.resultBuffer = cfg.queueCapacity
	}

	return cfg
}

// WithWorkerCount sets the number of concurrent workers.
// If not specified, defaults to runtime.GOMAXPROCS(0).
func WithWorkerCount(count int) Option {
	return func(cfg *config) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithQueueCapacity sets the task queue buffer size. AddTask blocks
// once the buffer is full, so size it for the largest batch submitted
// while a run is live. Defaults to 1024.
func WithQueueCapacity(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.queueCapacity = size
		}
	}
}

// WithResultBuffer sets the result queue buffer size. During a
// suspension results accumulate here; workers block once it fills, so
// the buffer bounds how far the pool can run ahead of a suspended
// drain loop. Defaults to the task queue capacity.
func WithResultBuffer(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.resultBuffer = size
		}
	}
}

// WithRetryPolicy enables per-task retries. maxAttempts is the total
// number of attempts per task; initialDelay is the delay before the
// first retry, doubling for each subsequent one.
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(cfg *config) {
		if maxAttempts > 0 {
			cfg.maxAttempts = maxAttempts
		}
		if initialDelay > 0 {
			cfg.initialDelay = initialDelay
		}
	}
}

// WithRateLimit caps task throughput across the pool.
// tasksPerSecond is the sustained rate, burst the burst allowance.
// Useful when the processing function calls shared services.
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithFinalizeTimeout bounds how long the controller waits for worker
// acknowledgements after FinalizeTasks. When the timeout elapses the
// run completes as degraded (Summary.Degraded, ErrIncompleteRun)
// instead of hanging forever on a wedged worker. Zero waits
// indefinitely.
func WithFinalizeTimeout(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.finalizeTimeout = d
		}
	}
}

// WithCPUAffinity pins each worker to an OS thread and, on platforms
// that support it, to a CPU core. Helps compute-bound workloads with
// cache locality; leave off for I/O-bound processing functions.
func WithCPUAffinity() Option {
	return func(cfg *config) {
		cfg.pinWorkers = true
	}
}

// WithLogger injects a structured logger for lifecycle and worker
// events. Defaults to a no-op logger.
func WithLogger(l Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}
