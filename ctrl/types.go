package ctrl

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProcessFunc processes a single task inside a worker. It receives the
// run context for cancellation and must return either a result or an
// error; errors are reported per-task and never tear down the pool.
//
// Type parameters:
//   - T: the task type
//   - R: the result type
type ProcessFunc[T any, R any] func(ctx context.Context, task T) (R, error)

// TaskResult pairs one task with the outcome of processing it. The
// sequence number is assigned at submission and preserved end to end,
// so results can always be matched back to their originating task even
// though delivery order follows drain order, not submission order.
//
// Fields:
//   - Seq: submission sequence number, unique within a run
//   - Task: the originating task
//   - Value: the produced result (only meaningful when Err is nil)
//   - Err: the per-task failure, nil on success
//   - Worker: id of the worker that processed the task
type TaskResult[T any, R any] struct {
	Seq    int64
	Task   T
	Value  R
	Err    error
	Worker int
}

// Summary describes a completed run. It is delivered exactly once via
// the finished notification after every worker has acknowledged exit
// (or the finalize timeout flagged the run as degraded).
type Summary struct {
	// RunID identifies the run this summary belongs to.
	RunID uuid.UUID

	// Submitted is the total number of tasks submitted during the run.
	Submitted int64

	// Completed is the number of tasks whose results were delivered,
	// failures included.
	Completed int64

	// Failed is the number of tasks that ended with a per-task error.
	Failed int64

	// Aborted reports that the run was cut short by Abort or context
	// cancellation; tasks still queued at that point were discarded.
	Aborted bool

	// Degraded reports that not every worker acknowledged its stop
	// signal before the finalize timeout. Err carries
	// ErrIncompleteRun in that case.
	Degraded bool

	// Err is non-nil for degraded completions.
	Err error

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// Stats is a point-in-time snapshot of a controller, safe to call from
// any goroutine. It feeds the observability layer.
type Stats struct {
	RunID     string
	State     State
	Workers   int
	Submitted int64
	Completed int64
	Failed    int64
	Queued    int
	Progress  float64
}
