// Package ctrl provides a generic task-distribution controller: a
// supervising unit that owns a task queue, a result queue, and a pool
// of workers, and exposes start/suspend/restart/finalize controls plus
// asynchronous progress, per-result, and completion notifications.
//
// The primary types are Controller[T, R], which runs a bare processing
// function against submitted tasks, and AppRunner[T, R], which wraps a
// structured application with one-time setup and cleanup hooks around
// the same pool machinery.
//
// # Basic Usage
//
//	c := ctrl.NewController[int, int](
//	    func(ctx context.Context, x int) (int, error) { return x*2 + 5, nil },
//	    ctrl.WithWorkerCount(4),
//	)
//	_ = c.OnResult(func(r ctrl.TaskResult[int, int]) {
//	    fmt.Printf("task %d -> %d\n", r.Task, r.Value)
//	})
//	_ = c.OnProgress(func(p float64) { fmt.Printf("%.0f%%\n", p*100) })
//
//	_ = c.Start(context.Background())
//	for i := range 10 {
//	    _ = c.AddTask(i)
//	}
//	_ = c.FinalizeTasks()
//	_ = c.Wait(time.Minute)
//
// # Lifecycle
//
// A controller moves through Idle → Running → Finalizing → Stopped,
// with an optional Running ⇄ Suspended detour. Start is non-blocking:
// the controller's event loop drains results off the caller's thread
// of control while AddTask, FinalizeTasks, Suspend, and Restart stay
// cheap control-plane calls. Invalid transitions (starting twice,
// adding tasks after finalize) are rejected with explicit errors, not
// silently ignored.
//
// # Task and Result Pairing
//
// Every task receives a sequence number at submission that travels
// with it end to end, so each TaskResult can be matched back to its
// originating task. Delivery order follows drain order: with more than
// one worker it generally differs from submission order.
//
// # Suspension
//
// Suspend stops the event loop from consuming results; workers keep
// draining the task queue and their results accumulate in the bounded
// result buffer (workers block once it fills). Restart flushes the
// buffer in arrival order and resumes. Replacing the processing
// function while suspended cycles the worker pool on Restart, leaving
// already-delivered results untouched.
//
// # Failure Semantics
//
// A task that fails or panics produces a failure result carrying the
// error; it never tears down the pool, so one bad task cannot abort
// unrelated in-flight work. A worker that wedges is surfaced by the
// finalize timeout: the run completes with Summary.Degraded set and
// ErrIncompleteRun attached instead of hanging forever.
//
// # Notifications
//
// Subscribers register with OnProgress, OnResult, and OnFinished
// before the run starts; registering while a run is in flight returns
// ErrSubscribeWhileRunning. Progress is a high-water-marked fraction
// in [0,1) that reaches exactly 1 only after the single completion
// notification of a clean run.
//
// # Configuration
//
// Controllers are configured with functional options (WithWorkerCount,
// WithQueueCapacity, WithRateLimit, WithRetryPolicy, WithCPUAffinity,
// WithFinalizeTimeout, WithLogger) or from a YAML file via
// LoadOptions. Configuration is explicit and constructor-injected;
// the package holds no global state.
package ctrl
