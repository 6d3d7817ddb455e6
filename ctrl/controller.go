package ctrl

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sciproc/workerctl/internal/queue"
)

// Controller coordinates a pool of workers processing tasks against a
// configured function. It owns the task and result queues, exposes the
// start/suspend/restart/finalize control surface, and republishes
// per-result, progress, and completion notifications to subscribers.
//
// Control-plane methods (AddTask, FinalizeTasks, Suspend, Restart,
// Abort) are non-blocking from the caller's perspective under normal
// load and are intended to be driven from a single caller goroutine;
// all of them are nevertheless safe for concurrent use.
//
// Type parameters:
//   - T: the task type
//   - R: the result type
type Controller[T any, R any] struct {
	conf *config
	log  Logger

	mu        sync.Mutex
	state     atomic.Int32
	fn        ProcessFunc[T, R]
	fnChanged bool
	pending   []T
	run       *runState[T, R]

	progressFns []func(float64)
	resultFns   []func(TaskResult[T, R])
	finishedFns []func(Summary)
}

// runState holds everything scoped to a single run. A fresh runState
// is built on every Start so a stopped run's counters stay readable
// for Stats until the next run begins.
type runState[T any, R any] struct {
	id      uuid.UUID
	ctx     context.Context
	cancel  context.CancelFunc
	tasks   *queue.Queue[envelope[T]]
	results *queue.Queue[TaskResult[T, R]]
	pool    atomic.Pointer[workerPool[T, R]]
	gate    *gate
	done    chan struct{}

	seq       atomic.Int64
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64

	finalized  atomic.Bool
	finalizedC chan struct{} // closed by FinalizeTasks, wakes the drain loop
	aborted    atomic.Bool
	degraded   atomic.Bool
	clean      atomic.Bool

	startedAt  time.Time
	progressHW float64 // touched only by the drain loop
}

// NewController creates a controller for the given processing
// function. No workers are spawned until Start.
//
// The function may be nil at construction and supplied later via
// ChangeFunction; Start fails with ErrNilFunction if none is set.
//
// Example:
//
//	c := ctrl.NewController[int, int](
//	    func(ctx context.Context, x int) (int, error) { return x * 2, nil },
//	    ctrl.WithWorkerCount(8),
//	)
//	_ = c.OnResult(func(r ctrl.TaskResult[int, int]) { fmt.Println(r.Task, r.Value) })
//	_ = c.Start(context.Background())
//	_ = c.AddTasks([]int{1, 2, 3})
//	_ = c.FinalizeTasks()
//	_ = c.Wait(time.Minute)
func NewController[T any, R any](fn ProcessFunc[T, R], opts ...Option) *Controller[T, R] {
	cfg := newConfig(opts...)
	return &Controller[T, R]{
		conf: cfg,
		log:  cfg.logger,
		fn:   fn,
	}
}

// State returns the current lifecycle state.
func (c *Controller[T, R]) State() State {
	return State(c.state.Load())
}

func (c *Controller[T, R]) setState(s State) {
	c.state.Store(int32(s))
}

// ChangeFunction replaces the task-processing function. Legal while
// Idle, Stopped, or Suspended; a change made while Suspended takes
// effect at the next Restart, which cycles the worker pool so results
// already delivered are untouched.
func (c *Controller[T, R]) ChangeFunction(fn ProcessFunc[T, R]) error {
	if fn == nil {
		return ErrNilFunction
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case StateIdle, StateStopped:
		c.fn = fn
		return nil
	case StateSuspended:
		c.fn = fn
		c.fnChanged = true
		return nil
	default:
		return fmt.Errorf("%w: change function while %s", ErrBadState, c.State())
	}
}

// AddTask appends one task to the pending work. Before Start the task
// is buffered and submitted in order when the run begins; during a run
// it is enqueued directly. Returns ErrFinalized once FinalizeTasks has
// been called for the current run.
func (c *Controller[T, R]) AddTask(task T) error {
	run, err := c.routeTask(task)
	if err != nil || run == nil {
		return err
	}
	return submitTask(run, task)
}

// AddTasks appends a batch of tasks in order. Same rules as AddTask.
func (c *Controller[T, R]) AddTasks(tasks []T) error {
	for _, t := range tasks {
		if err := c.AddTask(t); err != nil {
			return err
		}
	}
	return nil
}

// routeTask decides under the mutex where a task goes: buffered for the
// next run (nil run returned) or submitted to the live one. The enqueue
// itself happens outside the mutex so a full task queue blocks only the
// submitter, never the control plane (Suspend, Restart, Abort, Stats).
func (c *Controller[T, R]) routeTask(task T) (*runState[T, R], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case StateIdle, StateStopped:
		c.pending = append(c.pending, task)
		return nil, nil
	case StateRunning, StateSuspended:
		if c.run.finalized.Load() {
			return nil, ErrFinalized
		}
		return c.run, nil
	default:
		return nil, ErrFinalized
	}
}

// submitTask assigns the next sequence number and enqueues the task.
// The submitted counter is bumped before the enqueue so the progress
// denominator can never trail the numerator.
func submitTask[T any, R any](run *runState[T, R], task T) error {
	seq := run.seq.Add(1) - 1
	run.submitted.Add(1)
	return run.tasks.Enqueue(run.ctx, envelope[T]{seq: seq, task: task})
}

// Start begins a run: it spawns the worker pool, submits all buffered
// tasks in submission order, and launches the drain loop that
// republishes results and progress. Start is non-blocking; subscribe
// to OnFinished or call Wait to observe completion.
//
// Start is legal from Idle and from Stopped (beginning a fresh run);
// any other state returns ErrAlreadyStarted.
func (c *Controller[T, R]) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case StateIdle, StateStopped:
	default:
		return fmt.Errorf("%w: start from %s", ErrAlreadyStarted, c.State())
	}

	if c.fn == nil {
		return ErrNilFunction
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &runState[T, R]{
		id:         uuid.New(),
		ctx:        runCtx,
		cancel:     cancel,
		tasks:      queue.New[envelope[T]](c.conf.queueCapacity),
		results:    queue.New[TaskResult[T, R]](c.conf.resultBuffer),
		gate:       newGate(),
		done:       make(chan struct{}),
		finalizedC: make(chan struct{}),
		startedAt:  time.Now(),
	}

	pool := newWorkerPool(c.conf, c.fn, run.tasks, run.results)
	run.pool.Store(pool)
	c.fnChanged = false
	pool.spawn(runCtx)

	c.run = run
	c.setState(StateRunning)

	// The drain loop must be live before the backlog is submitted: a
	// backlog larger than the queue and result buffers combined needs
	// results consumed while tasks are still being enqueued.
	go c.drain(runCtx, run)

	for _, t := range c.pending {
		if err := submitTask(run, t); err != nil {
			cancel()
			return fmt.Errorf("submit buffered task: %w", err)
		}
	}
	c.pending = nil

	c.log.Info("run started",
		F("run_id", run.id), F("workers", pool.size), F("buffered", run.submitted.Load()))
	return nil
}

// FinalizeTasks declares the task set complete: one stop sentinel per
// worker is queued behind the pending tasks and no further tasks are
// accepted for this run. Workers drain everything ahead of their
// sentinel, acknowledge, and exit; completion fires once all
// acknowledgements are in.
func (c *Controller[T, R]) FinalizeTasks() error {
	c.mu.Lock()

	switch c.State() {
	case StateRunning:
	case StateFinalizing:
		c.mu.Unlock()
		return ErrFinalized
	case StateSuspended:
		c.mu.Unlock()
		return fmt.Errorf("%w: restart before finalizing", ErrBadState)
	default:
		st := c.State()
		c.mu.Unlock()
		return fmt.Errorf("%w: finalize while %s", ErrBadState, st)
	}

	run := c.run
	pool := run.pool.Load()
	run.finalized.Store(true)
	close(run.finalizedC)
	c.setState(StateFinalizing)
	c.mu.Unlock()

	// Enqueued outside the mutex: a task queue still full of work can
	// block the sentinel enqueue, and the control plane must stay
	// responsive (notably Abort) while it drains.
	for range pool.size {
		if err := run.tasks.Enqueue(run.ctx, envelope[T]{stop: true}); err != nil {
			return fmt.Errorf("queue stop sentinel: %w", err)
		}
	}

	c.log.Info("tasks finalized",
		F("run_id", run.id), F("submitted", run.submitted.Load()))
	return nil
}

// Suspend pauses the drain loop. Workers keep draining the task queue
// but their results accumulate in the result buffer until Restart;
// once the buffer fills, workers block. Legal only while Running.
func (c *Controller[T, R]) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != StateRunning {
		return fmt.Errorf("%w: suspend while %s", ErrBadState, c.State())
	}

	c.run.gate.Pause()
	c.setState(StateSuspended)
	c.log.Info("run suspended", F("run_id", c.run.id))
	return nil
}

// Restart resumes a suspended run, flushing results buffered during
// the suspension in arrival order. If the processing function was
// replaced while suspended, the worker pool is cycled first: the old
// generation is told to quit after its current item and a fresh pool
// picks up the remaining queue with the new function.
func (c *Controller[T, R]) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != StateSuspended {
		return fmt.Errorf("%w: restart while %s", ErrBadState, c.State())
	}

	run := c.run
	if c.fnChanged {
		old := run.pool.Load()
		fresh := newWorkerPool(c.conf, c.fn, run.tasks, run.results)
		// Swap before stopping the old generation so the drain loop
		// can never mistake the old pool's exit for run completion.
		run.pool.Store(fresh)
		fresh.spawn(run.ctx)
		old.stop()
		c.fnChanged = false
		c.log.Info("worker pool cycled", F("run_id", run.id))
	}

	run.gate.Resume()
	c.setState(StateRunning)
	c.log.Info("run restarted", F("run_id", run.id))
	return nil
}

// Abort cuts the run short, best-effort: workers finish their current
// item, acknowledge, and exit; tasks still queued are discarded. There
// is no pre-emptive termination of an item in flight. The completion
// notification still fires, with Summary.Aborted set.
func (c *Controller[T, R]) Abort() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case StateRunning, StateSuspended, StateFinalizing:
	default:
		return fmt.Errorf("%w: abort while %s", ErrBadState, c.State())
	}

	run := c.run
	run.aborted.Store(true)
	run.finalized.CompareAndSwap(false, true)
	run.pool.Load().stop()
	run.gate.Resume()
	c.setState(StateFinalizing)

	c.log.Warn("run aborted", F("run_id", run.id))
	return nil
}

// Wait blocks until the current run stops. A timeout <= 0 waits
// indefinitely; otherwise ErrWaitTimeout is returned when it elapses.
// Returns immediately when no run was ever started.
func (c *Controller[T, R]) Wait(timeout time.Duration) error {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()

	if run == nil {
		return nil
	}
	return waitUntil(run.done, timeout)
}

// Stats returns a point-in-time snapshot of the controller. Progress
// here is the raw completed/submitted fraction; the notification
// stream additionally guarantees monotonicity and reserves 1.0 for
// clean completion.
func (c *Controller[T, R]) Stats() Stats {
	c.mu.Lock()
	run := c.run
	st := c.State()
	c.mu.Unlock()

	s := Stats{
		State:   st,
		Workers: c.conf.workers,
	}
	if run == nil {
		return s
	}

	s.RunID = run.id.String()
	s.Submitted = run.submitted.Load()
	s.Completed = run.completed.Load()
	s.Failed = run.failed.Load()
	s.Queued = run.tasks.Len()

	switch {
	case run.clean.Load():
		s.Progress = 1
	case s.Submitted > 0:
		s.Progress = float64(s.Completed) / float64(s.Submitted)
	}
	return s
}

// Progress returns the completed fraction of the current run.
func (c *Controller[T, R]) Progress() float64 {
	return c.Stats().Progress
}

// drain is the controller's event loop. It is the only consumer of the
// result queue and the only place allowed to block on it. The gate
// parks it during suspension; the pool's exit signal, the finalize
// timeout, and context cancellation end it.
func (c *Controller[T, R]) drain(ctx context.Context, run *runState[T, R]) {
	defer close(run.done)

	finalizedC := run.finalizedC
	var timeoutC <-chan time.Time

	// A result dequeued in the same select round as a pause is held
	// back and delivered first thing after the resume, preserving
	// arrival order without leaking it to a suspended subscriber.
	var held *TaskResult[T, R]
	deliverHeld := func() {
		if held != nil {
			c.deliver(run, *held)
			held = nil
		}
	}

	for {
		select {
		case <-run.gate.ResumeC():
			deliverHeld()
		case <-ctx.Done():
			deliverHeld()
			c.finish(run, true)
			return
		}

		pool := run.pool.Load()

		select {
		case res := <-run.results.Out():
			if run.gate.Paused() {
				held = &res
				continue
			}
			c.deliver(run, res)

		case <-run.gate.PauseC():
			// Suspended; loop back and park on the resume edge.

		case <-finalizedC:
			// Arm the degraded-completion timer once, at finalize.
			finalizedC = nil
			if c.conf.finalizeTimeout > 0 {
				timeoutC = time.After(c.conf.finalizeTimeout)
			}

		case <-pool.exited:
			if pool != run.pool.Load() {
				// Exit of a cycled-out generation, not the run.
				continue
			}
			c.finish(run, false)
			return

		case <-timeoutC:
			run.degraded.Store(true)
			c.log.Warn("finalize timeout reached, completing run as degraded",
				F("run_id", run.id), F("timeout", c.conf.finalizeTimeout))
			run.cancel()
			c.finish(run, false)
			return

		case <-ctx.Done():
			c.finish(run, true)
			return
		}
	}
}

// deliver republishes one result and the progress it implies. The
// emitted progress value is high-water marked so it never decreases
// when the denominator grows, and 1.0 is reserved for the completion
// path.
func (c *Controller[T, R]) deliver(run *runState[T, R], res TaskResult[T, R]) {
	completed := run.completed.Add(1)
	if res.Err != nil {
		run.failed.Add(1)
		c.log.Warn("task failed",
			F("run_id", run.id), F("seq", res.Seq), F("err", res.Err))
	}

	for _, fn := range c.resultFns {
		fn(res)
	}

	submitted := run.submitted.Load()
	if submitted == 0 {
		return
	}
	frac := float64(completed) / float64(submitted)
	if frac > run.progressHW && frac < 1 {
		run.progressHW = frac
		for _, fn := range c.progressFns {
			fn(frac)
		}
	}
}

// finish flushes buffered results, emits the completion notification
// exactly once, and moves the controller to Stopped. The final 1.0
// progress value is emitted only for clean, fully-acknowledged runs,
// and only after the completion notification.
func (c *Controller[T, R]) finish(run *runState[T, R], cancelled bool) {
	for {
		res, ok := run.results.TryDequeue()
		if !ok {
			break
		}
		c.deliver(run, res)
	}

	if cancelled {
		run.aborted.Store(true)
	}

	submitted := run.submitted.Load()
	completed := run.completed.Load()
	summary := Summary{
		RunID:     run.id,
		Submitted: submitted,
		Completed: completed,
		Failed:    run.failed.Load(),
		Aborted:   run.aborted.Load(),
		Degraded:  run.degraded.Load(),
		Elapsed:   time.Since(run.startedAt),
	}
	if summary.Degraded {
		summary.Err = ErrIncompleteRun
	}

	for _, fn := range c.finishedFns {
		fn(summary)
	}

	if !summary.Aborted && !summary.Degraded && completed == submitted {
		run.clean.Store(true)
		for _, fn := range c.progressFns {
			fn(1)
		}
	}

	run.cancel()
	c.setState(StateStopped)

	c.log.Info("run finished",
		F("run_id", run.id),
		F("completed", completed),
		F("failed", summary.Failed),
		F("aborted", summary.Aborted),
		F("degraded", summary.Degraded),
		F("elapsed", summary.Elapsed))
}
