package ctrl

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sciproc/workerctl/internal/affinity"
	"github.com/sciproc/workerctl/internal/queue"
)

// envelope wraps a task for transport through the task queue. A stop
// envelope is the sentinel that tells exactly one worker to exit.
type envelope[T any] struct {
	seq  int64
	task T
	stop bool
}

// ackReason records why a worker exited, carried on the control
// channel back to the controller.
type ackReason int8

const (
	ackSentinel ackReason = iota // consumed a stop sentinel during finalize
	ackQuit                      // quit broadcast (abort or pool cycle)
	ackContext                   // run context cancelled
)

func (r ackReason) String() string {
	switch r {
	case ackSentinel:
		return "sentinel"
	case ackQuit:
		return "quit"
	case ackContext:
		return "context"
	default:
		return "unknown"
	}
}

type workerAck struct {
	worker int
	reason ackReason
}

// workerPool owns one generation of workers. Each worker drains the
// task queue and writes paired results to the result queue; exits are
// acknowledged individually so the controller can tell a completed
// finalize from a wedged worker.
type workerPool[T any, R any] struct {
	conf    *config
	fn      ProcessFunc[T, R]
	tasks   *queue.Queue[envelope[T]]
	results *queue.Queue[TaskResult[T, R]]

	size     int
	quit     chan struct{}
	quitOnce sync.Once
	acks     chan workerAck
	exited   chan struct{} // closed once every worker has acknowledged
}

func newWorkerPool[T any, R any](
	conf *config,
	fn ProcessFunc[T, R],
	tasks *queue.Queue[envelope[T]],
	results *queue.Queue[TaskResult[T, R]],
) *workerPool[T, R] {
	return &workerPool[T, R]{
		conf:    conf,
		fn:      fn,
		tasks:   tasks,
		results: results,
		size:    conf.workers,
		quit:    make(chan struct{}),
		acks:    make(chan workerAck, conf.workers),
		exited:  make(chan struct{}),
	}
}

// spawn launches the workers and the acknowledgement collector.
func (p *workerPool[T, R]) spawn(ctx context.Context) {
	var g errgroup.Group
	for i := range p.size {
		g.Go(func() error {
			return p.worker(ctx, i)
		})
	}

	go func() {
		// Every worker acknowledges before returning, so once the
		// group is done the ack channel holds the full set.
		_ = g.Wait()
		close(p.acks)
	}()

	go p.collectAcks()
}

// stop broadcasts the quit signal. Workers finish their current item,
// acknowledge, and exit without consuming further tasks. Idempotent.
func (p *workerPool[T, R]) stop() {
	p.quitOnce.Do(func() {
		close(p.quit)
	})
}

func (p *workerPool[T, R]) collectAcks() {
	count := 0
	for ack := range p.acks {
		count++
		p.conf.logger.Debug("worker exited",
			F("worker", ack.worker), F("reason", ack.reason), F("acks", count))
		if count == p.size {
			close(p.exited)
		}
	}
}

// worker is the per-goroutine processing loop. A panicking or failing
// task produces a failure result; it never takes the worker down.
func (p *workerPool[T, R]) worker(ctx context.Context, id int) error {
	if p.conf.pinWorkers {
		defer affinity.Pin(id)()
	}

	reason := ackContext
	defer func() {
		// Buffered to pool size; never blocks.
		p.acks <- workerAck{worker: id, reason: reason}
	}()

	for {
		select {
		case <-p.quit:
			reason = ackQuit
			return nil
		default:
		}

		env, err := p.tasks.Dequeue(ctx, p.quit)
		switch {
		case errors.Is(err, queue.ErrStopped), errors.Is(err, queue.ErrClosed):
			reason = ackQuit
			return nil
		case err != nil:
			reason = ackContext
			return err
		}

		if env.stop {
			reason = ackSentinel
			return nil
		}

		if p.conf.rateLimiter != nil {
			if err := p.conf.rateLimiter.Wait(ctx); err != nil {
				reason = ackContext
				return err
			}
		}

		value, perr := p.invoke(ctx, env.task)
		res := TaskResult[T, R]{
			Seq:    env.seq,
			Task:   env.task,
			Value:  value,
			Err:    perr,
			Worker: id,
		}
		if err := p.results.Enqueue(ctx, res); err != nil {
			reason = ackContext
			return err
		}
	}
}

// invoke executes one task with panic recovery and retry. A panic is
// converted to an error with the stack attached so a bad task cannot
// crash the worker. Retries back off exponentially from the configured
// initial delay.
func (p *workerPool[T, R]) invoke(ctx context.Context, task T) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("task panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()

	maxAttempts := max(p.conf.maxAttempts, 1)

	for attempt := range maxAttempts {
		if attempt > 0 && p.conf.initialDelay > 0 {
			backoffDelay := calcBackoffDelay(p.conf.initialDelay, attempt-1)
			select {
			case <-time.After(backoffDelay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}

		result, err = p.fn(ctx, task)
		if err == nil {
			return result, nil
		}
	}

	return result, err
}
