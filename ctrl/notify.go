package ctrl

import "fmt"

// Subscriptions must be registered before a run starts: the drain loop
// reads the subscriber lists without locking, which is safe precisely
// because registration is rejected while a run is in flight. This also
// preserves the contract that a subscriber never misses the beginning
// of a run it subscribed for.

// OnProgress registers a progress subscriber. It receives a
// monotonically non-decreasing fraction in [0,1) after results are
// drained, and exactly one final 1.0 after the completion notification
// of a clean run.
func (c *Controller[T, R]) OnProgress(fn func(float64)) error {
	if fn == nil {
		return ErrNilFunction
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.subscribableLocked(); err != nil {
		return err
	}
	c.progressFns = append(c.progressFns, fn)
	return nil
}

// OnResult registers a per-result subscriber. It is invoked once per
// (task, result) pair in drain order, which may differ from submission
// order when several workers run concurrently.
func (c *Controller[T, R]) OnResult(fn func(TaskResult[T, R])) error {
	if fn == nil {
		return ErrNilFunction
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.subscribableLocked(); err != nil {
		return err
	}
	c.resultFns = append(c.resultFns, fn)
	return nil
}

// OnFinished registers a completion subscriber. It is invoked exactly
// once per run, after every worker has acknowledged exit (or the run
// was flagged aborted or degraded).
func (c *Controller[T, R]) OnFinished(fn func(Summary)) error {
	if fn == nil {
		return ErrNilFunction
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.subscribableLocked(); err != nil {
		return err
	}
	c.finishedFns = append(c.finishedFns, fn)
	return nil
}

func (c *Controller[T, R]) subscribableLocked() error {
	switch c.State() {
	case StateIdle, StateStopped:
		return nil
	default:
		return fmt.Errorf("%w (state %s)", ErrSubscribeWhileRunning, c.State())
	}
}
