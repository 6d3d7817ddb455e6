package ctrl

import (
	"math"
	"time"
)

// calcBackoffDelay calculates the exponential backoff delay for retry
// attempts. attemptNumber is 0-indexed (0 = first retry), and the
// delay doubles with each attempt: initialDelay * 2^attemptNumber.
func calcBackoffDelay(initialDelay time.Duration, attemptNumber int) time.Duration {
	if attemptNumber < 0 {
		return 0
	}

	backoffFactor := math.Pow(2, float64(attemptNumber))
	return time.Duration(float64(initialDelay) * backoffFactor)
}

// waitUntil blocks until the done channel is closed or the timeout is
// reached. A timeout <= 0 waits indefinitely.
func waitUntil(done <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-done
		return nil
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrWaitTimeout
	}
}
