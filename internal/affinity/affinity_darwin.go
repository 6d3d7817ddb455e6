//go:build darwin

package affinity

import "runtime"

// Pin locks the calling goroutine to an OS thread. macOS offers no
// public thread-to-core pinning API, so the thread lock is all we do.
func Pin(workerID int) func() {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
