//go:build linux

package affinity

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinThread pins the current OS thread to a CPU core. Callers must hold
// runtime.LockOSThread first. Worker ids beyond the CPU count wrap.
func pinThread(cpuID int) error {
	numCPU := runtime.NumCPU()
	if cpuID < 0 || cpuID >= numCPU {
		cpuID = ((cpuID % numCPU) + numCPU) % numCPU
	}

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpuID)

	// 0 pins the calling thread.
	return unix.SchedSetaffinity(0, &mask)
}

// Pin locks the calling goroutine to an OS thread and pins that thread
// to the core matching workerID. The returned cleanup releases the
// thread lock and should be deferred by the worker.
func Pin(workerID int) func() {
	runtime.LockOSThread()
	_ = pinThread(workerID)

	return runtime.UnlockOSThread
}
