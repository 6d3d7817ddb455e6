//go:build windows

package affinity

import (
	"runtime"
	"syscall"
)

var (
	kernel32              = syscall.NewLazyDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
	getCurrentThread      = kernel32.NewProc("GetCurrentThread")
)

// pinThread pins the current OS thread to a CPU core via the Win32
// thread affinity mask. Worker ids beyond the CPU count wrap.
func pinThread(cpuID int) error {
	numCPU := runtime.NumCPU()
	if cpuID < 0 || cpuID >= numCPU {
		cpuID = ((cpuID % numCPU) + numCPU) % numCPU
	}

	handle, _, _ := getCurrentThread.Call()
	mask := uintptr(1 << cpuID)

	prev, _, err := setThreadAffinityMask.Call(handle, mask)
	if prev == 0 {
		return err
	}
	return nil
}

// Pin locks the calling goroutine to an OS thread and pins that thread
// to the core matching workerID. The returned cleanup releases the
// thread lock and should be deferred by the worker.
func Pin(workerID int) func() {
	runtime.LockOSThread()
	_ = pinThread(workerID)

	return runtime.UnlockOSThread
}
