package ctrl

// State is the controller lifecycle state.
//
// Transitions:
//
//	Idle ──Start──▶ Running ──Suspend──▶ Suspended
//	                  ▲                      │
//	                  └───────Restart────────┘
//	Running ──FinalizeTasks──▶ Finalizing ──all acks──▶ Stopped
//	Stopped ──Start──▶ Running (fresh run)
//
// Any other transition is caller misuse and is rejected with an
// explicit error rather than silently ignored.
type State int32

const (
	// StateIdle means the controller has been constructed but no run
	// has been started yet. Tasks added now are buffered for the next
	// run.
	StateIdle State = iota

	// StateRunning means workers are live and the drain loop is
	// forwarding results and progress to subscribers.
	StateRunning

	// StateSuspended means workers keep draining the task queue but
	// the drain loop stops forwarding results until Restart.
	StateSuspended

	// StateFinalizing means stop sentinels have been queued and the
	// controller is waiting for every worker to acknowledge exit.
	StateFinalizing

	// StateStopped means the run has completed; Start may be called
	// again for a fresh run.
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateFinalizing:
		return "finalizing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
