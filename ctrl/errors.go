package ctrl

import "errors"

var (
	// ErrAlreadyStarted is returned by Start when a run is already in
	// flight.
	ErrAlreadyStarted = errors.New("controller already started")

	// ErrFinalized is returned when tasks are added after
	// FinalizeTasks for the same run.
	ErrFinalized = errors.New("tasks already finalized for this run")

	// ErrBadState is wrapped by control operations invoked in a state
	// that does not permit them.
	ErrBadState = errors.New("operation not allowed in current state")

	// ErrSubscribeWhileRunning is returned when a notification
	// subscription is registered while a run is in flight.
	// Subscriptions must be in place before Start.
	ErrSubscribeWhileRunning = errors.New("subscriptions must be registered before start")

	// ErrIncompleteRun flags a finalize that timed out before every
	// worker acknowledged its stop signal.
	ErrIncompleteRun = errors.New("run completed without all worker acknowledgements")

	// ErrNilFunction is returned when a nil processing function is
	// supplied.
	ErrNilFunction = errors.New("processing function must not be nil")

	// ErrRunInFlight is returned by AppRunner accessors that must not
	// race a live run.
	ErrRunInFlight = errors.New("application access not allowed while a run is in flight")

	// ErrNotParameterized is returned by SetAppParam when the wrapped
	// application does not implement Parameterized.
	ErrNotParameterized = errors.New("application does not expose settable parameters")

	// ErrWaitTimeout is returned by Wait when the controller does not
	// stop within the given timeout.
	ErrWaitTimeout = errors.New("timed out waiting for controller to stop")
)
