package ctrl

import (
	"context"
	"fmt"
)

// App is a structured application processed by an AppRunner. The hooks
// bracket the pool lifecycle: PrepareRun runs exactly once before any
// worker spawns (expensive one-time initialization belongs here),
// ProcessTask runs once per task inside the workers, and FinishRun
// runs exactly once after the completion notification.
//
// Implementations must be safe for ProcessTask to be called
// concurrently from multiple workers.
//
// Type parameters:
//   - T: the task type
//   - R: the result type
type App[T any, R any] interface {
	PrepareRun(ctx context.Context) error
	ProcessTask(ctx context.Context, task T) (R, error)
	FinishRun(ctx context.Context) error
}

// Parameterized is optionally implemented by applications whose
// configuration can be adjusted between runs via SetAppParam.
type Parameterized interface {
	SetParam(name string, value any) error
}

// AppRunner adapts the Controller to run a structured application
// instead of a bare function. All Controller control-plane methods are
// available; Start additionally invokes the application's lifecycle
// hooks.
//
// Example:
//
//	runner := ctrl.NewAppRunner[int, float64](app, ctrl.WithWorkerCount(4))
//	_ = runner.OnFinished(func(s ctrl.Summary) { fmt.Println("done:", s.Completed) })
//	_ = runner.AddTasks(frames)
//	_ = runner.Start(ctx)
//	_ = runner.FinalizeTasks()
//	_ = runner.Wait(time.Minute)
type AppRunner[T any, R any] struct {
	*Controller[T, R]
	app App[T, R]
}

// NewAppRunner wraps an application in a runner. The application's
// ProcessTask becomes the pool's processing function.
func NewAppRunner[T any, R any](app App[T, R], opts ...Option) *AppRunner[T, R] {
	r := &AppRunner[T, R]{
		Controller: NewController[T, R](app.ProcessTask, opts...),
		app:        app,
	}

	// Registered first so the application is cleaned up before any
	// caller-facing completion subscribers run.
	_ = r.Controller.OnFinished(func(Summary) {
		if err := app.FinishRun(context.Background()); err != nil {
			r.Controller.log.Error("finish run hook failed", F("err", err))
		}
	})

	return r
}

// Start invokes the application's PrepareRun hook and then starts the
// run. PrepareRun failures abort the start; no workers are spawned.
func (r *AppRunner[T, R]) Start(ctx context.Context) error {
	switch r.State() {
	case StateIdle, StateStopped:
	default:
		return fmt.Errorf("%w: start from %s", ErrAlreadyStarted, r.State())
	}

	if err := r.app.PrepareRun(ctx); err != nil {
		return fmt.Errorf("prepare run: %w", err)
	}
	return r.Controller.Start(ctx)
}

// CallApp invokes fn against the wrapped application. Calls must be
// synchronized with the run lifecycle: while a run is in flight the
// application is being used by the workers and access is rejected with
// ErrRunInFlight.
func (r *AppRunner[T, R]) CallApp(fn func(app App[T, R]) error) error {
	if fn == nil {
		return ErrNilFunction
	}
	if err := r.appAccessible(); err != nil {
		return err
	}
	return fn(r.app)
}

// SetAppParam sets a configuration parameter on the wrapped
// application. The application must implement Parameterized; the same
// lifecycle constraint as CallApp applies.
func (r *AppRunner[T, R]) SetAppParam(name string, value any) error {
	if err := r.appAccessible(); err != nil {
		return err
	}

	p, ok := r.app.(Parameterized)
	if !ok {
		return ErrNotParameterized
	}
	return p.SetParam(name, value)
}

func (r *AppRunner[T, R]) appAccessible() error {
	switch r.State() {
	case StateIdle, StateStopped:
		return nil
	default:
		return fmt.Errorf("%w (state %s)", ErrRunInFlight, r.State())
	}
}
