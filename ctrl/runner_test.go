package ctrl

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// scaleApp multiplies tasks by a configurable factor and counts its
// lifecycle hook invocations.
type scaleApp struct {
	factor atomic.Int64

	prepared atomic.Int32
	finished atomic.Int32

	prepareErr error
}

func newScaleApp(factor int64) *scaleApp {
	a := &scaleApp{}
	a.factor.Store(factor)
	return a
}

func (a *scaleApp) PrepareRun(context.Context) error {
	a.prepared.Add(1)
	return a.prepareErr
}

func (a *scaleApp) ProcessTask(_ context.Context, task int) (int, error) {
	return task * int(a.factor.Load()), nil
}

func (a *scaleApp) FinishRun(context.Context) error {
	a.finished.Add(1)
	return nil
}

func (a *scaleApp) SetParam(name string, value any) error {
	if name != "factor" {
		return fmt.Errorf("unknown parameter %q", name)
	}
	f, ok := value.(int)
	if !ok {
		return fmt.Errorf("factor must be an int, got %T", value)
	}
	a.factor.Store(int64(f))
	return nil
}

func TestAppRunner_RunsApp(t *testing.T) {
	app := newScaleApp(3)
	r := NewAppRunner[int, int](app, WithWorkerCount(2))
	rec := &resultRecorder{}
	_ = r.OnResult(rec.record)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := range 10 {
		_ = r.AddTask(i)
	}
	_ = r.FinalizeTasks()
	if err := r.Wait(5 * time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}

	for _, res := range rec.snapshot() {
		if res.Value != res.Task*3 {
			t.Errorf("task %d: expected %d, got %d", res.Task, res.Task*3, res.Value)
		}
	}
	if got := app.prepared.Load(); got != 1 {
		t.Errorf("PrepareRun called %d times", got)
	}

	waitFor(t, time.Second, func() bool {
		return app.finished.Load() == 1
	})
}

func TestAppRunner_PrepareFailureAbortsStart(t *testing.T) {
	app := newScaleApp(1)
	app.prepareErr = errors.New("calibration file missing")

	r := NewAppRunner[int, int](app, WithWorkerCount(2))
	err := r.Start(context.Background())
	if err == nil || !errors.Is(err, app.prepareErr) {
		t.Fatalf("expected prepare error, got %v", err)
	}
	if r.State() != StateIdle {
		t.Errorf("failed prepare must leave the runner idle, got %s", r.State())
	}
	if app.finished.Load() != 0 {
		t.Error("FinishRun must not run when PrepareRun fails")
	}
}

func TestAppRunner_HooksOncePerRun(t *testing.T) {
	app := newScaleApp(2)
	r := NewAppRunner[int, int](app, WithWorkerCount(2))

	for run := 1; run <= 2; run++ {
		if err := r.Start(context.Background()); err != nil {
			t.Fatalf("run %d start: %v", run, err)
		}
		_ = r.AddTask(run)
		_ = r.FinalizeTasks()
		if err := r.Wait(5 * time.Second); err != nil {
			t.Fatalf("run %d wait: %v", run, err)
		}

		if got := app.prepared.Load(); got != int32(run) {
			t.Errorf("after run %d: PrepareRun called %d times", run, got)
		}
		waitFor(t, time.Second, func() bool {
			return app.finished.Load() == int32(run)
		})
	}
}

func TestAppRunner_AppAccess(t *testing.T) {
	app := newScaleApp(2)
	r := NewAppRunner[int, int](app, WithWorkerCount(1))

	t.Run("while idle", func(t *testing.T) {
		if err := r.SetAppParam("factor", 7); err != nil {
			t.Fatalf("set param while idle: %v", err)
		}
		if got := app.factor.Load(); got != 7 {
			t.Errorf("factor: expected 7, got %d", got)
		}

		called := false
		if err := r.CallApp(func(App[int, int]) error {
			called = true
			return nil
		}); err != nil {
			t.Fatalf("call app while idle: %v", err)
		}
		if !called {
			t.Error("CallApp did not invoke the callback")
		}
	})

	t.Run("while running", func(t *testing.T) {
		_ = r.Start(context.Background())
		defer func() {
			_ = r.Abort()
			_ = r.Wait(time.Second)
		}()

		if err := r.SetAppParam("factor", 9); !errors.Is(err, ErrRunInFlight) {
			t.Errorf("expected ErrRunInFlight, got %v", err)
		}
		if err := r.CallApp(func(App[int, int]) error { return nil }); !errors.Is(err, ErrRunInFlight) {
			t.Errorf("expected ErrRunInFlight, got %v", err)
		}
	})

	t.Run("nil callback", func(t *testing.T) {
		if err := r.CallApp(nil); !errors.Is(err, ErrNilFunction) {
			t.Errorf("expected ErrNilFunction, got %v", err)
		}
	})

	t.Run("bad parameter", func(t *testing.T) {
		if err := r.SetAppParam("threshold", 0.5); err == nil {
			t.Error("unknown parameter should be rejected")
		}
	})
}

// plainApp does not implement Parameterized.
type plainApp struct{}

func (plainApp) PrepareRun(context.Context) error { return nil }
func (plainApp) ProcessTask(_ context.Context, task int) (int, error) {
	return task, nil
}
func (plainApp) FinishRun(context.Context) error { return nil }

func TestAppRunner_NotParameterized(t *testing.T) {
	r := NewAppRunner[int, int](plainApp{}, WithWorkerCount(1))
	if err := r.SetAppParam("anything", 1); !errors.Is(err, ErrNotParameterized) {
		t.Errorf("expected ErrNotParameterized, got %v", err)
	}
}

func TestAppRunner_DoubleStart(t *testing.T) {
	app := newScaleApp(1)
	r := NewAppRunner[int, int](app, WithWorkerCount(1))

	_ = r.Start(context.Background())
	defer func() {
		_ = r.Abort()
		_ = r.Wait(time.Second)
	}()

	if err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	if got := app.prepared.Load(); got != 1 {
		t.Errorf("rejected start must not re-run PrepareRun, called %d times", got)
	}
}
