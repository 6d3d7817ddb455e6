package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int](8)
	ctx := context.Background()

	for i := range 5 {
		if err := q.Enqueue(ctx, i); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	for i := range 5 {
		v, err := q.Dequeue(ctx, nil)
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		if v != i {
			t.Errorf("expected %d, got %d", i, v)
		}
	}
}

func TestQueue_DequeueBlocks(t *testing.T) {
	q := New[string](4)
	ctx := context.Background()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = q.Enqueue(ctx, "late")
	}()

	v, err := q.Dequeue(ctx, nil)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if v != "late" {
		t.Errorf("expected 'late', got %q", v)
	}
}

func TestQueue_Close(t *testing.T) {
	t.Run("drain before closed error", func(t *testing.T) {
		q := New[int](4)
		ctx := context.Background()

		_ = q.Enqueue(ctx, 1)
		_ = q.Enqueue(ctx, 2)
		q.Close()

		if !q.IsClosed() {
			t.Error("queue should report closed")
		}

		for i := 1; i <= 2; i++ {
			v, err := q.Dequeue(ctx, nil)
			if err != nil {
				t.Fatalf("dequeue buffered item: %v", err)
			}
			if v != i {
				t.Errorf("expected %d, got %d", i, v)
			}
		}

		if _, err := q.Dequeue(ctx, nil); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})

	t.Run("enqueue after close", func(t *testing.T) {
		q := New[int](4)
		q.Close()
		if err := q.Enqueue(context.Background(), 1); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})

	t.Run("close unblocks waiting dequeue", func(t *testing.T) {
		q := New[int](4)
		errCh := make(chan error, 1)

		go func() {
			_, err := q.Dequeue(context.Background(), nil)
			errCh <- err
		}()

		time.Sleep(20 * time.Millisecond)
		q.Close()

		select {
		case err := <-errCh:
			if !errors.Is(err, ErrClosed) {
				t.Errorf("expected ErrClosed, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("dequeue did not unblock after close")
		}
	})
}

func TestQueue_StopChannel(t *testing.T) {
	q := New[int](4)
	stop := make(chan struct{})
	errCh := make(chan error, 1)

	go func() {
		_, err := q.Dequeue(context.Background(), stop)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	close(stop)

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("expected ErrStopped, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not unblock on stop")
	}
}

func TestQueue_ContextCancel(t *testing.T) {
	q := New[int](4)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if _, err := q.Dequeue(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestQueue_TryDequeue(t *testing.T) {
	q := New[int](4)

	if _, ok := q.TryDequeue(); ok {
		t.Error("TryDequeue on empty queue should report false")
	}

	_ = q.Enqueue(context.Background(), 7)
	v, ok := q.TryDequeue()
	if !ok || v != 7 {
		t.Errorf("expected (7, true), got (%d, %v)", v, ok)
	}
}

func TestQueue_LenCap(t *testing.T) {
	q := New[int](4)
	ctx := context.Background()

	if q.Cap() != 4 {
		t.Errorf("expected cap 4, got %d", q.Cap())
	}

	_ = q.Enqueue(ctx, 1)
	_ = q.Enqueue(ctx, 2)
	if q.Len() != 2 {
		t.Errorf("expected len 2, got %d", q.Len())
	}
}

func TestQueue_DefaultCapacity(t *testing.T) {
	q := New[int](0)
	if q.Cap() != defaultCapacity {
		t.Errorf("expected default capacity %d, got %d", defaultCapacity, q.Cap())
	}
}
