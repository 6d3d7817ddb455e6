package prometheus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/sciproc/workerctl/ctrl"
)

// countingProvider counts how often it is sampled.
type countingProvider struct {
	calls atomic.Int32
}

func (p *countingProvider) Stats() ctrl.Stats {
	p.calls.Add(1)
	return ctrl.Stats{}
}

func TestPoller_CollectsOnInterval(t *testing.T) {
	e, err := NewExporter("polltest", prom.NewRegistry())
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}
	provider := &countingProvider{}
	e.Add("c", provider)

	p := NewPoller(e, 10*time.Millisecond)
	p.Start(context.Background())

	deadline := time.Now().Add(time.Second)
	for provider.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()

	if got := provider.calls.Load(); got < 3 {
		t.Errorf("expected at least 3 collections, got %d", got)
	}

	// No further collections after Stop.
	settled := provider.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if got := provider.calls.Load(); got != settled {
		t.Errorf("poller still collecting after Stop: %d -> %d", settled, got)
	}
}

func TestPoller_StartStopIdempotent(t *testing.T) {
	e, err := NewExporter("polltest2", prom.NewRegistry())
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}

	p := NewPoller(e, 10*time.Millisecond)
	p.Stop() // stop before start is a no-op

	ctx := context.Background()
	p.Start(ctx)
	p.Start(ctx) // second start is a no-op
	p.Stop()
	p.Stop()
}
