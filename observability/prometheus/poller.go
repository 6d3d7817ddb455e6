package prometheus

import (
	"context"
	"sync"
	"time"
)

// Poller periodically drives an Exporter's Collect.
type Poller struct {
	exporter *Exporter
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPoller creates a poller for the exporter. An interval <= 0
// defaults to one second.
func NewPoller(exporter *Exporter, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{
		exporter: exporter,
		interval: interval,
	}
}

// Start begins periodic collection; repeated calls are no-ops.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.mu.Unlock()

	go p.loop(pollCtx)
}

// Stop halts periodic collection and waits for the loop to exit.
// Repeated calls are safe.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	cancel()
	<-done

	p.mu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.exporter.Collect()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.exporter.Collect()
		}
	}
}
