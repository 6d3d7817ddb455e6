package ctrl

import "sync"

// gate lets the drain loop be paused and resumed. The pause and resume
// channels are replaced on each transition so waiters always observe
// the edge they subscribed to.
type gate struct {
	mu      sync.Mutex
	paused  bool
	pauseC  chan struct{} // closed while paused
	resumeC chan struct{} // closed while not paused
}

func newGate() *gate {
	resumed := make(chan struct{})
	close(resumed)
	return &gate{
		pauseC:  make(chan struct{}),
		resumeC: resumed,
	}
}

// Pause closes the gate. Idempotent.
func (g *gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		return
	}
	g.paused = true
	close(g.pauseC)
	g.resumeC = make(chan struct{})
}

// Resume reopens the gate. Idempotent.
func (g *gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		return
	}
	g.paused = false
	close(g.resumeC)
	g.pauseC = make(chan struct{})
}

// Paused reports whether the gate is currently closed.
func (g *gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// PauseC returns a channel that is closed while the gate is paused.
func (g *gate) PauseC() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pauseC
}

// ResumeC returns a channel that is closed while the gate is open.
func (g *gate) ResumeC() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resumeC
}
