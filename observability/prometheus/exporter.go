// Package prometheus exports controller statistics as Prometheus
// metrics. Controllers are registered by name as snapshot providers;
// the exporter samples their Stats() either on demand or on a fixed
// interval via the built-in poller.
package prometheus

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/sciproc/workerctl/ctrl"
)

// StatsProvider provides current controller stats snapshots.
// *ctrl.Controller and *ctrl.AppRunner both satisfy it.
type StatsProvider interface {
	Stats() ctrl.Stats
}

// Exporter maps ctrl.Stats snapshots onto Prometheus gauges, one
// labeled series per registered controller.
type Exporter struct {
	mu        sync.RWMutex
	providers map[string]StatsProvider

	state     *prom.GaugeVec
	workers   *prom.GaugeVec
	submitted *prom.GaugeVec
	completed *prom.GaugeVec
	failed    *prom.GaugeVec
	queued    *prom.GaugeVec
	progress  *prom.GaugeVec
}

// NewExporter creates an exporter and registers its collectors.
// An empty namespace defaults to "workerctl"; a nil registerer uses
// the Prometheus default.
func NewExporter(namespace string, reg prom.Registerer) (*Exporter, error) {
	if namespace == "" {
		namespace = "workerctl"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	labels := []string{"controller"}
	e := &Exporter{
		providers: make(map[string]StatsProvider),
		state: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_state",
			Help:      "Controller lifecycle state (0=idle 1=running 2=suspended 3=finalizing 4=stopped).",
		}, labels),
		workers: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_workers",
			Help:      "Configured worker count.",
		}, labels),
		submitted: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_tasks_submitted",
			Help:      "Tasks submitted in the current run.",
		}, labels),
		completed: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_tasks_completed",
			Help:      "Tasks whose results were delivered in the current run.",
		}, labels),
		failed: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_tasks_failed",
			Help:      "Tasks that ended with a per-task error in the current run.",
		}, labels),
		queued: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_tasks_queued",
			Help:      "Tasks waiting in the task queue.",
		}, labels),
		progress: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_progress",
			Help:      "Completed fraction of the current run.",
		}, labels),
	}

	var err error
	for _, vec := range []**prom.GaugeVec{
		&e.state, &e.workers, &e.submitted, &e.completed,
		&e.failed, &e.queued, &e.progress,
	} {
		if *vec, err = registerGaugeVec(reg, *vec); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Add registers (or replaces) a controller snapshot provider under the
// given label value.
func (e *Exporter) Add(name string, provider StatsProvider) {
	if e == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "controller")

	e.mu.Lock()
	e.providers[name] = provider
	e.mu.Unlock()
}

// Remove drops a provider and its metric series.
func (e *Exporter) Remove(name string) {
	name = normalizeLabel(name, "controller")

	e.mu.Lock()
	delete(e.providers, name)
	e.mu.Unlock()

	labels := prom.Labels{"controller": name}
	e.state.Delete(labels)
	e.workers.Delete(labels)
	e.submitted.Delete(labels)
	e.completed.Delete(labels)
	e.failed.Delete(labels)
	e.queued.Delete(labels)
	e.progress.Delete(labels)
}

// Collect samples every registered provider once and updates the
// gauges. The poller calls this on its interval; callers without a
// poller can invoke it before scraping.
func (e *Exporter) Collect() {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for name, provider := range e.providers {
		s := provider.Stats()
		e.state.WithLabelValues(name).Set(float64(s.State))
		e.workers.WithLabelValues(name).Set(float64(s.Workers))
		e.submitted.WithLabelValues(name).Set(float64(s.Submitted))
		e.completed.WithLabelValues(name).Set(float64(s.Completed))
		e.failed.WithLabelValues(name).Set(float64(s.Failed))
		e.queued.WithLabelValues(name).Set(float64(s.Queued))
		e.progress.WithLabelValues(name).Set(s.Progress)
	}
}

// registerGaugeVec registers a collector, reusing an existing one when
// the registerer already holds an identical registration.
func registerGaugeVec(reg prom.Registerer, vec *prom.GaugeVec) (*prom.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prom.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(*prom.GaugeVec)
			if !ok {
				return nil, fmt.Errorf("existing collector has unexpected type: %w", err)
			}
			return existing, nil
		}
		return nil, err
	}
	return vec, nil
}

func normalizeLabel(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}
