// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for thread lifecycle and priority events.

package control

import (
	"errors"
	"fmt"
	"time"

	"github.com/momentics/hioload-thread/api"
	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// DefaultNamespace prefixes every collector name.
const DefaultNamespace = "hioload_thread"

// Metrics implements api.ThreadMetrics on Prometheus collectors.
type Metrics struct {
	created  *prom.CounterVec
	failures *prom.CounterVec
	live     prom.Gauge
	joinWait prom.Histogram
	applied  *prom.CounterVec
}

var _ api.ThreadMetrics = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg
// (prom.DefaultRegisterer when nil). Collectors already registered under the
// same names are reused.
func NewMetrics(namespace string, reg prom.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	created := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "threads_created_total",
		Help:      "Threads started, by requested priority.",
	}, []string{"priority"})
	failures := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "thread_create_failures_total",
		Help:      "Thread creations rejected, by reason.",
	}, []string{"reason"})
	live := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "threads_live",
		Help:      "Threads whose delegate has not returned.",
	})
	joinWait := prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "thread_join_seconds",
		Help:      "Time callers spent blocked in Join.",
		Buckets:   prom.DefBuckets,
	})
	applied := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "priority_applied_total",
		Help:      "Priority changes, by level and the mechanism that took effect.",
	}, []string{"priority", "path"})

	var err error
	if created, err = registerCollector(reg, created); err != nil {
		return nil, err
	}
	if failures, err = registerCollector(reg, failures); err != nil {
		return nil, err
	}
	if live, err = registerCollector(reg, live); err != nil {
		return nil, err
	}
	if joinWait, err = registerCollector(reg, joinWait); err != nil {
		return nil, err
	}
	if applied, err = registerCollector(reg, applied); err != nil {
		return nil, err
	}
	return &Metrics{
		created:  created,
		failures: failures,
		live:     live,
		joinWait: joinWait,
		applied:  applied,
	}, nil
}

// ThreadCreated implements api.ThreadMetrics.
func (m *Metrics) ThreadCreated(p api.ThreadPriority) {
	m.created.WithLabelValues(p.String()).Inc()
	m.live.Inc()
}

// ThreadCreateFailed implements api.ThreadMetrics.
func (m *Metrics) ThreadCreateFailed(reason string) {
	m.failures.WithLabelValues(normalizeLabel(reason, "unknown")).Inc()
}

// ThreadExited implements api.ThreadMetrics.
func (m *Metrics) ThreadExited() { m.live.Dec() }

// ThreadJoined implements api.ThreadMetrics.
func (m *Metrics) ThreadJoined(wait time.Duration) { m.joinWait.Observe(wait.Seconds()) }

// PriorityApplied implements api.ThreadMetrics.
func (m *Metrics) PriorityApplied(p api.ThreadPriority, path string) {
	m.applied.WithLabelValues(p.String(), normalizeLabel(path, "unknown")).Inc()
}

// Snapshot sums every collector across its labels, for api.Control.Stats.
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"threads.created":         sumCollector(m.created),
		"threads.create_failures": sumCollector(m.failures),
		"threads.live":            sumCollector(m.live),
		"threads.joins":           sumCollector(m.joinWait),
		"priority.applied":        sumCollector(m.applied),
	}
}

func sumCollector(c prom.Collector) float64 {
	ch := make(chan prom.Metric, 16)
	go func() {
		c.Collect(ch)
		close(ch)
	}()
	var total float64
	for metric := range ch {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			continue
		}
		switch {
		case msg.Counter != nil:
			total += msg.Counter.GetValue()
		case msg.Gauge != nil:
			total += msg.Gauge.GetValue()
		case msg.Histogram != nil:
			total += float64(msg.Histogram.GetSampleCount())
		}
	}
	return total
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}
	return collector, err
}
