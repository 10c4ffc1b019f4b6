// Package metrics exposes the trampoline's activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "engine"

// Observer implements ports.InvocationObserver with Prometheus collectors.
type Observer struct {
	invocations *prometheus.CounterVec
	drains      prometheus.Counter
	drained     prometheus.Histogram
	switches    *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// NewObserver creates an observer and registers its collectors with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &Observer{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_invocations_total",
				Help:      "Atomic operation invocations performed, by operation and mode",
			},
			[]string{"operation", "mode"},
		),
		drains: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drain_loops_total",
			Help:      "Drain loops completed",
		}),
		drained: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "drain_loop_invocations",
			Help:      "Invocations performed per drain loop",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		switches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "context_switches_total",
				Help:      "Switches into a process application, by application",
			},
			[]string{"application"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Failures offered to a unit of work, by whether they were masked",
			},
			[]string{"masked"},
		),
	}

	for _, c := range []prometheus.Collector{o.invocations, o.drains, o.drained, o.switches, o.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// OperationInvoked implements ports.InvocationObserver.
func (o *Observer) OperationInvoked(operation string, async bool) {
	mode := "sync"
	if async {
		mode = "async"
	}

	o.invocations.WithLabelValues(operation, mode).Inc()
}

// DrainCompleted implements ports.InvocationObserver.
func (o *Observer) DrainCompleted(invocations int) {
	o.drains.Inc()
	o.drained.Observe(float64(invocations))
}

// ContextSwitched implements ports.InvocationObserver.
func (o *Observer) ContextSwitched(application string) {
	o.switches.WithLabelValues(application).Inc()
}

// FailureRecorded implements ports.InvocationObserver.
func (o *Observer) FailureRecorded(masked bool) {
	label := "false"
	if masked {
		label = "true"
	}

	o.failures.WithLabelValues(label).Inc()
}

// RegisterJobsPending registers a gauge reporting pending() on every scrape.
func RegisterJobsPending(reg prometheus.Registerer, pending func() int) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_pending",
			Help:      "Asynchronous continuations waiting to run",
		},
		func() float64 { return float64(pending()) },
	))
}
