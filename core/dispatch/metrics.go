package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ruleRejections      *prometheus.CounterVec
	executionLatency    prometheus.Histogram
	concurrentConflicts prometheus.Counter
	persistenceFailures prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, prometheus.Counter, prometheus.Counter) {
	rej := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_rule_rejections_total",
			Help: "Number of dispatch pairs rejected, by violated rule",
		},
		[]string{"violation"},
	)
	lat := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_execution_latency_seconds",
			Help:    "Duration of the swap transaction",
			Buckets: prometheus.DefBuckets,
		},
	)
	conf := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_concurrent_modifications_total",
			Help: "Number of swaps aborted because a slot changed or was locked",
		},
	)
	fail := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_persistence_failures_total",
			Help: "Number of swaps that could not be persisted",
		},
	)
	return rej, lat, conf, fail
}

func init() {
	ruleRejections, executionLatency, concurrentConflicts, persistenceFailures = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(ruleRejections, executionLatency, concurrentConflicts, persistenceFailures)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	ruleRejections, executionLatency, concurrentConflicts, persistenceFailures = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
