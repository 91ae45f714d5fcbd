package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/anhkiet307/swapstation/core/metrics"
)

// PromSink records dispatch attempts and slot snapshots in Prometheus metrics.
type PromSink struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	charge   *prometheus.GaugeVec
	health   *prometheus.GaugeVec
}

// NewPromSink registers the sink metrics on the default Prometheus registerer.
// The /metrics server is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_attempts_total",
		Help: "Total number of finished dispatch attempts",
	}, []string{"state", "violation"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_attempt_duration_seconds",
		Help:    "Time from selection to the final state of an attempt",
		Buckets: prometheus.DefBuckets,
	}, []string{"state"})
	charge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pinslot_charge_percent",
		Help: "Charge of a pin slot after its last swap",
	}, []string{"station_id", "slot_id"})
	health := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pinslot_health_percent",
		Help: "Health of a pin slot after its last swap",
	}, []string{"station_id", "slot_id"})

	var err error
	if attempts, err = register(reg, attempts); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if charge, err = register(reg, charge); err != nil {
		return nil, err
	}
	if health, err = register(reg, health); err != nil {
		return nil, err
	}
	return &PromSink{attempts: attempts, latency: latency, charge: charge, health: health}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDispatchAttempt counts the attempt and observes its duration.
func (s *PromSink) RecordDispatchAttempt(ev coremetrics.DispatchAttemptEvent) error {
	s.attempts.WithLabelValues(ev.State, ev.Violation).Inc()
	s.latency.WithLabelValues(ev.State).Observe(ev.Latency.Seconds())
	return nil
}

// RecordSlotState sets the charge and health gauges of the slot.
func (s *PromSink) RecordSlotState(ev coremetrics.SlotStateEvent) error {
	station := strconv.FormatInt(ev.Slot.StationID, 10)
	id := strconv.FormatInt(ev.Slot.ID, 10)
	s.charge.WithLabelValues(station, id).Set(ev.Slot.ChargePercent)
	s.health.WithLabelValues(station, id).Set(ev.Slot.HealthPercent)
	return nil
}
