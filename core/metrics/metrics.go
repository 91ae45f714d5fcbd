package metrics

import (
	"time"

	"github.com/anhkiet307/swapstation/core/model"
)

// DispatchAttemptEvent is recorded once per finished dispatch attempt.
type DispatchAttemptEvent struct {
	AttemptID string
	SourceID  int64
	TargetID  int64
	StationID int64
	State     string
	Violation string
	Latency   time.Duration
	Error     string
	Time      time.Time
}

// MetricsSink records dispatch attempts for observability purposes.
type MetricsSink interface {
	RecordDispatchAttempt(ev DispatchAttemptEvent) error
}

// SlotStateEvent is a snapshot of a pin slot after a swap.
type SlotStateEvent struct {
	Slot      model.PinSlot
	AttemptID string
	Component string
	Time      time.Time
}

// SlotStateRecorder records slot snapshots.
type SlotStateRecorder interface {
	RecordSlotState(ev SlotStateEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordDispatchAttempt(DispatchAttemptEvent) error { return nil }
func (NopSink) RecordSlotState(SlotStateEvent) error             { return nil }
