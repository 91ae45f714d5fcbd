package metrics

// MultiSink fans out records to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDispatchAttempt forwards the event to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordDispatchAttempt(ev DispatchAttemptEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordDispatchAttempt(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordSlotState forwards slot snapshots to sinks that support them.
func (m *MultiSink) RecordSlotState(ev SlotStateEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SlotStateRecorder); ok {
			if err := rec.RecordSlotState(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink exposing a Close method.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
