package metrics

import (
	"context"

	"github.com/anhkiet307/swapstation/core/events"
	"github.com/anhkiet307/swapstation/core/logger"
	coremetrics "github.com/anhkiet307/swapstation/core/metrics"
	"github.com/anhkiet307/swapstation/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records the new state
// of both slots of every committed swap on sinks implementing
// SlotStateRecorder. It stops when the context is canceled or the bus is
// closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.SlotStateRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				e, ok := ev.(events.CommitEvent)
				if !ok {
					continue
				}
				for _, s := range e.After {
					err := rec.RecordSlotState(coremetrics.SlotStateEvent{
						Slot:      s,
						AttemptID: e.AttemptID,
						Component: "dispatch_executor",
						Time:      e.Time,
					})
					if err != nil && log != nil {
						log.Errorf("slot state metrics error: %v", err)
					}
				}
			}
		}
	}()
}
