package scenarios

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/anhkiet307/swapstation/core/dispatch"
	"github.com/anhkiet307/swapstation/core/inventory"
	"github.com/anhkiet307/swapstation/core/model"
	"github.com/anhkiet307/swapstation/infra/logger"
	"github.com/anhkiet307/swapstation/infra/metrics"
	"github.com/anhkiet307/swapstation/infra/mqtt"
	"github.com/anhkiet307/swapstation/internal/eventbus"
)

var errInjected = errors.New("injected write fault")

func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	reg := prometheus.NewRegistry()
	dispatch.ResetMetrics(reg)
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	ctx := context.Background()
	store := inventory.NewMemoryStore()
	slots := make([]model.PinSlot, len(sc.Slots))
	for i, s := range sc.Slots {
		slots[i] = s.ToModel()
	}
	if err := inventory.Seed(ctx, store, slots); err != nil {
		t.Fatalf("seed: %v", err)
	}

	engine, err := dispatch.NewEngine(sc.Policy.Apply(dispatch.DefaultPolicy()))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	executor, err := dispatch.NewExecutor(store, dispatch.WithLocker(dispatch.NewMemoryLocker()))
	if err != nil {
		t.Fatalf("executor: %v", err)
	}
	bus := eventbus.New()
	mgr, err := dispatch.NewDispatchManager(store, engine, executor, sink, bus, logger.NopLogger{})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	defer func() { _ = mgr.Close() }()

	pub := mqtt.NewMockNotifier()
	for _, id := range sc.FailNotify {
		pub.FailIDs[id] = true
	}
	mgr.SetNotifier(pub)

	committed := 0
	for i, step := range sc.Steps {
		if step.WriteFault != 0 {
			store.SetWriteFault(step.WriteFault, errInjected)
		}
		res, _ := mgr.Dispatch(ctx, dispatch.Request{SourceID: step.Source, TargetID: step.Target})
		store.SetWriteFault(step.WriteFault, nil)
		if res.State.String() != step.State {
			t.Errorf("scenario %s step %d: expected state %s, got %s (%s)", sc.Name, i, step.State, res.State, res.Error)
		}
		if step.Violation != "" && res.Outcome.Violation().String() != step.Violation {
			t.Errorf("scenario %s step %d: expected violation %s, got %s", sc.Name, i, step.Violation, res.Outcome.Violation())
		}
		if res.State == dispatch.StateCommitted {
			committed++
		}
	}

	if committed != sc.Expected.Committed {
		t.Errorf("scenario %s expected %d committed, got %d", sc.Name, sc.Expected.Committed, committed)
	}
	if n := len(pub.Published); n != sc.Expected.Notified {
		t.Errorf("scenario %s expected %d notified slots, got %d", sc.Name, sc.Expected.Notified, n)
	}
	for _, want := range sc.Expected.Slots {
		got, err := store.FetchSlot(ctx, want.ID)
		if err != nil {
			t.Errorf("scenario %s: fetch slot %d: %v", sc.Name, want.ID, err)
			continue
		}
		if got.ChargePercent != want.Charge || got.HealthPercent != want.Health || got.Version != want.Version {
			t.Errorf("scenario %s slot %d: expected %.1f/%.1f v%d, got %.1f/%.1f v%d", sc.Name, want.ID,
				want.Charge, want.Health, want.Version, got.ChargePercent, got.HealthPercent, got.Version)
		}
	}
}
