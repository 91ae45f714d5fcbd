package dispatch

import (
	"math"
	"testing"

	"github.com/anhkiet307/swapstation/core/model"
)

func slot(id int64, charge, health float64) *model.PinSlot {
	return &model.PinSlot{ID: id, StationID: 1, ChargePercent: charge, HealthPercent: health, Status: model.SlotActive, Version: 1}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultPolicy())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return e
}

func TestEngine_ScenarioA_Approved(t *testing.T) {
	e := newTestEngine(t)
	out, err := e.Evaluate(slot(139, 90, 85), slot(140, 60, 22))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !out.Approved || out.Rejection != nil {
		t.Fatalf("expected approval, got %+v", out.Rejection)
	}
	if out.Violation() != ViolationNone {
		t.Fatalf("expected no violation got %s", out.Violation())
	}
}

func TestEngine_ScenarioB_FirstFailureWins(t *testing.T) {
	e := newTestEngine(t)
	out, _ := e.Evaluate(slot(1, 90, 90), slot(2, 20, 15))
	if out.Approved {
		t.Fatal("expected rejection")
	}
	r := out.Rejection
	if r.Violation != HealthTooLow {
		t.Fatalf("expected health_too_low got %s", r.Violation)
	}
	if r.TargetValue != 15 || r.SourceValue != 90 || r.Limit != 20 {
		t.Fatalf("unexpected values %+v", r)
	}
}

func TestEngine_ScenarioC_SameSlot(t *testing.T) {
	e := newTestEngine(t)
	pairs := [][2]*model.PinSlot{
		{slot(7, 90, 90), slot(7, 90, 90)},
		{slot(7, 0, 0), slot(7, 100, 100)},
		{{ID: 7, Status: model.SlotInactive}, {ID: 7, Status: model.SlotInactive}},
	}
	for _, p := range pairs {
		out, _ := e.Evaluate(p[0], p[1])
		if out.Violation() != SameSlot {
			t.Fatalf("expected same_slot got %s", out.Violation())
		}
		if out.Rejection.SourceValue != 7 || out.Rejection.TargetValue != 7 {
			t.Fatalf("expected slot ids as values: %+v", out.Rejection)
		}
	}
}

func TestEngine_MissingSelection(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Evaluate(nil, slot(1, 50, 50)); err != ErrMissingSelection {
		t.Fatalf("expected ErrMissingSelection got %v", err)
	}
	if _, err := e.Evaluate(slot(1, 50, 50), nil); err != ErrMissingSelection {
		t.Fatalf("expected ErrMissingSelection got %v", err)
	}
}

func TestEngine_InactiveBeatsHealth(t *testing.T) {
	e := newTestEngine(t)
	src := slot(1, 50, 10)
	dst := slot(2, 50, 10)
	dst.Status = model.SlotInactive
	out, _ := e.Evaluate(src, dst)
	if out.Violation() != InactiveSlot {
		t.Fatalf("expected inactive_slot got %s", out.Violation())
	}
	if out.Rejection.TargetStatus != model.SlotInactive || out.Rejection.SourceStatus != model.SlotActive {
		t.Fatalf("statuses not reported: %+v", out.Rejection)
	}
	out, _ = e.Evaluate(dst, src)
	if out.Violation() != InactiveSlot {
		t.Fatalf("expected inactive_slot on swapped pair got %s", out.Violation())
	}
}

func TestEngine_RuleOrder(t *testing.T) {
	e := newTestEngine(t)
	cases := []struct {
		name     string
		src, dst *model.PinSlot
		want     Violation
	}{
		{"health divergence before charge floor", slot(1, 2, 95), slot(2, 50, 21), HealthDivergenceTooLarge},
		{"charge floor before charge divergence", slot(1, 4, 50), slot(2, 90, 50), ChargeTooLow},
		{"charge divergence before quality", slot(1, 5, 100), slot(2, 95, 30), ChargeDivergenceTooLarge},
		{"quality last", slot(1, 10, 30), slot(2, 85, 95), QualityDivergenceTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, _ := e.Evaluate(tc.src, tc.dst)
			if out.Violation() != tc.want {
				t.Fatalf("expected %s got %s", tc.want, out.Violation())
			}
		})
	}
}

func TestEngine_Boundaries(t *testing.T) {
	e := newTestEngine(t)
	below := func(v float64) float64 { return math.Nextafter(v, math.Inf(-1)) }
	above := func(v float64) float64 { return math.Nextafter(v, math.Inf(1)) }
	cases := []struct {
		name     string
		src, dst *model.PinSlot
		want     Violation
	}{
		{"health floor exact", slot(1, 50, 20), slot(2, 50, 40), ViolationNone},
		{"health floor below", slot(1, 50, below(20)), slot(2, 50, 40), HealthTooLow},
		{"health divergence exact", slot(1, 50, 20), slot(2, 50, 90), ViolationNone},
		{"health divergence above", slot(1, 50, 20), slot(2, 50, 90.0001), HealthDivergenceTooLarge},
		{"charge floor exact", slot(1, 5, 60), slot(2, 20, 60), ViolationNone},
		{"charge floor below", slot(1, below(5), 60), slot(2, 20, 60), ChargeTooLow},
		{"charge divergence exact", slot(1, 10, 70), slot(2, 90, 70), ViolationNone},
		{"charge divergence above", slot(1, 10, 70), slot(2, above(90), 70), ChargeDivergenceTooLarge},
		// quality 30 vs 90
		{"quality divergence exact", slot(1, 20, 40), slot(2, 90, 90), ViolationNone},
		{"quality divergence above", slot(1, 20, 40), slot(2, 90, 90.001), QualityDivergenceTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := e.Evaluate(tc.src, tc.dst)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if out.Violation() != tc.want {
				t.Fatalf("expected %s got %s (%+v)", tc.want, out.Violation(), out.Rejection)
			}
			if out.Approved != (tc.want == ViolationNone) {
				t.Fatalf("approved flag inconsistent with violation")
			}
		})
	}
}

func TestEngine_SymmetryAndIdempotence(t *testing.T) {
	e := newTestEngine(t)
	values := []float64{20, 35, 50, 65, 80, 95, 100}
	for _, sc := range values {
		for _, sh := range values {
			for _, tc := range values {
				for _, th := range values {
					a, b := slot(1, sc, sh), slot(2, tc, th)
					ab, _ := e.Evaluate(a, b)
					ba, _ := e.Evaluate(b, a)
					if ab.Approved != ba.Approved || ab.Violation() != ba.Violation() {
						t.Fatalf("asymmetric decision for %+v / %+v: %s vs %s", a, b, ab.Violation(), ba.Violation())
					}
					again, _ := e.Evaluate(a, b)
					if again.Approved != ab.Approved || again.Violation() != ab.Violation() {
						t.Fatalf("evaluation not idempotent for %+v / %+v", a, b)
					}
				}
			}
		}
	}
}

func TestEngine_CustomPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.MinHealthPercent = 50
	e, err := NewEngine(p)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	out, _ := e.Evaluate(slot(139, 90, 85), slot(140, 60, 22))
	if out.Violation() != HealthTooLow || out.Rejection.Limit != 50 {
		t.Fatalf("policy not applied: %+v", out.Rejection)
	}
	if e.Policy() != p {
		t.Fatalf("policy accessor mismatch")
	}
}

func TestNewEngine_InvalidPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.MaxChargeDivergence = 120
	if _, err := NewEngine(p); err == nil {
		t.Fatal("expected invalid policy error")
	}
}

func TestRejection_Message(t *testing.T) {
	e := newTestEngine(t)
	out, _ := e.Evaluate(slot(1, 90, 90), slot(2, 20, 15))
	if msg := out.Rejection.Message(); msg != "health must be at least 20% (source #1: 90, target #2: 15)" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestViolation_TextRoundTrip(t *testing.T) {
	for v := ViolationNone; v <= QualityDivergenceTooLarge; v++ {
		b, _ := v.MarshalText()
		var got Violation
		if err := got.UnmarshalText(b); err != nil || got != v {
			t.Fatalf("round trip %s: got %s err %v", v, got, err)
		}
	}
	var v Violation
	if err := v.UnmarshalText([]byte("bogus")); err == nil {
		t.Fatal("expected error for unknown name")
	}
}
