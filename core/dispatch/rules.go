package dispatch

import (
	"math"

	"github.com/anhkiet307/swapstation/core/model"
)

// rule returns a rejection when the pair fails it, nil otherwise.
type rule func(p Policy, src, dst *model.PinSlot) *Rejection

// rules are evaluated in this order and the first failure wins. The order
// surfaces the most fundamental conditions first and must not change.
var rules = []rule{
	identityRule,
	statusRule,
	minHealthRule,
	healthDivergenceRule,
	minChargeRule,
	chargeDivergenceRule,
	qualityDivergenceRule,
}

func reject(v Violation, src, dst *model.PinSlot, sv, tv, limit float64) *Rejection {
	return &Rejection{
		Violation:   v,
		SourceID:    src.ID,
		TargetID:    dst.ID,
		SourceValue: sv,
		TargetValue: tv,
		Limit:       limit,
	}
}

func identityRule(_ Policy, src, dst *model.PinSlot) *Rejection {
	if src.ID != dst.ID {
		return nil
	}
	return reject(SameSlot, src, dst, float64(src.ID), float64(dst.ID), 0)
}

func statusRule(_ Policy, src, dst *model.PinSlot) *Rejection {
	if src.Active() && dst.Active() {
		return nil
	}
	r := reject(InactiveSlot, src, dst, 0, 0, 0)
	r.SourceStatus = src.Status
	r.TargetStatus = dst.Status
	return r
}

func minHealthRule(p Policy, src, dst *model.PinSlot) *Rejection {
	if src.HealthPercent >= p.MinHealthPercent && dst.HealthPercent >= p.MinHealthPercent {
		return nil
	}
	return reject(HealthTooLow, src, dst, src.HealthPercent, dst.HealthPercent, p.MinHealthPercent)
}

func healthDivergenceRule(p Policy, src, dst *model.PinSlot) *Rejection {
	if math.Abs(src.HealthPercent-dst.HealthPercent) <= p.MaxHealthDivergence {
		return nil
	}
	return reject(HealthDivergenceTooLarge, src, dst, src.HealthPercent, dst.HealthPercent, p.MaxHealthDivergence)
}

func minChargeRule(p Policy, src, dst *model.PinSlot) *Rejection {
	if src.ChargePercent >= p.MinChargePercent && dst.ChargePercent >= p.MinChargePercent {
		return nil
	}
	return reject(ChargeTooLow, src, dst, src.ChargePercent, dst.ChargePercent, p.MinChargePercent)
}

func chargeDivergenceRule(p Policy, src, dst *model.PinSlot) *Rejection {
	if math.Abs(src.ChargePercent-dst.ChargePercent) <= p.MaxChargeDivergence {
		return nil
	}
	return reject(ChargeDivergenceTooLarge, src, dst, src.ChargePercent, dst.ChargePercent, p.MaxChargeDivergence)
}

func qualityDivergenceRule(p Policy, src, dst *model.PinSlot) *Rejection {
	sq, tq := src.Quality(), dst.Quality()
	if math.Abs(sq-tq) <= p.MaxQualityDivergence {
		return nil
	}
	return reject(QualityDivergenceTooLarge, src, dst, sq, tq, p.MaxQualityDivergence)
}
