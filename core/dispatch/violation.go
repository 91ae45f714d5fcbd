package dispatch

import (
	"fmt"
	"math"

	"github.com/anhkiet307/swapstation/core/model"
)

// Violation identifies the eligibility rule that rejected a pair.
type Violation int

const (
	ViolationNone Violation = iota
	SameSlot
	InactiveSlot
	HealthTooLow
	HealthDivergenceTooLarge
	ChargeTooLow
	ChargeDivergenceTooLarge
	QualityDivergenceTooLarge
)

var violationNames = map[Violation]string{
	ViolationNone:             "none",
	SameSlot:                  "same_slot",
	InactiveSlot:              "inactive_slot",
	HealthTooLow:              "health_too_low",
	HealthDivergenceTooLarge:  "health_divergence_too_large",
	ChargeTooLow:              "charge_too_low",
	ChargeDivergenceTooLarge:  "charge_divergence_too_large",
	QualityDivergenceTooLarge: "quality_divergence_too_large",
}

func (v Violation) String() string {
	if s, ok := violationNames[v]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes the violation by name.
func (v Violation) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a violation name.
func (v *Violation) UnmarshalText(b []byte) error {
	for k, name := range violationNames {
		if name == string(b) {
			*v = k
			return nil
		}
	}
	return fmt.Errorf("unknown violation %q", b)
}

// Rejection describes why a pair was refused. SourceValue and TargetValue
// are the two compared values of the failing rule (slot ids for SameSlot,
// composite quality for QualityDivergenceTooLarge) and Limit is the policy
// threshold that was crossed.
type Rejection struct {
	Violation    Violation        `json:"violation"`
	SourceID     int64            `json:"source_id"`
	TargetID     int64            `json:"target_id"`
	SourceValue  float64          `json:"source_value"`
	TargetValue  float64          `json:"target_value"`
	Limit        float64          `json:"limit"`
	SourceStatus model.SlotStatus `json:"source_status,omitempty"`
	TargetStatus model.SlotStatus `json:"target_status,omitempty"`
}

// Message renders a short operator-facing explanation.
func (r Rejection) Message() string {
	pair := fmt.Sprintf("source #%d: %g, target #%d: %g", r.SourceID, r.SourceValue, r.TargetID, r.TargetValue)
	diff := math.Abs(r.SourceValue - r.TargetValue)
	switch r.Violation {
	case SameSlot:
		return fmt.Sprintf("slot #%d cannot be dispatched against itself", r.SourceID)
	case InactiveSlot:
		return fmt.Sprintf("both slots must be active (source #%d: %s, target #%d: %s)", r.SourceID, r.SourceStatus, r.TargetID, r.TargetStatus)
	case HealthTooLow:
		return fmt.Sprintf("health must be at least %g%% (%s)", r.Limit, pair)
	case HealthDivergenceTooLarge:
		return fmt.Sprintf("health difference %g exceeds %g (%s)", diff, r.Limit, pair)
	case ChargeTooLow:
		return fmt.Sprintf("charge must be at least %g%% (%s)", r.Limit, pair)
	case ChargeDivergenceTooLarge:
		return fmt.Sprintf("charge difference %g exceeds %g (%s)", diff, r.Limit, pair)
	case QualityDivergenceTooLarge:
		return fmt.Sprintf("quality difference %g exceeds %g (%s)", diff, r.Limit, pair)
	default:
		return r.Violation.String()
	}
}

// Outcome is the result of one evaluation. Rejection is set iff Approved is
// false.
type Outcome struct {
	Approved  bool       `json:"approved"`
	Rejection *Rejection `json:"rejection,omitempty"`
}

// Violation returns the rejecting rule or ViolationNone.
func (o Outcome) Violation() Violation {
	if o.Rejection == nil {
		return ViolationNone
	}
	return o.Rejection.Violation
}
