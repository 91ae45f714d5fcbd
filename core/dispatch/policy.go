package dispatch

import "fmt"

// Policy holds the thresholds of the eligibility rules, in percent points.
type Policy struct {
	// MinHealthPercent is the lowest health either slot may have.
	MinHealthPercent float64 `json:"min_health_percent"`
	// MaxHealthDivergence bounds |source.health - target.health|.
	MaxHealthDivergence float64 `json:"max_health_divergence"`
	// MinChargePercent is the lowest charge either slot may have.
	MinChargePercent float64 `json:"min_charge_percent"`
	// MaxChargeDivergence bounds |source.charge - target.charge|.
	MaxChargeDivergence float64 `json:"max_charge_divergence"`
	// MaxQualityDivergence bounds the difference of (charge+health)/2.
	MaxQualityDivergence float64 `json:"max_quality_divergence"`
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinHealthPercent:     20,
		MaxHealthDivergence:  70,
		MinChargePercent:     5,
		MaxChargeDivergence:  80,
		MaxQualityDivergence: 60,
	}
}

// Validate checks that every threshold is a percentage.
func (p Policy) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"min_health_percent", p.MinHealthPercent},
		{"max_health_divergence", p.MaxHealthDivergence},
		{"min_charge_percent", p.MinChargePercent},
		{"max_charge_divergence", p.MaxChargeDivergence},
		{"max_quality_divergence", p.MaxQualityDivergence},
	}
	for _, f := range fields {
		if f.v < 0 || f.v > 100 {
			return fmt.Errorf("policy %s must be within [0,100], got %v", f.name, f.v)
		}
	}
	return nil
}
