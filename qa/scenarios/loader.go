package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anhkiet307/swapstation/core/dispatch"
	"github.com/anhkiet307/swapstation/core/model"
)

type SlotDef struct {
	ID        int64   `yaml:"id"`
	StationID int64   `yaml:"station_id"`
	Charge    float64 `yaml:"charge"`
	Health    float64 `yaml:"health"`
	Inactive  bool    `yaml:"inactive"`
}

func (s SlotDef) ToModel() model.PinSlot {
	status := model.SlotActive
	if s.Inactive {
		status = model.SlotInactive
	}
	return model.PinSlot{
		ID:            s.ID,
		StationID:     s.StationID,
		ChargePercent: s.Charge,
		HealthPercent: s.Health,
		Status:        status,
	}
}

// PolicyDef overrides individual thresholds of the default policy.
type PolicyDef struct {
	MinHealth      *float64 `yaml:"min_health"`
	MaxHealthDiff  *float64 `yaml:"max_health_divergence"`
	MinCharge      *float64 `yaml:"min_charge"`
	MaxChargeDiff  *float64 `yaml:"max_charge_divergence"`
	MaxQualityDiff *float64 `yaml:"max_quality_divergence"`
}

func (p PolicyDef) Apply(base dispatch.Policy) dispatch.Policy {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&base.MinHealthPercent, p.MinHealth)
	set(&base.MaxHealthDivergence, p.MaxHealthDiff)
	set(&base.MinChargePercent, p.MinCharge)
	set(&base.MaxChargeDivergence, p.MaxChargeDiff)
	set(&base.MaxQualityDivergence, p.MaxQualityDiff)
	return base
}

type StepDef struct {
	Source    int64  `yaml:"source"`
	Target    int64  `yaml:"target"`
	State     string `yaml:"state"`
	Violation string `yaml:"violation,omitempty"`
	// WriteFault makes the write of this slot id fail during the step.
	WriteFault int64 `yaml:"write_fault,omitempty"`
}

type FinalSlot struct {
	ID      int64   `yaml:"id"`
	Charge  float64 `yaml:"charge"`
	Health  float64 `yaml:"health"`
	Version int64   `yaml:"version"`
}

type Expected struct {
	Committed int         `yaml:"committed"`
	Notified  int         `yaml:"notified"`
	Slots     []FinalSlot `yaml:"slots"`
}

type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Policy      PolicyDef `yaml:"policy,omitempty"`
	Slots       []SlotDef `yaml:"slots"`
	Steps       []StepDef `yaml:"steps"`
	// FailNotify lists slot ids whose station notification fails.
	FailNotify []int64  `yaml:"fail_notify,omitempty"`
	Expected   Expected `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
