package model

import (
	"fmt"
	"time"
)

// SlotStatus is the operational status of a pin slot. It is set by station
// operators and never changed by a dispatch.
type SlotStatus string

const (
	SlotActive   SlotStatus = "active"
	SlotInactive SlotStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s SlotStatus) Valid() bool {
	return s == SlotActive || s == SlotInactive
}

// PinSlot represents one physical battery bay of a swap station.
type PinSlot struct {
	ID            int64      `json:"id"`
	StationID     int64      `json:"station_id"`
	ChargePercent float64    `json:"charge_percent"` // 0-100
	HealthPercent float64    `json:"health_percent"` // 0-100
	Status        SlotStatus `json:"status"`

	// Version is incremented by every successful write. A snapshot whose
	// version no longer matches storage is stale.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate reports data-integrity faults. Values are never corrected.
func (s PinSlot) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("slot id must be positive")
	}
	if s.ChargePercent < 0 || s.ChargePercent > 100 {
		return fmt.Errorf("slot %d: charge percent %v out of range", s.ID, s.ChargePercent)
	}
	if s.HealthPercent < 0 || s.HealthPercent > 100 {
		return fmt.Errorf("slot %d: health percent %v out of range", s.ID, s.HealthPercent)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("slot %d: unknown status %q", s.ID, s.Status)
	}
	return nil
}

// Active returns true when the slot may take part in a live exchange.
func (s PinSlot) Active() bool {
	return s.Status == SlotActive
}

// Quality is the composite score (charge + health) / 2.
func (s PinSlot) Quality() float64 {
	return (s.ChargePercent + s.HealthPercent) / 2
}
