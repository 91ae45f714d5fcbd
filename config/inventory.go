package config

import (
	"fmt"

	"github.com/anhkiet307/swapstation/core/factory"
	"github.com/anhkiet307/swapstation/core/model"
)

// InventoryConfig selects the pin-slot store. Seed slots are upserted at
// startup, which is mostly useful with the memory backend.
type InventoryConfig struct {
	Backend string          `json:"backend"`
	Conf    map[string]any  `json:"conf"`
	Seed    []model.PinSlot `json:"seed"`
}

func (c *InventoryConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

func (c InventoryConfig) Validate() error {
	seen := make(map[int64]bool, len(c.Seed))
	for _, s := range c.Seed {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if seen[s.ID] {
			return fmt.Errorf("seed: duplicate slot id %d", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// Module returns the factory configuration of the backend.
func (c InventoryConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Backend, Conf: c.Conf}
}
