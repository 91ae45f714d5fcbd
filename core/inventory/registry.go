package inventory

import (
	"context"
	"fmt"

	"github.com/anhkiet307/swapstation/core/factory"
	"github.com/anhkiet307/swapstation/core/model"
)

var storeRegistry = factory.NewRegistry[Store]("inventory")

func init() {
	_ = Register("memory", func(map[string]any) (Store, error) {
		return NewMemoryStore(), nil
	})
}

// Register adds an inventory backend factory identified by name.
func Register(name string, f factory.Factory[Store]) error {
	return storeRegistry.Register(name, f)
}

// New builds the inventory backend selected by cfg.Type.
func New(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	return storeRegistry.Create(cfg)
}

// Seed upserts the given slots into the store.
func Seed(ctx context.Context, st Store, slots []model.PinSlot) error {
	for _, s := range slots {
		if _, err := st.Upsert(ctx, s); err != nil {
			return fmt.Errorf("seed slot %d: %w", s.ID, err)
		}
	}
	return nil
}
