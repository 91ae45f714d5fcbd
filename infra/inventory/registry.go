package inventory

import (
	"context"
	"fmt"

	"github.com/anhkiet307/swapstation/core/factory"
	core "github.com/anhkiet307/swapstation/core/inventory"
)

type sqliteConf struct {
	Path string `json:"path"`
}

type postgresConf struct {
	DSN     string `json:"dsn"`
	Migrate *bool  `json:"migrate"`
}

func init() {
	_ = core.Register("sqlite", func(m map[string]any) (core.Store, error) {
		var c sqliteConf
		if err := factory.Decode(m, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "pinslots.db"
		}
		return NewSQLiteStore(c.Path)
	})
	_ = core.Register("postgres", func(m map[string]any) (core.Store, error) {
		var c postgresConf
		if err := factory.Decode(m, &c); err != nil {
			return nil, err
		}
		if c.DSN == "" {
			return nil, fmt.Errorf("inventory: postgres requires dsn")
		}
		ctx := context.Background()
		pool, err := NewPool(ctx, c.DSN)
		if err != nil {
			return nil, fmt.Errorf("inventory: connect postgres: %w", err)
		}
		st, err := NewPostgresStore(ctx, pool, c.Migrate == nil || *c.Migrate)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return st, nil
	})
}
