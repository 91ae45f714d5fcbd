package logging

import "github.com/anhkiet307/swapstation/core/factory"

var storeRegistry = factory.NewRegistry[LogStore]("audit log")

func init() {
	_ = Register("jsonl", func(conf map[string]any) (LogStore, error) {
		var c struct {
			Path       string `json:"path"`
			MaxSizeMB  int    `json:"max_size_mb"`
			MaxBackups int    `json:"max_backups"`
			MaxAgeDays int    `json:"max_age_days"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "dispatch.jsonl"
		}
		if c.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
		}
		return NewJSONLStore(c.Path)
	})
	_ = Register("sqlite", func(conf map[string]any) (LogStore, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "dispatch_logs.db"
		}
		return NewSQLiteStore(c.Path)
	})
}

// Register adds an audit log backend factory identified by name.
func Register(name string, f factory.Factory[LogStore]) error {
	return storeRegistry.Register(name, f)
}

// New builds the configured LogStore. An empty type disables the audit log
// and returns nil.
func New(cfg factory.ModuleConfig) (LogStore, error) {
	if cfg.Type == "" {
		return nil, nil
	}
	return storeRegistry.Create(cfg)
}
