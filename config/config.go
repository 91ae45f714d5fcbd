package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/anhkiet307/swapstation/core/dispatch"
	"github.com/anhkiet307/swapstation/core/factory"
	"github.com/anhkiet307/swapstation/core/metrics"
	"github.com/anhkiet307/swapstation/infra/mqtt"
)

type Config struct {
	HTTP      HTTPConfig           `json:"http"`
	Dispatch  dispatch.Config      `json:"dispatch"`
	Inventory InventoryConfig      `json:"inventory"`
	Lock      factory.ModuleConfig `json:"lock"`
	MQTT      mqtt.Config          `json:"mqtt"`
	Metrics   metrics.Config       `json:"metrics"`
	Logging   LoggingConfig        `json:"logging"`
	Sentry    SentryConfig         `json:"sentry"`
	// LogLevel is the minimum zerolog level ("debug", "info", ...).
	LogLevel string `json:"log_level"`
}

// Default returns a configuration running fully in memory.
func Default() *Config {
	cfg := &Config{Dispatch: dispatch.DefaultConfig()}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills every section left empty.
func (c *Config) SetDefaults() {
	c.HTTP.SetDefaults()
	c.Inventory.SetDefaults()
	c.Logging.SetDefaults()
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := c.Dispatch.Validate(); err != nil {
		return err
	}
	if err := c.Inventory.Validate(); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Load reads a yaml or json file, applies K_ environment overrides
// (K_DISPATCH__POLICY__MIN_HEALTH_PERCENT=30), then defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Config{Dispatch: dispatch.DefaultConfig()}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
