package dispatch

import (
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.ExecuteTimeout() != 5*time.Second {
		t.Fatalf("unexpected timeout %v", c.ExecuteTimeout())
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"negative timeout", func(c *Config) { c.ExecuteTimeoutMS = -1 }},
		{"negative history", func(c *Config) { c.HistorySize = -1 }},
		{"policy above 100", func(c *Config) { c.Policy.MinHealthPercent = 101 }},
		{"policy negative", func(c *Config) { c.Policy.MaxQualityDivergence = -0.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConfig()
			tc.mut(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
