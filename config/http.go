package config

import (
	"fmt"
	"time"
)

// HTTPConfig defines the API server settings.
type HTTPConfig struct {
	Addr             string  `json:"addr"`
	RequestTimeoutMS int     `json:"request_timeout_ms"`
	// RateLimit is the number of requests per second accepted by the API.
	// Zero disables limiting.
	RateLimit float64 `json:"rate_limit"`
	Burst     int     `json:"burst"`
	// LogsToken protects GET /api/dispatch/logs. Empty leaves it open.
	LogsToken string `json:"logs_token"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.RequestTimeoutMS == 0 {
		c.RequestTimeoutMS = 10000
	}
	if c.RateLimit > 0 && c.Burst == 0 {
		c.Burst = int(c.RateLimit) + 1
	}
}

func (c HTTPConfig) Validate() error {
	if c.RequestTimeoutMS < 0 {
		return fmt.Errorf("request_timeout_ms must be >= 0")
	}
	if c.RateLimit < 0 || c.Burst < 0 {
		return fmt.Errorf("rate_limit and burst must be >= 0")
	}
	return nil
}

func (c HTTPConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}
