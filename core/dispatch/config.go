package dispatch

import (
	"fmt"
	"time"
)

// Config defines dispatch-related settings.
type Config struct {
	Policy           Policy `json:"policy"`
	ExecuteTimeoutMS int    `json:"execute_timeout_ms"`
	HistorySize      int    `json:"history_size"`
}

// DefaultConfig returns the default policy, a 5s execute timeout and a
// history of 100 results.
func DefaultConfig() Config {
	return Config{Policy: DefaultPolicy(), ExecuteTimeoutMS: 5000, HistorySize: 100}
}

// ExecuteTimeout converts ExecuteTimeoutMS to a duration.
func (c Config) ExecuteTimeout() time.Duration {
	return time.Duration(c.ExecuteTimeoutMS) * time.Millisecond
}

// Validate checks the policy and numeric bounds.
func (c Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if c.ExecuteTimeoutMS < 0 {
		return fmt.Errorf("dispatch: execute_timeout_ms must be >= 0")
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("dispatch: history_size must be >= 0")
	}
	return nil
}
