package metrics

import "github.com/anhkiet307/swapstation/core/factory"

// Config defines settings for metrics sinks. PrometheusPort, when set,
// starts a dedicated /metrics server.
type Config struct {
	Sinks          []factory.ModuleConfig `json:"sinks"`
	PrometheusPort string                 `json:"prometheus_port"`
}
