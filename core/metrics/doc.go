// Package metrics defines the sink interfaces used to record dispatch
// attempts and slot snapshots. Concrete sinks (Prometheus, InfluxDB) live in
// infra/metrics and register themselves by name; NewMetricsSink returns a
// MultiSink when several sinks are configured.
package metrics
