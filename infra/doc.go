// Package infra holds the adapters behind the core interfaces: pin-slot
// stores, distributed locks, MQTT station notifiers, metrics sinks, logging
// and error monitoring.
package infra
