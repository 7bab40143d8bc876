// Package infra groups the technical adapters around the simulation:
// logging, MQTT bridging and metric sinks. They depend on the core
// packages, never the reverse.
package infra
