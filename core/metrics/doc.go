// Package metrics defines the sinks recording every simulation tick for
// observability. Implementations (Prometheus, InfluxDB) live in
// infra/metrics and register themselves in the sink factory, so the set of
// sinks is chosen through configuration. Several configured sinks are
// combined into a MultiSink.
package metrics
