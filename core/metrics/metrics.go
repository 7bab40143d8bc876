package metrics

import (
	"time"

	"github.com/kilianp07/hres/core/factory"
	"github.com/kilianp07/hres/core/model"
)

// Config lists the sinks to build.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr exposes /metrics when non-empty.
	PrometheusAddr string `json:"prometheus_addr"`
}

// TickRecord is one committed simulation tick.
type TickRecord struct {
	RunID    string
	Sample   model.Sample
	State    model.State
	Duration time.Duration
}

// MetricsSink records simulation ticks.
type MetricsSink interface {
	RecordTick(rec TickRecord) error
}

// LifecycleRecord captures a start, pause or reset.
type LifecycleRecord struct {
	RunID string
	Kind  string
	Time  time.Time
}

// LifecycleRecorder is implemented by sinks tracking lifecycle changes.
type LifecycleRecorder interface {
	RecordLifecycle(rec LifecycleRecord) error
}

// DroppedEventsRecorder is implemented by sinks exposing how many tick
// events consumers missed.
type DroppedEventsRecorder interface {
	RecordDroppedEvents(total uint64) error
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTick(TickRecord) error           { return nil }
func (NopSink) RecordLifecycle(LifecycleRecord) error { return nil }
func (NopSink) RecordDroppedEvents(uint64) error      { return nil }
