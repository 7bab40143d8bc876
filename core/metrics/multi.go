package metrics

import "errors"

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink combines sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTick forwards to every sink. All sinks are called; the errors are
// joined.
func (m *MultiSink) RecordTick(rec TickRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordTick(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordLifecycle forwards to sinks implementing LifecycleRecorder.
func (m *MultiSink) RecordLifecycle(rec LifecycleRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(LifecycleRecorder); ok {
			if err := r.RecordLifecycle(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordDroppedEvents forwards to sinks implementing DroppedEventsRecorder.
func (m *MultiSink) RecordDroppedEvents(total uint64) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(DroppedEventsRecorder); ok {
			if err := r.RecordDroppedEvents(total); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink implementing Closer.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
