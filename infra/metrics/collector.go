package metrics

import (
	"context"

	"github.com/kilianp07/hres/core/engine"
	coremetrics "github.com/kilianp07/hres/core/metrics"
	"github.com/kilianp07/hres/infra/logger"
)

// Source is the part of the engine the collector listens to.
type Source interface {
	Subscribe() <-chan engine.TickEvent
	Unsubscribe(<-chan engine.TickEvent)
	SubscribeLifecycle() <-chan engine.LifecycleEvent
	DroppedEvents() uint64
}

// StartEventCollector forwards engine events to sink until ctx is done or
// the engine closes its subscriptions. The returned channel is closed once
// the collector has stopped.
func StartEventCollector(ctx context.Context, src Source, sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if src == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	ticks := src.Subscribe()
	life := src.SubscribeLifecycle()
	go func() {
		defer close(done)
		defer src.Unsubscribe(ticks)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ticks:
				if !ok {
					return
				}
				rec := coremetrics.TickRecord{RunID: ev.RunID, Sample: ev.Sample, State: ev.State, Duration: ev.Duration}
				if err := sink.RecordTick(rec); err != nil {
					log.Warnf("record tick %d: %v", ev.Sample.Tick, err)
				}
				if r, ok := sink.(coremetrics.DroppedEventsRecorder); ok {
					_ = r.RecordDroppedEvents(src.DroppedEvents())
				}
			case ev, ok := <-life:
				if !ok {
					life = nil
					continue
				}
				if r, ok := sink.(coremetrics.LifecycleRecorder); ok {
					if err := r.RecordLifecycle(coremetrics.LifecycleRecord{RunID: ev.RunID, Kind: string(ev.Kind), Time: ev.Time}); err != nil {
						log.Warnf("record lifecycle %s: %v", ev.Kind, err)
					}
				}
			}
		}
	}()
	return done
}
