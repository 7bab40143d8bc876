package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/hres/core/metrics"
	"github.com/kilianp07/hres/core/model"
)

// PromSink exposes the latest tick as gauges and counts ticks by status.
type PromSink struct {
	soc        prometheus.Gauge
	power      *prometheus.GaugeVec
	netLoad    prometheus.Gauge
	gridPrice  prometheus.Gauge
	gridActive prometheus.Gauge
	simTime    prometheus.Gauge
	ticks      *prometheus.CounterVec
	duration   prometheus.Histogram
	lifecycle  *prometheus.CounterVec
	dropped    prometheus.Gauge
}

// NewPromSink registers the microgrid metrics on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on reg. A nil registerer
// defaults to the global one. Collectors already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		soc: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "microgrid_battery_soc_percent",
			Help: "Battery state of charge after the last tick",
		}),
		power: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "microgrid_power_kw",
			Help: "Instantaneous power of the last tick by source",
		}, []string{"source"}),
		netLoad: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "microgrid_net_load_kw",
			Help: "Load minus generation; positive is a deficit",
		}),
		gridPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "microgrid_grid_price",
			Help: "Grid price per kWh used by the last tick",
		}),
		gridActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "microgrid_grid_active",
			Help: "1 while importing from the grid",
		}),
		simTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "microgrid_simulated_time_ticks",
			Help: "Simulated time counter",
		}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "microgrid_ticks_total",
			Help: "Number of ticks by dispatch status",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "microgrid_tick_duration_seconds",
			Help:    "Time spent computing a tick",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		lifecycle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "microgrid_lifecycle_events_total",
			Help: "Start, pause and reset transitions",
		}, []string{"kind"}),
		dropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "microgrid_dropped_tick_events",
			Help: "Tick events missed by slow consumers",
		}),
	}
	var err error
	if s.soc, err = register(reg, s.soc); err != nil {
		return nil, err
	}
	if s.power, err = register(reg, s.power); err != nil {
		return nil, err
	}
	if s.netLoad, err = register(reg, s.netLoad); err != nil {
		return nil, err
	}
	if s.gridPrice, err = register(reg, s.gridPrice); err != nil {
		return nil, err
	}
	if s.gridActive, err = register(reg, s.gridActive); err != nil {
		return nil, err
	}
	if s.simTime, err = register(reg, s.simTime); err != nil {
		return nil, err
	}
	if s.ticks, err = register(reg, s.ticks); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.lifecycle, err = register(reg, s.lifecycle); err != nil {
		return nil, err
	}
	if s.dropped, err = register(reg, s.dropped); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the collector already registered under the same
// descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register prometheus collector: %w", err)
	}
	return c, nil
}

// RecordTick updates the gauges and counters from one tick.
func (s *PromSink) RecordTick(rec coremetrics.TickRecord) error {
	smp := rec.Sample
	s.soc.Set(rec.State.SOCPct)
	s.power.WithLabelValues("solar").Set(smp.SolarKW)
	s.power.WithLabelValues("wind").Set(smp.WindKW)
	s.power.WithLabelValues("load").Set(smp.LoadKW)
	s.netLoad.Set(smp.NetLoadKW)
	s.gridPrice.Set(smp.GridPrice)
	s.gridActive.Set(boolToFloat(rec.State.GridActive))
	s.simTime.Set(float64(rec.State.SimulatedTime))
	s.ticks.WithLabelValues(statusLabel(smp.Status)).Inc()
	s.duration.Observe(rec.Duration.Seconds())
	return nil
}

// RecordLifecycle counts lifecycle transitions.
func (s *PromSink) RecordLifecycle(rec coremetrics.LifecycleRecord) error {
	s.lifecycle.WithLabelValues(rec.Kind).Inc()
	return nil
}

// RecordDroppedEvents publishes the dropped event total.
func (s *PromSink) RecordDroppedEvents(total uint64) error {
	s.dropped.Set(float64(total))
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func statusLabel(st model.Status) string {
	switch st {
	case model.StatusCharging:
		return "charging"
	case model.StatusDischarging:
		return "discharging"
	case model.StatusUsingGrid:
		return "using_grid"
	case model.StatusForcedGrid:
		return "forced_grid"
	case model.StatusBatteryLimitReached:
		return "battery_limit_reached"
	default:
		return "idle"
	}
}
