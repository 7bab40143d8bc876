package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/hres/core/metrics"
	"github.com/kilianp07/hres/infra/logger"
)

// InfluxConfig holds the InfluxDB v2 connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes one point per tick using the blocking write API.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings InfluxDB and returns a NopSink when the
// health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// TickPoint converts a tick into its line protocol point.
func TickPoint(rec coremetrics.TickRecord) *write.Point {
	smp := rec.Sample
	return write.NewPointWithMeasurement("microgrid_tick").
		AddTag("run_id", rec.RunID).
		AddTag("status", smp.Status.String()).
		AddTag("action", smp.Action.String()).
		AddField("tick", smp.Tick).
		AddField("solar_kw", smp.SolarKW).
		AddField("wind_kw", smp.WindKW).
		AddField("load_kw", smp.LoadKW).
		AddField("net_load_kw", smp.NetLoadKW).
		AddField("soc_pct", smp.SOCPct).
		AddField("grid_price", smp.GridPrice).
		AddField("grid_active", rec.State.GridActive).
		SetTime(smp.Timestamp)
}

// RecordTick writes the tick point.
func (s *InfluxSink) RecordTick(rec coremetrics.TickRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, TickPoint(rec))
}

// RecordLifecycle writes a lifecycle event point.
func (s *InfluxSink) RecordLifecycle(rec coremetrics.LifecycleRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("microgrid_lifecycle").
		AddTag("run_id", rec.RunID).
		AddTag("kind", rec.Kind).
		AddField("count", 1).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

// String identifies the sink in logs.
func (s *InfluxSink) String() string {
	return "influx(" + s.client.ServerURL() + ")"
}

