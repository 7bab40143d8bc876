// Package app wires the simulation engine to its outer surfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kilianp07/hres/api"
	"github.com/kilianp07/hres/config"
	"github.com/kilianp07/hres/core/engine"
	coremetrics "github.com/kilianp07/hres/core/metrics"
	"github.com/kilianp07/hres/infra/logger"
	"github.com/kilianp07/hres/infra/metrics"
	"github.com/kilianp07/hres/infra/mqtt"
)

// Service owns the engine and every adapter attached to it.
type Service struct {
	cfg    config.Config
	Engine *engine.Engine
	sink   coremetrics.MetricsSink
	mqtt   *mqtt.Client
	api    *api.Server
	log    logger.Logger
}

// New creates a Service from the configuration. Nothing runs until Run.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Setup(cfg.Logging); err != nil {
		return nil, err
	}
	logg := logger.New("service")
	eng, err := engine.New(cfg.Simulation, logger.New("engine"))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = eng.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	svc := &Service{cfg: *cfg, Engine: eng, sink: sink, log: logg}
	if cfg.MQTT.Enabled() {
		client, err := mqtt.NewClient(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqtt = client
		if err := mqtt.NewSettingsSubscriber(eng, client.Config()).Register(client); err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt settings subscriber: %w", err)
		}
	}
	if cfg.API.Enabled() {
		svc.api = api.NewServer(cfg.API, eng)
	}
	return svc, nil
}

// Run starts the adapters, optionally the simulation, and blocks until
// the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)
	goRun := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				s.log.Errorf("%s: %v", name, err)
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	collected := metrics.StartEventCollector(ctx, s.Engine, s.sink, logger.New("collector"))
	if s.mqtt != nil {
		pub := mqtt.NewStatePublisher(s.mqtt, s.mqtt.Config())
		goRun("mqtt state publisher", func(ctx context.Context) error { return pub.Run(ctx, s.Engine) })
	}
	if s.api != nil {
		goRun("api", s.api.Run)
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		goRun("prometheus", func(ctx context.Context) error { return metrics.StartPromServer(ctx, addr) })
	}
	var runErr error
	if s.cfg.Simulation.Autostart {
		if err := s.Engine.Start(); err != nil {
			runErr = fmt.Errorf("start engine: %w", err)
			cancel()
		}
	}
	if runErr == nil {
		s.log.Infof("service running (run %s)", s.Engine.RunID())
		select {
		case <-ctx.Done():
		case runErr = <-errCh:
			cancel()
		}
	}
	s.Engine.Pause()
	wg.Wait()
	<-collected
	return runErr
}

// Close stops the engine and releases every connection.
func (s *Service) Close() error {
	var errs []error
	if s.Engine != nil {
		errs = append(errs, s.Engine.Close())
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if c, ok := s.sink.(coremetrics.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
