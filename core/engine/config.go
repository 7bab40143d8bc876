package engine

import (
	"fmt"
	"time"

	"github.com/kilianp07/hres/core/controller"
	"github.com/kilianp07/hres/core/history"
	"github.com/kilianp07/hres/core/model"
)

// Config defines the simulation parameters.
type Config struct {
	// TickPeriodMS is the wall-clock interval between ticks.
	TickPeriodMS int `json:"tick_period_ms"`
	// HistoryCapacity bounds the telemetry ring.
	HistoryCapacity int `json:"history_capacity"`
	// Seed feeds the noise generator; 0 picks a time based seed.
	Seed int64 `json:"seed"`
	// Autostart starts ticking as soon as the service runs.
	Autostart bool `json:"autostart"`
	// DisableNoise turns every perturbation off.
	DisableNoise bool                  `json:"disable_noise"`
	Thresholds   controller.Thresholds `json:"thresholds"`
	Initial      model.Settings        `json:"initial"`
}

// DefaultConfig returns the reference cadence and limits.
func DefaultConfig() Config {
	c := Config{Autostart: true}
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.TickPeriodMS <= 0 {
		c.TickPeriodMS = 1000
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = history.DefaultCapacity
	}
	if c.Thresholds == (controller.Thresholds{}) {
		c.Thresholds = controller.DefaultThresholds()
	}
	if c.Initial == (model.Settings{}) {
		c.Initial = model.DefaultSettings()
	}
}

// Validate checks the configuration after defaults were applied.
func (c Config) Validate() error {
	if c.TickPeriodMS <= 0 {
		return fmt.Errorf("tick_period_ms must be positive")
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("history_capacity must be positive")
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	return nil
}

// TickPeriod returns TickPeriodMS as a duration.
func (c Config) TickPeriod() time.Duration {
	return time.Duration(c.TickPeriodMS) * time.Millisecond
}
