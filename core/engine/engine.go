// Package engine owns the microgrid controller state and drives the tick
// pipeline: settings snapshot, generation, dispatch decision, battery
// update, commit and history append.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/hres/core/controller"
	"github.com/kilianp07/hres/core/generation"
	"github.com/kilianp07/hres/core/history"
	"github.com/kilianp07/hres/core/logger"
	"github.com/kilianp07/hres/core/model"
	"github.com/kilianp07/hres/core/scheduler"
	"github.com/kilianp07/hres/internal/eventbus"
)

// ErrClosed is returned when starting an engine after Close.
var ErrClosed = errors.New("engine closed")

// Engine is the single writer of the controller state. Ticks are
// serialized and atomic: readers never observe a SOC without the matching
// history sample.
type Engine struct {
	cfg   Config
	runID string
	log   logger.Logger

	settingsMu sync.Mutex
	settings   atomic.Pointer[model.Settings]

	mu     sync.RWMutex
	state  model.State
	ring   *history.Ring
	policy controller.Policy
	noise  generation.NoiseSource
	clock  func() time.Time

	lifeMu sync.Mutex
	ticker *scheduler.Ticker
	closed bool

	ticks     *eventbus.TypedBus[TickEvent]
	lifecycle *eventbus.TypedBus[LifecycleEvent]
}

// New builds a stopped engine from cfg. A nil logger discards output.
func New(cfg Config, log logger.Logger) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	var noise generation.NoiseSource = generation.ZeroNoise{}
	if !cfg.DisableNoise {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		noise = generation.NewRandSource(seed)
	}
	e := &Engine{
		cfg:       cfg,
		runID:     uuid.NewString(),
		log:       log,
		ring:      history.NewRing(cfg.HistoryCapacity),
		policy:    controller.NewRuleBased(cfg.Thresholds),
		noise:     noise,
		clock:     time.Now,
		ticks:     eventbus.NewTyped[TickEvent](),
		lifecycle: eventbus.NewTyped[LifecycleEvent](),
	}
	s := cfg.Initial.Clamp()
	e.settings.Store(&s)
	e.state = e.initialState(s)
	t, err := scheduler.New(cfg.TickPeriod(), func(now time.Time) { e.tick(now) })
	if err != nil {
		return nil, err
	}
	e.ticker = t
	return e, nil
}

// RunID identifies this engine instance in published telemetry.
func (e *Engine) RunID() string { return e.runID }

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// SetNoiseSource replaces the perturbation source used by later ticks.
func (e *Engine) SetNoiseSource(n generation.NoiseSource) {
	if n == nil {
		n = generation.ZeroNoise{}
	}
	e.mu.Lock()
	e.noise = n
	e.mu.Unlock()
}

// SetPolicy replaces the dispatch policy used by later ticks.
func (e *Engine) SetPolicy(p controller.Policy) {
	if p == nil {
		return
	}
	e.mu.Lock()
	e.policy = p
	e.mu.Unlock()
}

// SetClock overrides the timestamp source of samples.
func (e *Engine) SetClock(clock func() time.Time) {
	if clock == nil {
		clock = time.Now
	}
	e.mu.Lock()
	e.clock = clock
	e.mu.Unlock()
}

// Start begins periodic ticking. Calling it while running is a no-op.
func (e *Engine) Start() error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if !e.ticker.Start(context.Background()) {
		return nil
	}
	e.setRunning(true)
	e.log.Infof("simulation started (period %s)", e.ticker.Period())
	e.lifecycle.Publish(LifecycleEvent{RunID: e.runID, Kind: LifecycleStarted, Time: time.Now()})
	return nil
}

// Resume is an alias of Start.
func (e *Engine) Resume() error { return e.Start() }

// Pause stops periodic ticking. When it returns no tick is scheduled or
// executing; state and history are kept.
func (e *Engine) Pause() {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if !e.ticker.Stop() {
		return
	}
	e.setRunning(false)
	e.log.Infof("simulation paused at tick %d", e.CurrentState().SimulatedTime)
	e.lifecycle.Publish(LifecycleEvent{RunID: e.runID, Kind: LifecyclePaused, Time: time.Now()})
}

// Running reports whether periodic ticking is active.
func (e *Engine) Running() bool { return e.ticker.Running() }

// Close pauses the engine and closes every subscription.
func (e *Engine) Close() error {
	e.Pause()
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.ticks.Close()
	e.lifecycle.Close()
	return nil
}

// Step runs one tick synchronously and returns its sample.
func (e *Engine) Step() model.Sample {
	e.mu.RLock()
	clock := e.clock
	e.mu.RUnlock()
	return e.tick(clock())
}

// Reset restores the initial SOC from the current settings, zeroes the
// simulated time and clears the history. The running state is kept.
func (e *Engine) Reset() {
	s := e.Settings()
	e.mu.Lock()
	running := e.state.Running
	e.state = e.initialState(s)
	e.state.Running = running
	e.ring.Reset()
	e.mu.Unlock()
	e.log.Infof("simulation reset to soc %.1f%%", s.InitialSOCPct)
	e.lifecycle.Publish(LifecycleEvent{RunID: e.runID, Kind: LifecycleReset, Time: time.Now()})
}

// CurrentState returns a copy of the state committed by the last tick.
func (e *Engine) CurrentState() model.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateLocked()
}

// History returns the buffered samples, oldest first.
func (e *Engine) History() []model.Sample {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ring.Samples()
}

// Snapshot returns state and history taken between the same two ticks.
func (e *Engine) Snapshot() (model.State, []model.Sample) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateLocked(), e.ring.Samples()
}

// Subscribe returns a channel receiving every TickEvent. Slow readers
// miss events instead of delaying ticks.
func (e *Engine) Subscribe() <-chan TickEvent { return e.ticks.Subscribe() }

// Unsubscribe releases a channel obtained from Subscribe.
func (e *Engine) Unsubscribe(ch <-chan TickEvent) { e.ticks.Unsubscribe(ch) }

// SubscribeLifecycle returns a channel receiving start/pause/reset events.
func (e *Engine) SubscribeLifecycle() <-chan LifecycleEvent { return e.lifecycle.Subscribe() }

// DroppedEvents counts tick events skipped because a subscriber was full.
func (e *Engine) DroppedEvents() uint64 { return e.ticks.Dropped() }

func (e *Engine) tick(now time.Time) model.Sample {
	started := time.Now()
	s := *e.settings.Load()

	e.mu.Lock()
	reading := generation.Generate(s, e.noise)
	net := reading.NetLoadKW()
	d := e.policy.Decide(net, e.state.SOCPct, s.GridPrice)
	soc := model.ClampSOC(d.NewSOC)
	next := e.state.SimulatedTime + 1
	sample := model.NewSample(next, now, reading.SolarKW, reading.WindKW, reading.LoadKW,
		soc, s.GridPrice, net, d.Action, d.Status)

	e.state.SOCPct = soc
	e.state.Status = d.Status
	e.state.Reason = d.Reason
	e.state.GridActive = d.UseGrid
	e.state.HighCostAlert = model.IsHighCost(d.UseGrid, s.GridPrice)
	e.state.SimulatedTime = next
	last := sample
	e.state.LastSample = &last
	e.ring.Append(sample)
	st := e.stateLocked()
	e.mu.Unlock()

	ev := TickEvent{RunID: e.runID, State: st, Sample: sample, Duration: time.Since(started)}
	e.log.Debugw("tick", map[string]any{
		"tick":        next,
		"solar_kw":    sample.SolarKW,
		"wind_kw":     sample.WindKW,
		"load_kw":     sample.LoadKW,
		"net_load_kw": sample.NetLoadKW,
		"soc_pct":     sample.SOCPct,
		"status":      d.Status.String(),
		"grid_active": d.UseGrid,
	})
	e.ticks.Publish(ev)
	return sample
}

func (e *Engine) initialState(s model.Settings) model.State {
	return model.State{
		RunID:  e.runID,
		SOCPct: s.InitialSOCPct,
		Status: model.StatusIdle,
		Reason: model.InitialReason,
	}
}

func (e *Engine) stateLocked() model.State {
	st := e.state
	if st.LastSample != nil {
		cp := *st.LastSample
		st.LastSample = &cp
	}
	return st
}

func (e *Engine) setRunning(v bool) {
	e.mu.Lock()
	e.state.Running = v
	e.mu.Unlock()
}
