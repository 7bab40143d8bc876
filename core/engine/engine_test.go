package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hres/core/controller"
	"github.com/kilianp07/hres/core/generation"
	"github.com/kilianp07/hres/core/model"
)

func newTestEngine(t *testing.T, s model.Settings) *Engine {
	t.Helper()
	e, err := New(Config{TickPeriodMS: 5, DisableNoise: true, Initial: s}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name       string
		settings   model.Settings
		status     model.Status
		gridActive bool
		soc        float64
		action     model.Action
	}{
		{"A surplus charges", model.Settings{SolarIntensityPct: 100, WindSpeedPct: 100, LoadDemandKW: 40, GridPrice: 1500, InitialSOCPct: 50}, model.StatusCharging, false, 52.5, model.ActionCharge},
		{"B expensive deficit discharges", model.Settings{LoadDemandKW: 40, GridPrice: 1500, InitialSOCPct: 50}, model.StatusDischarging, false, 48, model.ActionDischarge},
		{"C cheap deficit uses grid", model.Settings{LoadDemandKW: 40, GridPrice: 1200, InitialSOCPct: 50}, model.StatusUsingGrid, true, 50, model.ActionIdle},
		{"D critical battery forces grid", model.Settings{LoadDemandKW: 40, GridPrice: 1500, InitialSOCPct: 15}, model.StatusForcedGrid, true, 15, model.ActionIdle},
		{"E limit reached", model.Settings{SolarIntensityPct: 50, LoadDemandKW: 10, GridPrice: 1000, InitialSOCPct: 85}, model.StatusBatteryLimitReached, false, 85, model.ActionIdle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, tt.settings)
			sample := e.Step()
			st := e.CurrentState()
			assert.Equal(t, tt.status, st.Status)
			assert.Equal(t, tt.gridActive, st.GridActive)
			assert.InDelta(t, tt.soc, st.SOCPct, 1e-9)
			assert.Equal(t, int64(1), st.SimulatedTime)
			assert.Equal(t, tt.action, sample.Action)
			assert.Equal(t, tt.status, sample.Status)
			require.NotNil(t, st.LastSample)
			assert.Equal(t, sample, *st.LastSample)
		})
	}
}

func TestScenarioDHighCostAlert(t *testing.T) {
	e := newTestEngine(t, model.Settings{LoadDemandKW: 40, GridPrice: 1500, InitialSOCPct: 15})
	e.Step()
	assert.True(t, e.CurrentState().HighCostAlert)

	e.SetGridPrice(1200)
	e.Step()
	assert.False(t, e.CurrentState().HighCostAlert)
}

func TestInitialState(t *testing.T) {
	e := newTestEngine(t, model.DefaultSettings())
	st := e.CurrentState()
	assert.Equal(t, model.StatusIdle, st.Status)
	assert.Equal(t, model.InitialReason, st.Reason)
	assert.Equal(t, 50.0, st.SOCPct)
	assert.Equal(t, e.RunID(), st.RunID)
	assert.Nil(t, st.LastSample)
	assert.Empty(t, e.History())
}

func TestSOCStaysInBounds(t *testing.T) {
	e, err := New(Config{Seed: 11, Initial: model.Settings{LoadDemandKW: 120, GridPrice: 2000, InitialSOCPct: 99}}, nil)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()
	settings := []model.Settings{
		{SolarIntensityPct: 100, WindSpeedPct: 100, LoadDemandKW: 10, GridPrice: 1000},
		{LoadDemandKW: 120, GridPrice: 2000},
		{SolarIntensityPct: 30, WindSpeedPct: 70, LoadDemandKW: 55, GridPrice: 1500},
	}
	for i := 0; i < 3000; i++ {
		s := settings[(i/97)%len(settings)]
		s.InitialSOCPct = 50
		e.UpdateSettings(s)
		prev := e.CurrentState().SOCPct
		e.Step()
		soc := e.CurrentState().SOCPct
		require.GreaterOrEqual(t, soc, 0.0)
		require.LessOrEqual(t, soc, 100.0)
		// |delta| <= (120 + noise) / 100 * 5
		require.LessOrEqual(t, math.Abs(soc-prev), 7.0)
	}
}

func TestHistoryKeepsLast30(t *testing.T) {
	e := newTestEngine(t, model.DefaultSettings())
	for i := 0; i < 47; i++ {
		e.Step()
	}
	h := e.History()
	require.Len(t, h, 30)
	for i, s := range h {
		assert.Equal(t, int64(18+i), s.Tick)
	}
	st, hist := e.Snapshot()
	assert.Equal(t, st.SimulatedTime, hist[len(hist)-1].Tick)
}

func TestSampleTimestampFromClock(t *testing.T) {
	e := newTestEngine(t, model.DefaultSettings())
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return at })
	assert.Equal(t, at, e.Step().Timestamp)
}

func TestSettersClamp(t *testing.T) {
	e := newTestEngine(t, model.DefaultSettings())
	assert.Equal(t, 100.0, e.SetSolarIntensity(150))
	assert.Equal(t, 0.0, e.SetWindSpeed(-1))
	assert.Equal(t, 10.0, e.SetLoadDemand(3))
	assert.Equal(t, 1300.0, e.SetGridPrice(1310))
	assert.Equal(t, 100.0, e.SetInitialSOC(300))

	s := e.Settings()
	assert.Equal(t, model.Settings{SolarIntensityPct: 100, WindSpeedPct: 0, LoadDemandKW: 10, GridPrice: 1300, InitialSOCPct: 100}, s)
}

func TestNextTickSeesNewSettings(t *testing.T) {
	e := newTestEngine(t, model.Settings{LoadDemandKW: 40, GridPrice: 1500, InitialSOCPct: 50})
	assert.Equal(t, model.StatusDischarging, e.Step().Status)
	e.SetGridPrice(1000)
	assert.Equal(t, model.StatusUsingGrid, e.Step().Status)
	e.SetSolarIntensity(100)
	assert.Equal(t, model.StatusCharging, e.Step().Status)
}

func TestInitialSOCBeforeAndAfterFirstTick(t *testing.T) {
	e := newTestEngine(t, model.Settings{LoadDemandKW: 40, GridPrice: 1000, InitialSOCPct: 50})
	e.SetInitialSOC(70)
	assert.Equal(t, 70.0, e.CurrentState().SOCPct)
	e.Step()
	e.SetInitialSOC(30)
	assert.Equal(t, 70.0, e.CurrentState().SOCPct)
	e.Reset()
	assert.Equal(t, 30.0, e.CurrentState().SOCPct)
}

func TestReset(t *testing.T) {
	e := newTestEngine(t, model.Settings{SolarIntensityPct: 100, LoadDemandKW: 10, GridPrice: 1500, InitialSOCPct: 40})
	for i := 0; i < 5; i++ {
		e.Step()
	}
	require.Greater(t, e.CurrentState().SOCPct, 40.0)
	e.Reset()
	st := e.CurrentState()
	assert.Equal(t, 40.0, st.SOCPct)
	assert.Equal(t, int64(0), st.SimulatedTime)
	assert.Equal(t, model.StatusIdle, st.Status)
	assert.Empty(t, e.History())
}

func TestStartPauseResume(t *testing.T) {
	e := newTestEngine(t, model.DefaultSettings())
	life := e.SubscribeLifecycle()

	require.NoError(t, e.Start())
	require.NoError(t, e.Start())
	assert.True(t, e.Running())
	assert.True(t, e.CurrentState().Running)
	assert.Equal(t, LifecycleStarted, (<-life).Kind)

	require.Eventually(t, func() bool { return e.CurrentState().SimulatedTime >= 3 }, time.Second, time.Millisecond)
	e.Pause()
	e.Pause()
	assert.Equal(t, LifecyclePaused, (<-life).Kind)
	assert.False(t, e.CurrentState().Running)

	paused := e.CurrentState().SimulatedTime
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, paused, e.CurrentState().SimulatedTime, "no tick after pause")
	assert.Len(t, e.History(), int(min(paused, 30)))

	require.NoError(t, e.Resume())
	require.Eventually(t, func() bool { return e.CurrentState().SimulatedTime > paused }, time.Second, time.Millisecond)
}

func TestTicksAreAtomicForReaders(t *testing.T) {
	e := newTestEngine(t, model.DefaultSettings())
	e.SetNoiseSource(generation.NewRandSource(3))
	require.NoError(t, e.Start())
	deadline := time.Now().Add(60 * time.Millisecond)
	for time.Now().Before(deadline) {
		st, hist := e.Snapshot()
		if st.SimulatedTime == 0 {
			continue
		}
		last := hist[len(hist)-1]
		require.Equal(t, st.SimulatedTime, last.Tick)
		require.Equal(t, model.Round(st.SOCPct, 1), last.SOCPct)
	}
}

func TestSubscribeReceivesTicks(t *testing.T) {
	e := newTestEngine(t, model.DefaultSettings())
	ch := e.Subscribe()
	s := e.Step()
	ev := <-ch
	assert.Equal(t, s, ev.Sample)
	assert.Equal(t, e.RunID(), ev.RunID)
	assert.Equal(t, int64(1), ev.State.SimulatedTime)
	e.Unsubscribe(ch)
}

func TestCloseStopsAndRejectsStart(t *testing.T) {
	e := newTestEngine(t, model.DefaultSettings())
	ch := e.Subscribe()
	require.NoError(t, e.Start())
	require.NoError(t, e.Close())
	assert.False(t, e.Running())
	assert.ErrorIs(t, e.Start(), ErrClosed)
	for range ch {
	}
	require.NoError(t, e.Close())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Thresholds: controller.Thresholds{SOCMaxLimit: 20, SOCMinLimit: 80, GridPriceExpensive: 1400}}, nil)
	assert.Error(t, err)
}
