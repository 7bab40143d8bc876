package engine

import "github.com/kilianp07/hres/core/model"

// Settings returns the live settings snapshot.
func (e *Engine) Settings() model.Settings { return *e.settings.Load() }

// SetSolarIntensity sets the solar intensity, clamped to [0,100] %.
func (e *Engine) SetSolarIntensity(pct float64) float64 {
	return e.update("solar_intensity_pct", pct, model.ClampIntensity, func(s *model.Settings, v float64) { s.SolarIntensityPct = v })
}

// SetWindSpeed sets the wind speed, clamped to [0,100] %.
func (e *Engine) SetWindSpeed(pct float64) float64 {
	return e.update("wind_speed_pct", pct, model.ClampIntensity, func(s *model.Settings, v float64) { s.WindSpeedPct = v })
}

// SetLoadDemand sets the load demand, clamped to [10,120] kW.
func (e *Engine) SetLoadDemand(kw float64) float64 {
	return e.update("load_demand_kw", kw, model.ClampLoadDemand, func(s *model.Settings, v float64) { s.LoadDemandKW = v })
}

// SetGridPrice sets the grid price, clamped to [1000,2000] in steps of 100.
func (e *Engine) SetGridPrice(price float64) float64 {
	return e.update("grid_price", price, model.ClampGridPrice, func(s *model.Settings, v float64) { s.GridPrice = v })
}

// SetInitialSOC sets the SOC used by Reset. Before the first tick it also
// replaces the current SOC.
func (e *Engine) SetInitialSOC(pct float64) float64 {
	v := e.update("initial_soc_pct", pct, model.ClampSOC, func(s *model.Settings, v float64) { s.InitialSOCPct = v })
	e.mu.Lock()
	if e.state.SimulatedTime == 0 {
		e.state.SOCPct = v
	}
	e.mu.Unlock()
	return v
}

// UpdateSettings replaces every setting at once and returns the clamped
// values now in effect.
func (e *Engine) UpdateSettings(s model.Settings) model.Settings {
	return e.swapSettings(func(model.Settings) model.Settings { return s })
}

// PatchSettings applies a partial update atomically and returns the
// settings now in effect.
func (e *Engine) PatchSettings(p model.SettingsPatch) model.Settings {
	return e.swapSettings(p.Apply)
}

func (e *Engine) swapSettings(next func(model.Settings) model.Settings) model.Settings {
	e.settingsMu.Lock()
	prev := *e.settings.Load()
	req := next(prev)
	c := req.Clamp()
	e.settings.Store(&c)
	e.settingsMu.Unlock()
	if c != req {
		e.log.Debugf("settings clamped: requested %+v applied %+v", req, c)
	}
	if prev.InitialSOCPct != c.InitialSOCPct {
		e.mu.Lock()
		if e.state.SimulatedTime == 0 {
			e.state.SOCPct = c.InitialSOCPct
		}
		e.mu.Unlock()
	}
	return c
}

func (e *Engine) update(name string, v float64, clamp func(float64) float64, set func(*model.Settings, float64)) float64 {
	c := clamp(v)
	if c != v {
		e.log.Debugf("%s %v out of range, clamped to %v", name, v, c)
	}
	e.settingsMu.Lock()
	next := *e.settings.Load()
	set(&next, c)
	e.settings.Store(&next)
	e.settingsMu.Unlock()
	return c
}
