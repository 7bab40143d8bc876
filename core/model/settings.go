package model

import "math"

// Operating ranges of the inbound settings.
const (
	MinIntensityPct = 0.0
	MaxIntensityPct = 100.0
	MinLoadDemandKW = 10.0
	MaxLoadDemandKW = 120.0
	MinGridPrice    = 1000.0
	MaxGridPrice    = 2000.0
	GridPriceStep   = 100.0
	MinSOCPct       = 0.0
	MaxSOCPct       = 100.0
)

// Settings is the externally supplied configuration read at the start of
// every tick. The engine only ever sees a clamped copy.
type Settings struct {
	SolarIntensityPct float64 `json:"solar_intensity_pct"`
	WindSpeedPct      float64 `json:"wind_speed_pct"`
	LoadDemandKW      float64 `json:"load_demand_kw"`
	GridPrice         float64 `json:"grid_price"`
	InitialSOCPct     float64 `json:"initial_soc_pct"`
}

// DefaultSettings mirrors the dashboard's initial slider positions.
func DefaultSettings() Settings {
	return Settings{
		SolarIntensityPct: 80,
		WindSpeedPct:      50,
		LoadDemandKW:      40,
		GridPrice:         1500,
		InitialSOCPct:     50,
	}
}

// Clamp returns a copy of s with every field forced into its domain.
// Out-of-range values are never rejected.
func (s Settings) Clamp() Settings {
	return Settings{
		SolarIntensityPct: ClampIntensity(s.SolarIntensityPct),
		WindSpeedPct:      ClampIntensity(s.WindSpeedPct),
		LoadDemandKW:      ClampLoadDemand(s.LoadDemandKW),
		GridPrice:         ClampGridPrice(s.GridPrice),
		InitialSOCPct:     ClampSOC(s.InitialSOCPct),
	}
}

// ClampIntensity bounds a solar or wind percentage to [0,100].
func ClampIntensity(pct float64) float64 {
	return clamp(pct, MinIntensityPct, MaxIntensityPct)
}

// ClampLoadDemand bounds the load demand to [10,120] kW.
func ClampLoadDemand(kw float64) float64 {
	return clamp(kw, MinLoadDemandKW, MaxLoadDemandKW)
}

// ClampGridPrice bounds the price to [1000,2000] and snaps it to the
// nearest 100 step.
func ClampGridPrice(price float64) float64 {
	p := clamp(price, MinGridPrice, MaxGridPrice)
	return math.Round(p/GridPriceStep) * GridPriceStep
}

// ClampSOC bounds a state of charge to [0,100].
func ClampSOC(pct float64) float64 {
	return clamp(pct, MinSOCPct, MaxSOCPct)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SettingsPatch is a partial settings update. Nil fields are left as is.
type SettingsPatch struct {
	SolarIntensityPct *float64 `json:"solar_intensity_pct,omitempty"`
	WindSpeedPct      *float64 `json:"wind_speed_pct,omitempty"`
	LoadDemandKW      *float64 `json:"load_demand_kw,omitempty"`
	GridPrice         *float64 `json:"grid_price,omitempty"`
	InitialSOCPct     *float64 `json:"initial_soc_pct,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p.SolarIntensityPct == nil && p.WindSpeedPct == nil && p.LoadDemandKW == nil &&
		p.GridPrice == nil && p.InitialSOCPct == nil
}

// Apply returns s with the patched fields replaced, clamped.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.SolarIntensityPct != nil {
		s.SolarIntensityPct = *p.SolarIntensityPct
	}
	if p.WindSpeedPct != nil {
		s.WindSpeedPct = *p.WindSpeedPct
	}
	if p.LoadDemandKW != nil {
		s.LoadDemandKW = *p.LoadDemandKW
	}
	if p.GridPrice != nil {
		s.GridPrice = *p.GridPrice
	}
	if p.InitialSOCPct != nil {
		s.InitialSOCPct = *p.InitialSOCPct
	}
	return s.Clamp()
}
