// Package generation turns normalized solar and wind intensities and a load
// setpoint into instantaneous power values with bounded random noise.
package generation

import (
	"math"

	"github.com/kilianp07/hres/core/model"
)

const (
	// MaxSolarCapacityKW is the PV output at 100 % intensity.
	MaxSolarCapacityKW = 50.0
	// MaxWindCapacityKW is the turbine output at 100 % wind speed.
	MaxWindCapacityKW = 40.0

	SolarNoiseKW = 1.0
	WindNoiseKW  = 1.5
	LoadNoiseKW  = 1.0
)

// Reading holds the power values of one tick.
type Reading struct {
	SolarKW float64
	WindKW  float64
	LoadKW  float64
}

// TotalKW returns solar plus wind generation.
func (r Reading) TotalKW() float64 { return r.SolarKW + r.WindKW }

// NetLoadKW returns load minus generation. Positive is a deficit,
// negative a surplus.
func (r Reading) NetLoadKW() float64 { return r.LoadKW - r.TotalKW() }

// Generate computes a Reading from the clamped settings. Solar and wind
// noise is only drawn when the respective input is non-zero; the load
// always fluctuates. A nil noise source behaves like ZeroNoise.
func Generate(s model.Settings, noise NoiseSource) Reading {
	if noise == nil {
		noise = ZeroNoise{}
	}
	return Reading{
		SolarKW: source(s.SolarIntensityPct, MaxSolarCapacityKW, SolarNoiseKW, noise),
		WindKW:  source(s.WindSpeedPct, MaxWindCapacityKW, WindNoiseKW, noise),
		LoadKW:  math.Max(0, s.LoadDemandKW+noise.Uniform(LoadNoiseKW)),
	}
}

func source(pct, capacity, amplitude float64, noise NoiseSource) float64 {
	if pct <= 0 {
		return 0
	}
	return math.Max(0, pct/100*capacity+noise.Uniform(amplitude))
}
