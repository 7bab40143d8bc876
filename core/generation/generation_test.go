package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/hres/core/model"
)

// countingNoise records the amplitudes it was asked for.
type countingNoise struct {
	calls []float64
}

func (c *countingNoise) Uniform(a float64) float64 {
	c.calls = append(c.calls, a)
	return a
}

func TestGenerateZeroInputHasNoNoise(t *testing.T) {
	src := NewRandSource(7)
	for i := 0; i < 500; i++ {
		r := Generate(model.Settings{LoadDemandKW: 40}, src)
		assert.Equal(t, 0.0, r.SolarKW)
		assert.Equal(t, 0.0, r.WindKW)
	}
}

func TestGenerateOnlyLoadNoiseAtZeroInput(t *testing.T) {
	n := &countingNoise{}
	r := Generate(model.Settings{LoadDemandKW: 10}, n)
	assert.Equal(t, []float64{LoadNoiseKW}, n.calls)
	assert.Equal(t, 11.0, r.LoadKW)
}

func TestGenerateFullOutputZeroNoise(t *testing.T) {
	r := Generate(model.Settings{SolarIntensityPct: 100, WindSpeedPct: 100, LoadDemandKW: 40}, ZeroNoise{})
	assert.Equal(t, 50.0, r.SolarKW)
	assert.Equal(t, 40.0, r.WindKW)
	assert.Equal(t, 40.0, r.LoadKW)
	assert.Equal(t, 90.0, r.TotalKW())
	assert.Equal(t, -50.0, r.NetLoadKW())
}

func TestGenerateNoiseBounds(t *testing.T) {
	src := NewRandSource(42)
	s := model.Settings{SolarIntensityPct: 50, WindSpeedPct: 50, LoadDemandKW: 60}
	for i := 0; i < 2000; i++ {
		r := Generate(s, src)
		assert.InDelta(t, 25.0, r.SolarKW, SolarNoiseKW)
		assert.InDelta(t, 20.0, r.WindKW, WindNoiseKW)
		assert.InDelta(t, 60.0, r.LoadKW, LoadNoiseKW)
	}
}

func TestGenerateNeverNegative(t *testing.T) {
	s := model.Settings{SolarIntensityPct: 1, WindSpeedPct: 1, LoadDemandKW: 0}
	r := Generate(s, FixedNoise{Fraction: -1})
	assert.Equal(t, 0.0, r.SolarKW)
	assert.Equal(t, 0.0, r.WindKW)
	assert.Equal(t, 0.0, r.LoadKW)
}

func TestGenerateNilNoise(t *testing.T) {
	r := Generate(model.Settings{SolarIntensityPct: 20, LoadDemandKW: 15}, nil)
	assert.Equal(t, 10.0, r.SolarKW)
	assert.Equal(t, 15.0, r.LoadKW)
}

func TestFixedNoiseClamp(t *testing.T) {
	assert.Equal(t, 1.5, FixedNoise{Fraction: 3}.Uniform(1.5))
	assert.Equal(t, -1.0, FixedNoise{Fraction: -2}.Uniform(1))
}

func TestRandSourceDeterministic(t *testing.T) {
	a, b := NewRandSource(99), NewRandSource(99)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Uniform(1), b.Uniform(1))
	}
}
