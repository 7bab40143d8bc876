package generation

import (
	"math/rand"
	"sync"
)

// NoiseSource yields uniform perturbations in [-amplitude, +amplitude].
type NoiseSource interface {
	Uniform(amplitude float64) float64
}

// RandSource draws noise from a seeded math/rand generator. It is safe
// for concurrent use.
type RandSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandSource returns a RandSource seeded with seed.
func NewRandSource(seed int64) *RandSource {
	return &RandSource{rnd: rand.New(rand.NewSource(seed))}
}

// Uniform returns a value in [-amplitude, +amplitude).
func (r *RandSource) Uniform(amplitude float64) float64 {
	r.mu.Lock()
	f := r.rnd.Float64()
	r.mu.Unlock()
	return (f*2 - 1) * amplitude
}

// ZeroNoise disables all perturbation.
type ZeroNoise struct{}

func (ZeroNoise) Uniform(float64) float64 { return 0 }

// FixedNoise returns Fraction*amplitude on every draw. Fraction is
// expected in [-1,1].
type FixedNoise struct {
	Fraction float64
}

func (f FixedNoise) Uniform(amplitude float64) float64 {
	fr := f.Fraction
	if fr > 1 {
		fr = 1
	}
	if fr < -1 {
		fr = -1
	}
	return fr * amplitude
}
