package timemodel

import (
	"math"
	"math/rand/v2"
	"time"
)

// Factors are the diurnal multipliers applied to generation and consumption
// for a given timestamp. Solar is in [0,1]; wind and consumption carry noise
// and are clamped to their own ranges.
type Factors struct {
	Solar       float64
	Wind        float64
	Consumption float64
}

// Model derives diurnal factors from a timestamp. The RNG is injected so
// callers can seed it; a nil RNG produces the noise-free curves, which is
// what the tests use.
type Model struct {
	rng *rand.Rand
}

func New(rng *rand.Rand) *Model {
	return &Model{rng: rng}
}

// At returns the factors for the given timestamp. Depends only on the input
// hour and the injected RNG; no other state.
func (m *Model) At(t time.Time) Factors {
	hour := t.Hour()
	return Factors{
		Solar:       SolarFactor(hour),
		Wind:        m.windFactor(hour),
		Consumption: m.consumptionFactor(hour),
	}
}

// SolarFactor is the dawn-to-dusk bell curve: 0 outside [6,18], peaking at
// noon.
func SolarFactor(hour int) float64 {
	if hour < 6 || hour > 18 {
		return 0
	}
	f := math.Sin(math.Pi * float64(hour-6) / 12)
	return math.Max(0, f)
}

// windFactor is deliberately noisier and higher at night to decorrelate wind
// from solar. Clamped to [0.1, 1.0].
func (m *Model) windFactor(hour int) float64 {
	f := 0.3 + 0.4*math.Sin(2*math.Pi*float64(hour)/24) + m.uniform(-0.2, 0.2)
	return clamp(f, 0.1, 1.0)
}

// consumptionFactor approximates daytime/evening household load.
func (m *Model) consumptionFactor(hour int) float64 {
	if hour >= 7 && hour <= 22 {
		return 0.8 + 0.4*math.Sin(math.Pi*float64(hour-7)/15)
	}
	return 0.4 + m.uniform(-0.1, 0.1)
}

// uniform samples U(lo, hi), or returns the midpoint when no RNG is set.
func (m *Model) uniform(lo, hi float64) float64 {
	if m.rng == nil {
		return (lo + hi) / 2
	}
	return lo + m.rng.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
