package timemodel

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSolarFactor_ZeroOutsideDaylight(t *testing.T) {
	for _, hour := range []int{0, 3, 5, 19, 22, 23} {
		assert.Zero(t, SolarFactor(hour), "hour %d should have no sun", hour)
	}
}

func TestSolarFactor_PeaksAtNoon(t *testing.T) {
	assert.InDelta(t, 1.0, SolarFactor(12), 1e-9)
	for hour := 6; hour <= 18; hour++ {
		assert.LessOrEqual(t, SolarFactor(hour), SolarFactor(12),
			"hour %d should not exceed noon", hour)
		assert.GreaterOrEqual(t, SolarFactor(hour), 0.0)
	}
}

func TestSolarFactor_SymmetricAroundNoon(t *testing.T) {
	for offset := 0; offset <= 6; offset++ {
		assert.InDelta(t, SolarFactor(12-offset), SolarFactor(12+offset), 1e-9)
	}
}

func TestModel_At_NoiseFree(t *testing.T) {
	m := New(nil)
	noon := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	f := m.At(noon)
	assert.InDelta(t, 1.0, f.Solar, 1e-9)
	// wind at noon: 0.3 + 0.4*sin(π) = 0.3, no noise
	assert.InDelta(t, 0.3, f.Wind, 1e-9)
	// consumption at noon: 0.8 + 0.4*sin(π·5/15) ≈ 1.146
	assert.InDelta(t, 1.146, f.Consumption, 0.001)
}

func TestModel_At_NightConsumptionBaseline(t *testing.T) {
	m := New(nil)
	f := m.At(time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC))
	assert.InDelta(t, 0.4, f.Consumption, 1e-9)
	assert.Zero(t, f.Solar)
}

func TestModel_WindFactorClamped(t *testing.T) {
	m := New(rand.New(rand.NewPCG(7, 0)))
	for hour := 0; hour < 24; hour++ {
		for i := 0; i < 50; i++ {
			f := m.At(time.Date(2025, 6, 15, hour, 0, 0, 0, time.UTC))
			assert.GreaterOrEqual(t, f.Wind, 0.1)
			assert.LessOrEqual(t, f.Wind, 1.0)
		}
	}
}

func TestModel_At_DependsOnlyOnHour(t *testing.T) {
	m := New(nil)
	a := m.At(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	b := m.At(time.Date(2026, 12, 31, 9, 59, 59, 0, time.UTC))
	assert.Equal(t, a, b)
}
