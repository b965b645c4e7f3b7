package simulator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microgrid/internal/model"
	"microgrid/internal/store"
	"microgrid/internal/timemodel"
)

func testGenerator(t *testing.T) (*Generator, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cfg := Config{
		SolarCapacityW:    5000,
		WindCapacityW:     3000,
		BaseConsumptionW:  2000,
		BatteryCapacityWh: 10000,
	}
	// Noise-free: nil RNG everywhere yields midpoint noise.
	return NewGenerator(cfg, s, timemodel.New(nil), nil), s
}

func TestGenerator_GenerateSolar_Noon(t *testing.T) {
	g, _ := testGenerator(t)
	noon := timemodel.New(nil).At(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	sol := g.GenerateSolar(noon)
	// intensity = 800*1.0 + 25 midpoint noise
	assert.InDelta(t, 825.0, sol.IntensityW, 1e-9)
	// panel temp = 27.5 ambient + 825/30
	assert.InDelta(t, 55.0, sol.PanelTempC, 1e-9)
	// hot panel degrades to the 0.10 efficiency floor
	assert.InDelta(t, 0.10, sol.Efficiency, 1e-9)
	assert.InDelta(t, 412.5, sol.PowerW, 1e-9)
}

func TestGenerator_GenerateSolar_Night(t *testing.T) {
	g, _ := testGenerator(t)
	midnight := timemodel.New(nil).At(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))

	sol := g.GenerateSolar(midnight)
	assert.Zero(t, sol.IntensityW)
	assert.Zero(t, sol.PowerW)
}

func TestGenerator_GenerateWind_CubicCurve(t *testing.T) {
	g, _ := testGenerator(t)

	// Noon wind factor is 0.3: speed = 8*0.3 + 1 midpoint = 3.4 m/s
	wnd := g.GenerateWind(timemodel.Factors{Wind: 0.3})
	assert.InDelta(t, 3.4, wnd.SpeedMps, 1e-9)
	expected := 3000 * (3.4 / 12) * (3.4 / 12) * (3.4 / 12)
	assert.InDelta(t, expected, wnd.PowerW, 1e-6)

	// Below cut-in there is no output.
	calm := g.GenerateWind(timemodel.Factors{Wind: 0.1})
	assert.Zero(t, calm.PowerW)
}

func TestGenerator_GenerateConsumption_Floored(t *testing.T) {
	g, _ := testGenerator(t)

	low := g.GenerateConsumption(timemodel.Factors{Consumption: 0.1})
	assert.Equal(t, 500.0, low)

	evening := g.GenerateConsumption(timemodel.Factors{Consumption: 1.2})
	assert.InDelta(t, 2450.0, evening, 1e-9)
}

func TestGenerator_TickAt_PersistsAllSeries(t *testing.T) {
	g, s := testGenerator(t)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	reading, err := g.TickAt(now)
	require.NoError(t, err)

	assert.Equal(t, now, reading.Timestamp)
	assert.InDelta(t, 412.5, reading.SolarPowerW, 1e-9)
	assert.GreaterOrEqual(t, reading.BatteryWh, 0.0)
	assert.LessOrEqual(t, reading.BatteryWh, 10000.0)

	stored, err := s.LatestReadings(1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.InDelta(t, reading.SolarPowerW, stored[0].SolarPowerW, 1e-9)

	solar, err := s.LatestSolar(1)
	require.NoError(t, err)
	require.Len(t, solar, 1)
	assert.InDelta(t, 825.0, solar[0].IntensityW, 1e-9)
}

func TestGenerator_TickAt_RaisesInlineSolarAlert(t *testing.T) {
	g, s := testGenerator(t)

	// At noon the hot panel sits at the 0.10 efficiency floor, well below
	// the 0.18 reference, so the inline check fires.
	_, err := g.TickAt(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	alerts, err := s.UnresolvedAlerts()
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertSolarFault, alerts[0].Type)
	assert.Equal(t, model.SeverityHigh, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "efficiency drop")
}

func TestGenerator_Backfill_ThirtyMinuteSteps(t *testing.T) {
	g, s := testGenerator(t)
	end := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	g.SetClock(func() time.Time { return end })

	require.NoError(t, g.Backfill(1))

	count, err := s.ReadingCount()
	require.NoError(t, err)
	assert.Equal(t, 48, count)

	readings, err := s.ReadingsSince(end.AddDate(0, 0, -2))
	require.NoError(t, err)
	require.NotEmpty(t, readings)
	assert.Equal(t, end.AddDate(0, 0, -1), readings[0].Timestamp)
}

type captureCallback struct {
	readings []model.Reading
	alerts   []model.Alert
}

func (c *captureCallback) OnReading(r model.Reading) { c.readings = append(c.readings, r) }
func (c *captureCallback) OnAlert(a model.Alert)     { c.alerts = append(c.alerts, a) }

func TestGenerator_CallbackReceivesEvents(t *testing.T) {
	g, _ := testGenerator(t)
	cb := &captureCallback{}
	g.SetCallback(cb)

	_, err := g.TickAt(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, cb.readings, 1)
	require.Len(t, cb.alerts, 1)
	assert.Equal(t, model.AlertSolarFault, cb.alerts[0].Type)
}
