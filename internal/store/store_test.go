package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microgrid/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_ReadingRoundtrip(t *testing.T) {
	s := testStore(t)
	ts := time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC)

	require.NoError(t, s.InsertReading(model.Reading{
		Timestamp:    ts,
		SolarPowerW:  412.5,
		WindPowerW:   68.2,
		ConsumptionW: 2342.8,
		BatteryWh:    5010,
		GridExportW:  120,
	}))

	readings, err := s.ReadingsSince(ts.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, readings, 1)

	r := readings[0]
	assert.Equal(t, ts, r.Timestamp)
	assert.Equal(t, 412.5, r.SolarPowerW)
	assert.Equal(t, 68.2, r.WindPowerW)
	assert.Equal(t, 2342.8, r.ConsumptionW)
	assert.Equal(t, 5010.0, r.BatteryWh)
	assert.Zero(t, r.GridImportW)
	assert.Equal(t, 120.0, r.GridExportW)
}

func TestStore_ReadingsOrdering(t *testing.T) {
	s := testStore(t)
	base := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	// Insert out of order.
	for _, offset := range []int{2, 0, 1} {
		require.NoError(t, s.InsertReading(model.Reading{
			Timestamp:   base.Add(time.Duration(offset) * time.Hour),
			SolarPowerW: float64(offset),
		}))
	}

	oldest, err := s.ReadingsSince(base)
	require.NoError(t, err)
	require.Len(t, oldest, 3)
	assert.Equal(t, 0.0, oldest[0].SolarPowerW)
	assert.Equal(t, 2.0, oldest[2].SolarPowerW)

	newest, err := s.LatestReadings(2)
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, 2.0, newest[0].SolarPowerW)
	assert.Equal(t, 1.0, newest[1].SolarPowerW)
}

func TestStore_ReadingsSinceExcludesOlder(t *testing.T) {
	s := testStore(t)
	base := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertReading(model.Reading{Timestamp: base.Add(-time.Hour)}))
	require.NoError(t, s.InsertReading(model.Reading{Timestamp: base.Add(time.Hour)}))

	readings, err := s.ReadingsSince(base)
	require.NoError(t, err)
	assert.Len(t, readings, 1)
}

func TestStore_SolarSampleDefaultsStatusOK(t *testing.T) {
	s := testStore(t)
	ts := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertSolarSample(model.SolarSample{
		Timestamp:  ts,
		IntensityW: 825,
		PanelTempC: 55,
		PowerW:     412.5,
		Efficiency: 0.10,
	}))

	samples, err := s.LatestSolar(1)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "OK", samples[0].Status)
	assert.Equal(t, 825.0, samples[0].IntensityW)
}

func TestStore_WindSampleRoundtrip(t *testing.T) {
	s := testStore(t)
	ts := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertWindSample(model.WindSample{
		Timestamp:    ts,
		SpeedMps:     3.4,
		DirectionDeg: 180,
		PowerW:       68.2,
	}))

	samples, err := s.WindSince(ts.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 3.4, samples[0].SpeedMps)
	assert.Equal(t, "OK", samples[0].Status)
}

func TestStore_AlertLifecycle(t *testing.T) {
	s := testStore(t)
	ts := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertAlert(model.Alert{
		Timestamp: ts,
		Type:      model.AlertSolarFault,
		Severity:  model.SeverityHigh,
		Message:   "panel underperforming",
	}))
	require.NoError(t, s.InsertAlert(model.Alert{
		Timestamp: ts.Add(time.Minute),
		Type:      model.AlertLowBattery,
		Severity:  model.SeverityHigh,
		Message:   "battery low",
	}))

	alerts, err := s.UnresolvedAlerts()
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	// Newest first.
	assert.Equal(t, model.AlertLowBattery, alerts[0].Type)
	assert.False(t, alerts[0].Resolved)

	require.NoError(t, s.ResolveAlert(alerts[0].ID))

	alerts, err = s.UnresolvedAlerts()
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertSolarFault, alerts[0].Type)
}

func TestStore_AlertZeroTimestampDefaultsToNow(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.InsertAlert(model.Alert{
		Type:     model.AlertSystemError,
		Severity: model.SeverityCritical,
		Message:  "scan failed",
	}))

	alerts, err := s.UnresolvedAlerts()
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.WithinDuration(t, time.Now(), alerts[0].Timestamp, time.Minute)
}

func TestStore_AlertCountsSince(t *testing.T) {
	s := testStore(t)
	ts := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.InsertAlert(model.Alert{
			Timestamp: ts, Type: model.AlertSolarFault, Severity: model.SeverityHigh, Message: "x",
		}))
	}
	require.NoError(t, s.InsertAlert(model.Alert{
		Timestamp: ts, Type: model.AlertLowBattery, Severity: model.SeverityHigh, Message: "y",
	}))
	// Outside the window.
	require.NoError(t, s.InsertAlert(model.Alert{
		Timestamp: ts.AddDate(0, 0, -10), Type: model.AlertSolarFault, Severity: model.SeverityHigh, Message: "old",
	}))

	counts, err := s.AlertCountsSince(ts.AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, model.AlertSolarFault, counts[0].Type)
	assert.Equal(t, 3, counts[0].Count)
	assert.Equal(t, 1, counts[1].Count)
}

func TestStore_TransactionRoundtrip(t *testing.T) {
	s := testStore(t)
	ts := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertTransaction(model.Transaction{
		ID:          "tx-1",
		Timestamp:   ts,
		Type:        "buy",
		AmountKWh:   2,
		PricePerKWh: 0.15,
		TotalAmount: 0.30,
		Status:      "completed",
	}))

	txs, err := s.TransactionsSince(ts.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "tx-1", txs[0].ID)
	assert.Equal(t, "buy", txs[0].Type)
	assert.Equal(t, 0.30, txs[0].TotalAmount)
	assert.Equal(t, "completed", txs[0].Status)
}

func TestStore_ReadingCount(t *testing.T) {
	s := testStore(t)

	count, err := s.ReadingCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, s.InsertReading(model.Reading{Timestamp: time.Now()}))
	count, err = s.ReadingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
