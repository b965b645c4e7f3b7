package analytics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microgrid/internal/model"
	"microgrid/internal/predictor"
	"microgrid/internal/store"
	"microgrid/internal/trading"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testAnalytics(t *testing.T, pred predictor.Predictor) (*Analytics, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	if pred == nil {
		pred = predictor.NewNeuralPredictor(predictor.DefaultTrainConfig(), 42)
	}
	a := New(s, pred)
	a.SetClock(func() time.Time { return testNow })
	return a, s
}

func TestAverages_EmptyStoreYieldsZeros(t *testing.T) {
	a, _ := testAnalytics(t, nil)

	avg, err := a.Averages(7)
	require.NoError(t, err)
	assert.Zero(t, avg.AvgSolarW)
	assert.Zero(t, avg.AvgConsumptionW)
}

func TestAverages_MeansOverWindow(t *testing.T) {
	a, s := testAnalytics(t, nil)

	for i, solar := range []float64{100, 200, 300} {
		require.NoError(t, s.InsertReading(model.Reading{
			Timestamp:    testNow.Add(-time.Duration(i+1) * time.Hour),
			SolarPowerW:  solar,
			WindPowerW:   50,
			ConsumptionW: 1000,
			BatteryWh:    5000,
		}))
	}
	// Outside the window.
	require.NoError(t, s.InsertReading(model.Reading{
		Timestamp:   testNow.AddDate(0, 0, -10),
		SolarPowerW: 9999,
	}))

	avg, err := a.Averages(7)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, avg.AvgSolarW, 1e-9)
	assert.InDelta(t, 50.0, avg.AvgWindW, 1e-9)
	assert.InDelta(t, 1000.0, avg.AvgConsumptionW, 1e-9)
	assert.InDelta(t, 5000.0, avg.AvgStorageWh, 1e-9)
}

func TestDailyStatistics_GroupsByDay(t *testing.T) {
	a, s := testAnalytics(t, nil)

	day1 := time.Date(2025, 6, 13, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	for _, r := range []model.Reading{
		{Timestamp: day1, SolarPowerW: 100, BatteryWh: 4000},
		{Timestamp: day1.Add(time.Hour), SolarPowerW: 300, BatteryWh: 6000},
		{Timestamp: day2, SolarPowerW: 500, BatteryWh: 5000},
	} {
		require.NoError(t, s.InsertReading(r))
	}

	stats, err := a.DailyStatistics(7)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "2025-06-13", stats[0].Date)
	assert.InDelta(t, 400.0, stats[0].Solar.SumW, 1e-9)
	assert.InDelta(t, 200.0, stats[0].Solar.MeanW, 1e-9)
	assert.InDelta(t, 300.0, stats[0].Solar.MaxW, 1e-9)
	assert.InDelta(t, 4000.0, stats[0].Battery.MinWh, 1e-9)
	assert.InDelta(t, 6000.0, stats[0].Battery.MaxWh, 1e-9)

	assert.Equal(t, "2025-06-14", stats[1].Date)
	assert.InDelta(t, 500.0, stats[1].Solar.MaxW, 1e-9)
}

func TestDailyStatistics_NoData(t *testing.T) {
	a, _ := testAnalytics(t, nil)

	_, err := a.DailyStatistics(7)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestEnergyBalance_TotalsAndHours(t *testing.T) {
	a, s := testAnalytics(t, nil)

	// Noon surplus, evening deficit.
	require.NoError(t, s.InsertReading(model.Reading{
		Timestamp:    time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC),
		SolarPowerW:  3000,
		ConsumptionW: 1000,
	}))
	require.NoError(t, s.InsertReading(model.Reading{
		Timestamp:    time.Date(2025, 6, 14, 20, 0, 0, 0, time.UTC),
		WindPowerW:   500,
		ConsumptionW: 2500,
	}))

	balance, err := a.EnergyBalance(7)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, balance.TotalGenerationKWh, 1e-9)
	assert.InDelta(t, 3.5, balance.TotalConsumptionKWh, 1e-9)
	assert.InDelta(t, 0.0, balance.NetBalanceKWh, 1e-9)
	assert.Equal(t, []int{12}, balance.SurplusHours)
	assert.Equal(t, []int{20}, balance.DeficitHours)
	assert.InDelta(t, 100.0, balance.SelfSufficiencyPct, 1e-9)
}

func TestEnergyBalance_NoData(t *testing.T) {
	a, _ := testAnalytics(t, nil)

	_, err := a.EnergyBalance(7)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestEfficiencyTrends_CorrelationAndLowDays(t *testing.T) {
	a, s := testAnalytics(t, nil)

	goodDay := time.Date(2025, 6, 13, 10, 0, 0, 0, time.UTC)
	badDay := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		intensity := float64(200 + i*150)
		require.NoError(t, s.InsertSolarSample(model.SolarSample{
			Timestamp:  goodDay.Add(time.Duration(i) * time.Hour),
			IntensityW: intensity,
			PowerW:     intensity * 0.9, // output tracks irradiance
			Efficiency: 0.19,
		}))
		require.NoError(t, s.InsertSolarSample(model.SolarSample{
			Timestamp:  badDay.Add(time.Duration(i) * time.Hour),
			IntensityW: intensity,
			PowerW:     intensity * 0.9,
			Efficiency: 0.11,
		}))
	}

	trends, err := a.EfficiencyTrends()
	require.NoError(t, err)
	assert.InDelta(t, 0.15, trends.AvgEfficiency, 1e-9)
	assert.InDelta(t, 1.0, trends.SunPowerCorrelation, 1e-9)
	assert.Equal(t, []string{"2025-06-14"}, trends.LowEfficiencyDays)
	assert.InDelta(t, 0.19, trends.DailyEfficiency["2025-06-13"], 1e-9)
}

func TestPredictNextHour_InsufficientData(t *testing.T) {
	a, _ := testAnalytics(t, nil)

	_, err := a.PredictNextHour()
	assert.ErrorIs(t, err, predictor.ErrInsufficientData)
}

// stubPredictor returns fixed targets without training.
type stubPredictor struct {
	targets predictor.Targets
	trained bool
}

func (p *stubPredictor) Train([]predictor.Sample) error { p.trained = true; return nil }
func (p *stubPredictor) Predict(predictor.Features) (predictor.Targets, error) {
	return p.targets, nil
}

func TestTradeOutlook_SellOnPredictedSurplus(t *testing.T) {
	stub := &stubPredictor{targets: predictor.Targets{
		SolarW: 2000, WindW: 500, ConsumptionW: 1500,
	}}
	a, _ := testAnalytics(t, stub)

	outlook, err := a.TradeOutlook(trading.NewPricing(0.12, 0.08))
	require.NoError(t, err)
	assert.Equal(t, "sell", outlook.Action)
	assert.InDelta(t, 1.0, outlook.PredictedNetKWh, 1e-9)
	assert.InDelta(t, 0.08, outlook.PotentialEarnings, 1e-9)
	assert.Zero(t, outlook.PotentialCost)
}

func TestTradeOutlook_BuyOnPredictedDeficit(t *testing.T) {
	stub := &stubPredictor{targets: predictor.Targets{
		SolarW: 0, WindW: 200, ConsumptionW: 1200,
	}}
	a, _ := testAnalytics(t, stub)

	outlook, err := a.TradeOutlook(trading.NewPricing(0.12, 0.08))
	require.NoError(t, err)
	assert.Equal(t, "buy", outlook.Action)
	assert.InDelta(t, -1.0, outlook.PredictedNetKWh, 1e-9)
	assert.InDelta(t, 0.12, outlook.PotentialCost, 1e-9)
}

func TestTradeOutlook_HoldNearBalance(t *testing.T) {
	stub := &stubPredictor{targets: predictor.Targets{
		SolarW: 1000, WindW: 200, ConsumptionW: 1100,
	}}
	a, _ := testAnalytics(t, stub)

	outlook, err := a.TradeOutlook(trading.NewPricing(0.12, 0.08))
	require.NoError(t, err)
	assert.Equal(t, "hold", outlook.Action)
}
