package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"microgrid/internal/model"
	"microgrid/internal/predictor"
	"microgrid/internal/store"
	"microgrid/internal/trading"
)

// ErrNoData is returned by aggregations over an empty history.
var ErrNoData = errors.New("no telemetry data available")

// trainingWindowDays is how far back the predictor looks for samples.
const trainingWindowDays = 30

// lowEfficiencyThreshold marks a day as suspect when its mean panel
// efficiency falls below it.
const lowEfficiencyThreshold = 0.15

// Analytics aggregates stored telemetry and drives the predictor.
type Analytics struct {
	store *store.Store
	pred  predictor.Predictor
	now   func() time.Time
}

func New(s *store.Store, pred predictor.Predictor) *Analytics {
	return &Analytics{
		store: s,
		pred:  pred,
		now:   time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (a *Analytics) SetClock(now func() time.Time) {
	a.now = now
}

// PowerAggregate summarizes one power series over a day.
type PowerAggregate struct {
	SumW  float64 `json:"sum_w"`
	MeanW float64 `json:"mean_w"`
	MaxW  float64 `json:"max_w"`
}

// StorageAggregate summarizes the battery charge over a day.
type StorageAggregate struct {
	MinWh  float64 `json:"min_wh"`
	MaxWh  float64 `json:"max_wh"`
	MeanWh float64 `json:"mean_wh"`
}

// DailyStat is one day of aggregated telemetry.
type DailyStat struct {
	Date        string           `json:"date"`
	Solar       PowerAggregate   `json:"solar"`
	Wind        PowerAggregate   `json:"wind"`
	Consumption PowerAggregate   `json:"consumption"`
	Battery     StorageAggregate `json:"battery"`
}

// DailyStatistics aggregates readings per calendar day over the past N
// days, oldest first.
func (a *Analytics) DailyStatistics(days int) ([]DailyStat, error) {
	readings, err := a.store.ReadingsSince(a.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("loading readings: %w", err)
	}
	if len(readings) == 0 {
		return nil, ErrNoData
	}

	type bucket struct {
		solar, wind, consumption []float64
		battery                  []float64
	}
	buckets := make(map[string]*bucket)
	for _, r := range readings {
		date := r.Timestamp.Format("2006-01-02")
		b := buckets[date]
		if b == nil {
			b = &bucket{}
			buckets[date] = b
		}
		b.solar = append(b.solar, r.SolarPowerW)
		b.wind = append(b.wind, r.WindPowerW)
		b.consumption = append(b.consumption, r.ConsumptionW)
		b.battery = append(b.battery, r.BatteryWh)
	}

	dates := make([]string, 0, len(buckets))
	for date := range buckets {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	stats := make([]DailyStat, 0, len(dates))
	for _, date := range dates {
		b := buckets[date]
		stats = append(stats, DailyStat{
			Date:        date,
			Solar:       aggregatePower(b.solar),
			Wind:        aggregatePower(b.wind),
			Consumption: aggregatePower(b.consumption),
			Battery:     aggregateStorage(b.battery),
		})
	}
	return stats, nil
}

// Averages holds mean generation, consumption, and storage levels.
type Averages struct {
	AvgSolarW       float64 `json:"avg_solar_generation_w"`
	AvgWindW        float64 `json:"avg_wind_generation_w"`
	AvgConsumptionW float64 `json:"avg_consumption_w"`
	AvgStorageWh    float64 `json:"avg_storage_wh"`
}

// Averages computes mean levels over the past N days. An empty history
// yields all zeros, not an error.
func (a *Analytics) Averages(days int) (Averages, error) {
	readings, err := a.store.ReadingsSince(a.now().AddDate(0, 0, -days))
	if err != nil {
		return Averages{}, fmt.Errorf("loading readings: %w", err)
	}
	if len(readings) == 0 {
		return Averages{}, nil
	}

	var avg Averages
	for _, r := range readings {
		avg.AvgSolarW += r.SolarPowerW
		avg.AvgWindW += r.WindPowerW
		avg.AvgConsumptionW += r.ConsumptionW
		avg.AvgStorageWh += r.BatteryWh
	}
	n := float64(len(readings))
	avg.AvgSolarW /= n
	avg.AvgWindW /= n
	avg.AvgConsumptionW /= n
	avg.AvgStorageWh /= n
	return avg, nil
}

// EfficiencyTrends reports how the solar array has been performing.
type EfficiencyTrends struct {
	AvgEfficiency       float64            `json:"avg_efficiency"`
	DailyEfficiency     map[string]float64 `json:"daily_efficiency"`
	SunPowerCorrelation float64            `json:"sun_power_correlation"`
	LowEfficiencyDays   []string           `json:"low_efficiency_days"`
}

// EfficiencyTrends analyzes solar samples over the training window:
// per-day mean efficiency, the Pearson correlation between irradiance and
// output, and the days that fell below the low-efficiency threshold.
func (a *Analytics) EfficiencyTrends() (EfficiencyTrends, error) {
	samples, err := a.store.SolarSince(a.now().AddDate(0, 0, -trainingWindowDays))
	if err != nil {
		return EfficiencyTrends{}, fmt.Errorf("loading solar samples: %w", err)
	}
	if len(samples) == 0 {
		return EfficiencyTrends{}, ErrNoData
	}

	daily := make(map[string][]float64)
	intensities := make([]float64, len(samples))
	powers := make([]float64, len(samples))
	var effSum float64
	for i, s := range samples {
		date := s.Timestamp.Format("2006-01-02")
		daily[date] = append(daily[date], s.Efficiency)
		intensities[i] = s.IntensityW
		powers[i] = s.PowerW
		effSum += s.Efficiency
	}

	trends := EfficiencyTrends{
		AvgEfficiency:       effSum / float64(len(samples)),
		DailyEfficiency:     make(map[string]float64, len(daily)),
		SunPowerCorrelation: pearson(intensities, powers),
	}
	for date, effs := range daily {
		trends.DailyEfficiency[date] = mean(effs)
	}
	for date, eff := range trends.DailyEfficiency {
		if eff < lowEfficiencyThreshold {
			trends.LowEfficiencyDays = append(trends.LowEfficiencyDays, date)
		}
	}
	sort.Strings(trends.LowEfficiencyDays)
	return trends, nil
}

// EnergyBalance summarizes generation against consumption for trading.
type EnergyBalance struct {
	TotalGenerationKWh  float64 `json:"total_generation_kwh"`
	TotalConsumptionKWh float64 `json:"total_consumption_kwh"`
	NetBalanceKWh       float64 `json:"net_balance_kwh"`
	SurplusHours        []int   `json:"surplus_hours"`
	DeficitHours        []int   `json:"deficit_hours"`
	SelfSufficiencyPct  float64 `json:"energy_self_sufficiency"`
}

// EnergyBalance totals generation and consumption over the past N days and
// identifies which hours of day net out positive or negative.
func (a *Analytics) EnergyBalance(days int) (EnergyBalance, error) {
	readings, err := a.store.ReadingsSince(a.now().AddDate(0, 0, -days))
	if err != nil {
		return EnergyBalance{}, fmt.Errorf("loading readings: %w", err)
	}
	if len(readings) == 0 {
		return EnergyBalance{}, ErrNoData
	}

	var totalGeneration, totalConsumption float64
	var hourlyNet [24]float64
	for _, r := range readings {
		generation := r.SolarPowerW + r.WindPowerW
		totalGeneration += generation
		totalConsumption += r.ConsumptionW
		hourlyNet[r.Timestamp.Hour()] += generation - r.ConsumptionW
	}

	balance := EnergyBalance{
		TotalGenerationKWh:  totalGeneration / 1000,
		TotalConsumptionKWh: totalConsumption / 1000,
		NetBalanceKWh:       (totalGeneration - totalConsumption) / 1000,
	}
	for h := 0; h < 24; h++ {
		if hourlyNet[h] > 0 {
			balance.SurplusHours = append(balance.SurplusHours, h)
		} else if hourlyNet[h] < 0 {
			balance.DeficitHours = append(balance.DeficitHours, h)
		}
	}
	if totalConsumption > 0 {
		balance.SelfSufficiencyPct = totalGeneration / totalConsumption * 100
	}
	return balance, nil
}

// PredictNextHour trains the predictor on recent history if needed, then
// predicts generation and consumption for current conditions. Too little
// history propagates predictor.ErrInsufficientData.
func (a *Analytics) PredictNextHour() (predictor.Targets, error) {
	if err := a.ensureTrained(); err != nil {
		return predictor.Targets{}, err
	}

	now := a.now()
	hour := now.Hour()

	// Estimate current irradiance from the diurnal curve; panels heat
	// with irradiance the same way the generator models them.
	var intensity float64
	if hour >= 6 && hour <= 18 {
		intensity = 600 * math.Sin(math.Pi*float64(hour-6)/12)
	}
	panelTemp := 25 + intensity/30

	return a.pred.Predict(predictor.Features{
		Hour:       hour,
		DayOfWeek:  int(now.Weekday()),
		IntensityW: intensity,
		PanelTempC: panelTemp,
	})
}

func (a *Analytics) ensureTrained() error {
	if np, ok := a.pred.(*predictor.NeuralPredictor); ok && np.Trained() {
		return nil
	}

	samples, err := a.trainingSamples()
	if err != nil {
		return err
	}
	return a.pred.Train(samples)
}

// trainingSamples joins readings with solar samples on timestamp. Both are
// written by the same tick, so the join is exact.
func (a *Analytics) trainingSamples() ([]predictor.Sample, error) {
	since := a.now().AddDate(0, 0, -trainingWindowDays)
	readings, err := a.store.ReadingsSince(since)
	if err != nil {
		return nil, fmt.Errorf("loading readings: %w", err)
	}
	solar, err := a.store.SolarSince(since)
	if err != nil {
		return nil, fmt.Errorf("loading solar samples: %w", err)
	}

	solarByTime := make(map[int64]model.SolarSample, len(solar))
	for _, s := range solar {
		solarByTime[s.Timestamp.UnixNano()] = s
	}

	samples := make([]predictor.Sample, 0, len(readings))
	for _, r := range readings {
		s, ok := solarByTime[r.Timestamp.UnixNano()]
		if !ok {
			continue
		}
		samples = append(samples, predictor.Sample{
			Hour:         r.Timestamp.Hour(),
			DayOfWeek:    int(r.Timestamp.Weekday()),
			IntensityW:   s.IntensityW,
			PanelTempC:   s.PanelTempC,
			SolarW:       r.SolarPowerW,
			WindW:        r.WindPowerW,
			ConsumptionW: r.ConsumptionW,
		})
	}
	return samples, nil
}

// TradeOutlook couples the next-hour prediction with current prices.
type TradeOutlook struct {
	CurrentBuyPrice   float64 `json:"current_buy_price"`
	CurrentSellPrice  float64 `json:"current_sell_price"`
	PredictedNetKWh   float64 `json:"predicted_net_kwh"`
	Action            string  `json:"action"`
	PotentialEarnings float64 `json:"potential_earnings"`
	PotentialCost     float64 `json:"potential_cost"`
}

// outlookThresholdKWh is the predicted surplus/deficit below which the
// outlook recommends holding.
const outlookThresholdKWh = 0.5

// TradeOutlook recommends a trade for the coming hour based on the
// predicted net balance and the tariff for the current hour.
func (a *Analytics) TradeOutlook(pricing trading.Pricing) (TradeOutlook, error) {
	targets, err := a.PredictNextHour()
	if err != nil {
		return TradeOutlook{}, err
	}

	quote := pricing.Quote(a.now().Hour())
	predictedNet := (targets.SolarW + targets.WindW - targets.ConsumptionW) / 1000

	outlook := TradeOutlook{
		CurrentBuyPrice:  quote.BuyPrice,
		CurrentSellPrice: quote.SellPrice,
		PredictedNetKWh:  predictedNet,
		Action:           "hold",
	}
	if predictedNet > outlookThresholdKWh {
		outlook.Action = "sell"
		outlook.PotentialEarnings = predictedNet * quote.SellPrice
	} else if predictedNet < -outlookThresholdKWh {
		outlook.Action = "buy"
		outlook.PotentialCost = -predictedNet * quote.BuyPrice
	}
	return outlook, nil
}

func aggregatePower(values []float64) PowerAggregate {
	agg := PowerAggregate{MaxW: math.Inf(-1)}
	for _, v := range values {
		agg.SumW += v
		agg.MaxW = math.Max(agg.MaxW, v)
	}
	agg.MeanW = agg.SumW / float64(len(values))
	return agg
}

func aggregateStorage(values []float64) StorageAggregate {
	agg := StorageAggregate{MinWh: math.Inf(1), MaxWh: math.Inf(-1)}
	var sum float64
	for _, v := range values {
		agg.MinWh = math.Min(agg.MinWh, v)
		agg.MaxWh = math.Max(agg.MaxWh, v)
		sum += v
	}
	agg.MeanWh = sum / float64(len(values))
	return agg
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// pearson computes the Pearson correlation coefficient between two equal
// length series, 0 when either has no variance.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}
	meanX, meanY := mean(xs), mean(ys)

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
