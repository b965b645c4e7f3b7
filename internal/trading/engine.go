package trading

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"microgrid/internal/metrics"
	"microgrid/internal/model"
	"microgrid/internal/store"
)

// Energy status values derived from the latest reading.
const (
	StatusNoData            = "no_data"
	StatusSurplusSell       = "surplus_sell_recommended"
	StatusDeficitBuy        = "deficit_buy_recommended"
	StatusSurplusStore      = "surplus_store"
	StatusDeficitUseBattery = "deficit_use_battery"
	StatusBalanced          = "balanced"
)

// Thresholds for status classification and scheduling.
const (
	surplusThresholdW  = 100.0
	deficitThresholdW  = -100.0
	sellBatteryMinPct  = 80.0
	buyBatteryMaxPct   = 30.0
	opportunisticBuy   = 2.0 // kWh, fixed off-peak top-up
	opportunisticSell  = 1.5 // kWh, fixed peak draw-down
	scheduleBuyCapPct  = 80.0
	scheduleSellMinPct = 30.0
	minTradeKWh        = 0.1
)

// Engine derives trading decisions from stored telemetry and the tariff
// table. It never mutates battery state; the schedule simulates a local
// copy instead.
type Engine struct {
	store             *store.Store
	pricing           Pricing
	batteryCapacityWh float64
	now               func() time.Time
}

func NewEngine(s *store.Store, pricing Pricing, batteryCapacityWh float64) *Engine {
	return &Engine{
		store:             s,
		pricing:           pricing,
		batteryCapacityWh: batteryCapacityWh,
		now:               time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Pricing exposes the tariff table for callers that only need quotes.
func (e *Engine) Pricing() Pricing {
	return e.pricing
}

// CurrentQuote returns the tariff for the current hour.
func (e *Engine) CurrentQuote() Quote {
	return e.pricing.Quote(e.now().Hour())
}

// EnergyStatus classifies the household's current energy position.
type EnergyStatus struct {
	Status           string  `json:"status"`
	SurplusDeficitW  float64 `json:"surplus_deficit_w"`
	TotalGenerationW float64 `json:"total_generation_w"`
	ConsumptionW     float64 `json:"consumption_w"`
	BatteryWh        float64 `json:"battery_wh"`
	BatteryPercent   float64 `json:"battery_percent"`
}

// EnergyStatus computes the position from the latest stored reading. An
// empty store yields the no_data sentinel, not an error.
func (e *Engine) EnergyStatus() (EnergyStatus, error) {
	readings, err := e.store.LatestReadings(1)
	if err != nil {
		return EnergyStatus{}, fmt.Errorf("loading latest reading: %w", err)
	}
	if len(readings) == 0 {
		return EnergyStatus{Status: StatusNoData}, nil
	}

	r := readings[0]
	generation := r.SolarPowerW + r.WindPowerW
	net := generation - r.ConsumptionW
	batteryPct := 0.0
	if e.batteryCapacityWh > 0 {
		batteryPct = r.BatteryWh / e.batteryCapacityWh * 100
	}

	status := EnergyStatus{
		SurplusDeficitW:  net,
		TotalGenerationW: generation,
		ConsumptionW:     r.ConsumptionW,
		BatteryWh:        r.BatteryWh,
		BatteryPercent:   batteryPct,
	}
	switch {
	case net > surplusThresholdW && batteryPct > sellBatteryMinPct:
		status.Status = StatusSurplusSell
	case net < deficitThresholdW && batteryPct < buyBatteryMaxPct:
		status.Status = StatusDeficitBuy
	case net > 0:
		status.Status = StatusSurplusStore
	case net < 0:
		status.Status = StatusDeficitUseBattery
	default:
		status.Status = StatusBalanced
	}
	return status, nil
}

// Recommendation is a single actionable trading suggestion.
type Recommendation struct {
	Timestamp     time.Time    `json:"timestamp"`
	Action        string       `json:"action"`
	Reason        string       `json:"reason"`
	AmountKWh     float64      `json:"amount_kwh"`
	Value         float64      `json:"value"`
	BuyPrice      float64      `json:"buy_price"`
	SellPrice     float64      `json:"sell_price"`
	PriceCategory Category     `json:"price_category"`
	EnergyStatus  EnergyStatus `json:"energy_status"`
}

// Recommend derives the current best action. Direct surplus/deficit
// responses take precedence over opportunistic tariff plays; anything
// else is a hold.
func (e *Engine) Recommend() (Recommendation, error) {
	status, err := e.EnergyStatus()
	if err != nil {
		return Recommendation{}, err
	}

	now := e.now()
	quote := e.pricing.Quote(now.Hour())
	rec := Recommendation{
		Timestamp:     now,
		Action:        "hold",
		Reason:        "Energy balanced, no action needed",
		BuyPrice:      quote.BuyPrice,
		SellPrice:     quote.SellPrice,
		PriceCategory: quote.Category,
		EnergyStatus:  status,
	}

	switch {
	case status.Status == StatusSurplusSell:
		amount := status.SurplusDeficitW / 1000
		rec.Action = "sell"
		rec.Reason = "Surplus generation with full battery"
		rec.AmountKWh = amount
		rec.Value = amount * quote.SellPrice
	case status.Status == StatusDeficitBuy:
		amount := -status.SurplusDeficitW / 1000
		rec.Action = "buy"
		rec.Reason = "Generation deficit with depleted battery"
		rec.AmountKWh = amount
		rec.Value = amount * quote.BuyPrice
	case quote.Category == CategoryOffPeak && status.BatteryPercent < 50:
		rec.Action = "buy_opportunistic"
		rec.Reason = "Off-peak prices, good time to charge battery"
		rec.AmountKWh = opportunisticBuy
		rec.Value = opportunisticBuy * quote.BuyPrice
	case quote.Category == CategoryPeak && status.BatteryPercent > 70:
		rec.Action = "sell_opportunistic"
		rec.Reason = "Peak prices, good time to sell stored energy"
		rec.AmountKWh = opportunisticSell
		rec.Value = opportunisticSell * quote.SellPrice
	}
	return rec, nil
}

// ScheduleEntry is one planned trade in the 24h schedule.
type ScheduleEntry struct {
	Hour            int      `json:"hour"`
	Time            string   `json:"time"`
	BuyPrice        float64  `json:"buy_price"`
	SellPrice       float64  `json:"sell_price"`
	Category        Category `json:"category"`
	Action          string   `json:"action"`
	AmountKWh       float64  `json:"amount_kwh"`
	EstimatedValue  float64  `json:"estimated_value"`
	BatteryAfterPct float64  `json:"battery_after_pct"`
}

// Schedule plans trades over the coming hours against a simulated battery
// that starts at 50%: top up off-peak below 80%, sell down at peak above
// 30%. Trades under the minimum size are skipped.
func (e *Engine) Schedule(hours int) []ScheduleEntry {
	capacityKWh := e.batteryCapacityWh / 1000
	batteryPct := 50.0
	start := e.now()

	schedule := make([]ScheduleEntry, 0, hours)
	for i := 0; i < hours; i++ {
		t := start.Add(time.Duration(i) * time.Hour)
		q := e.pricing.Quote(t.Hour())

		action := "hold"
		amount := 0.0
		value := 0.0
		switch {
		case q.Category == CategoryOffPeak && batteryPct < scheduleBuyCapPct:
			headroom := (scheduleBuyCapPct - batteryPct) / 100 * capacityKWh
			buy := math.Min(opportunisticBuy, headroom)
			if buy > minTradeKWh {
				action = "buy"
				amount = buy
				value = -buy * q.BuyPrice
				batteryPct = math.Min(100, batteryPct+buy/capacityKWh*100)
			}
		case q.Category == CategoryPeak && batteryPct > scheduleSellMinPct:
			available := (batteryPct - scheduleSellMinPct) / 100 * capacityKWh
			sell := math.Min(opportunisticSell, available)
			if sell > minTradeKWh {
				action = "sell"
				amount = sell
				value = sell * q.SellPrice
				batteryPct = math.Max(0, batteryPct-sell/capacityKWh*100)
			}
		}

		schedule = append(schedule, ScheduleEntry{
			Hour:            q.Hour,
			Time:            t.Format("2006-01-02 15:00"),
			BuyPrice:        q.BuyPrice,
			SellPrice:       q.SellPrice,
			Category:        q.Category,
			Action:          action,
			AmountKWh:       amount,
			EstimatedValue:  value,
			BatteryAfterPct: batteryPct,
		})
	}
	return schedule
}

// TradeResult reports the outcome of a trade attempt. Validation failures
// are results, not errors; only the caller decides whether to retry.
type TradeResult struct {
	Success       bool    `json:"success"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Message       string  `json:"message"`
	AmountKWh     float64 `json:"amount_kwh,omitempty"`
	TotalAmount   float64 `json:"total_amount,omitempty"`
}

// ExecuteTrade validates and records a grid trade. There is no real market
// counterparty; a valid trade always completes.
func (e *Engine) ExecuteTrade(tradeType string, amountKWh, pricePerKWh float64) TradeResult {
	if tradeType != "buy" && tradeType != "sell" {
		return TradeResult{Message: fmt.Sprintf("Invalid trade type: %s", tradeType)}
	}
	if amountKWh <= 0 {
		return TradeResult{Message: "Trade amount must be positive"}
	}

	total := amountKWh * pricePerKWh
	tx := model.Transaction{
		ID:          uuid.New().String(),
		Timestamp:   e.now(),
		Type:        tradeType,
		AmountKWh:   amountKWh,
		PricePerKWh: pricePerKWh,
		TotalAmount: total,
		Status:      "completed",
	}
	if err := e.store.InsertTransaction(tx); err != nil {
		return TradeResult{Message: fmt.Sprintf("Trade execution failed: %v", err)}
	}

	metrics.TradesTotal.WithLabelValues(tradeType).Inc()
	return TradeResult{
		Success:       true,
		TransactionID: tx.ID,
		Message:       fmt.Sprintf("Successfully %s %.1f kWh for $%.2f", tradeType, amountKWh, total),
		AmountKWh:     amountKWh,
		TotalAmount:   total,
	}
}

// HistorySummary aggregates completed trades.
type HistorySummary struct {
	TotalBoughtKWh float64 `json:"total_bought_kwh"`
	TotalSoldKWh   float64 `json:"total_sold_kwh"`
	TotalSpent     float64 `json:"total_spent"`
	TotalEarned    float64 `json:"total_earned"`
	NetProfit      float64 `json:"net_profit"`
}

// History is the trade log with its summary.
type History struct {
	Transactions []model.Transaction `json:"transactions"`
	Summary      HistorySummary      `json:"summary"`
}

// History returns trades over the past N days, newest first.
func (e *Engine) History(days int) (History, error) {
	since := e.now().AddDate(0, 0, -days)
	txs, err := e.store.TransactionsSince(since)
	if err != nil {
		return History{}, fmt.Errorf("loading transactions: %w", err)
	}

	var summary HistorySummary
	for _, tx := range txs {
		switch tx.Type {
		case "buy":
			summary.TotalBoughtKWh += tx.AmountKWh
			summary.TotalSpent += tx.TotalAmount
		case "sell":
			summary.TotalSoldKWh += tx.AmountKWh
			summary.TotalEarned += tx.TotalAmount
		}
	}
	summary.NetProfit = summary.TotalEarned - summary.TotalSpent

	return History{Transactions: txs, Summary: summary}, nil
}

// PriceAnalysis summarizes the tariff structure over the next 24 hours.
type PriceAnalysis struct {
	AvgBuyPrice   float64 `json:"avg_buy_price"`
	AvgSellPrice  float64 `json:"avg_sell_price"`
	PeakHours     int     `json:"peak_hours"`
	OffPeakHours  int     `json:"off_peak_hours"`
	StandardHours int     `json:"standard_hours"`
	BuySpread     float64 `json:"buy_spread"`
	SellSpread    float64 `json:"sell_spread"`
}

// MarketAnalytics combines trade history with the tariff outlook.
type MarketAnalytics struct {
	TradingSummary  HistorySummary `json:"trading_summary"`
	PriceAnalysis   PriceAnalysis  `json:"price_analysis"`
	Recommendations []string       `json:"recommendations"`
}

// MarketAnalytics analyzes recent trading against the price structure and
// suggests tariff-driven habits.
func (e *Engine) MarketAnalytics(days int) (MarketAnalytics, error) {
	history, err := e.History(days)
	if err != nil {
		return MarketAnalytics{}, err
	}

	forecast := e.pricing.Forecast(e.now(), 24)
	var analysis PriceAnalysis
	minBuy, maxBuy := math.Inf(1), math.Inf(-1)
	minSell, maxSell := math.Inf(1), math.Inf(-1)
	for _, entry := range forecast {
		analysis.AvgBuyPrice += entry.BuyPrice
		analysis.AvgSellPrice += entry.SellPrice
		minBuy = math.Min(minBuy, entry.BuyPrice)
		maxBuy = math.Max(maxBuy, entry.BuyPrice)
		minSell = math.Min(minSell, entry.SellPrice)
		maxSell = math.Max(maxSell, entry.SellPrice)
		switch entry.Category {
		case CategoryPeak:
			analysis.PeakHours++
		case CategoryOffPeak:
			analysis.OffPeakHours++
		default:
			analysis.StandardHours++
		}
	}
	analysis.AvgBuyPrice /= float64(len(forecast))
	analysis.AvgSellPrice /= float64(len(forecast))
	analysis.BuySpread = maxBuy - minBuy
	analysis.SellSpread = maxSell - minSell

	recs := []string{
		"Buy energy during off-peak hours (22:00-07:00) for lowest prices",
		"Sell surplus energy during peak hours (17:00-22:00) for best returns",
	}
	if history.Summary.NetProfit < 0 {
		recs = append(recs, "Recent trades ran at a loss, review trade timing against the tariff tiers")
	}

	return MarketAnalytics{
		TradingSummary:  history.Summary,
		PriceAnalysis:   analysis,
		Recommendations: recs,
	}, nil
}
