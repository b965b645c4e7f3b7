package trading

import "time"

// Category is the time-of-day price tier.
type Category string

const (
	CategoryPeak     Category = "Peak"
	CategoryOffPeak  Category = "Off-Peak"
	CategoryStandard Category = "Standard"
)

// Tier multipliers over the base tariff.
const (
	peakBuyMultiplier     = 1.8
	peakSellMultiplier    = 1.5
	offPeakBuyMultiplier  = 0.7
	offPeakSellMultiplier = 0.6
)

// Quote is the derived price pair for one hour of day. Never persisted;
// a pure function of the hour.
type Quote struct {
	Hour      int      `json:"hour"`
	BuyPrice  float64  `json:"buy_price"`
	SellPrice float64  `json:"sell_price"`
	Category  Category `json:"category"`
}

// Pricing computes time-of-day tariffs from a base price pair.
type Pricing struct {
	BaseBuy  float64
	BaseSell float64
}

func NewPricing(baseBuy, baseSell float64) Pricing {
	return Pricing{BaseBuy: baseBuy, BaseSell: baseSell}
}

// Quote returns the buy/sell prices and tier for the given hour of day.
// Peak is 17:00-21:59, off-peak 22:00-06:59, everything else standard.
func (p Pricing) Quote(hour int) Quote {
	q := Quote{Hour: hour}
	switch {
	case hour >= 17 && hour <= 21:
		q.BuyPrice = p.BaseBuy * peakBuyMultiplier
		q.SellPrice = p.BaseSell * peakSellMultiplier
		q.Category = CategoryPeak
	case hour >= 22 || hour <= 6:
		q.BuyPrice = p.BaseBuy * offPeakBuyMultiplier
		q.SellPrice = p.BaseSell * offPeakSellMultiplier
		q.Category = CategoryOffPeak
	default:
		q.BuyPrice = p.BaseBuy
		q.SellPrice = p.BaseSell
		q.Category = CategoryStandard
	}
	return q
}

// ForecastEntry is one hour of the price forecast.
type ForecastEntry struct {
	Hour      int      `json:"hour"`
	Time      string   `json:"time"`
	BuyPrice  float64  `json:"buy_price"`
	SellPrice float64  `json:"sell_price"`
	Category  Category `json:"category"`
}

// Forecast returns hourly quotes starting at the given time. The tariff
// table is fixed, so the forecast is exact rather than predictive.
func (p Pricing) Forecast(start time.Time, hours int) []ForecastEntry {
	forecast := make([]ForecastEntry, 0, hours)
	for i := 0; i < hours; i++ {
		t := start.Add(time.Duration(i) * time.Hour)
		q := p.Quote(t.Hour())
		forecast = append(forecast, ForecastEntry{
			Hour:      q.Hour,
			Time:      t.Format("2006-01-02 15:00"),
			BuyPrice:  q.BuyPrice,
			SellPrice: q.SellPrice,
			Category:  q.Category,
		})
	}
	return forecast
}
