package trading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPricing_PeakHours(t *testing.T) {
	p := NewPricing(0.12, 0.08)

	q := p.Quote(19)
	assert.Equal(t, CategoryPeak, q.Category)
	assert.InDelta(t, 0.216, q.BuyPrice, 1e-9)
	assert.InDelta(t, 0.12, q.SellPrice, 1e-9)

	for _, hour := range []int{17, 18, 19, 20, 21} {
		assert.Equal(t, CategoryPeak, p.Quote(hour).Category, "hour %d", hour)
	}
}

func TestPricing_OffPeakHours(t *testing.T) {
	p := NewPricing(0.12, 0.08)

	q := p.Quote(3)
	assert.Equal(t, CategoryOffPeak, q.Category)
	assert.InDelta(t, 0.084, q.BuyPrice, 1e-9)
	assert.InDelta(t, 0.048, q.SellPrice, 1e-9)

	for _, hour := range []int{22, 23, 0, 1, 2, 3, 4, 5, 6} {
		assert.Equal(t, CategoryOffPeak, p.Quote(hour).Category, "hour %d", hour)
	}
}

func TestPricing_StandardHours(t *testing.T) {
	p := NewPricing(0.12, 0.08)

	for _, hour := range []int{7, 10, 12, 16} {
		q := p.Quote(hour)
		assert.Equal(t, CategoryStandard, q.Category, "hour %d", hour)
		assert.Equal(t, 0.12, q.BuyPrice)
		assert.Equal(t, 0.08, q.SellPrice)
	}
}

func TestPricing_QuoteIsPure(t *testing.T) {
	p := NewPricing(0.12, 0.08)
	for hour := 0; hour < 24; hour++ {
		assert.Equal(t, p.Quote(hour), p.Quote(hour), "hour %d", hour)
	}
}

func TestPricing_Forecast(t *testing.T) {
	p := NewPricing(0.12, 0.08)
	start := time.Date(2025, 6, 15, 16, 0, 0, 0, time.UTC)

	forecast := p.Forecast(start, 24)
	assert.Len(t, forecast, 24)

	assert.Equal(t, 16, forecast[0].Hour)
	assert.Equal(t, CategoryStandard, forecast[0].Category)
	// One hour later peak begins.
	assert.Equal(t, 17, forecast[1].Hour)
	assert.Equal(t, CategoryPeak, forecast[1].Category)
	// The forecast wraps past midnight into off-peak.
	assert.Equal(t, 0, forecast[8].Hour)
	assert.Equal(t, CategoryOffPeak, forecast[8].Category)
}
