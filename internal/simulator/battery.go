package simulator

import "math"

// Battery models the household storage bank. Charge is integrated once per
// tick with a fixed one-minute step and clamped to [0, capacity]. The state
// lives in memory only; it is not reloaded from the store on restart, which
// keeps the model simple at the cost of a reset to 50% on every boot.
type Battery struct {
	CapacityWh float64
	ChargeWh   float64
}

// tickHours is the integration step. Ticks are assumed one minute apart
// regardless of the actual generation interval.
const tickHours = 1.0 / 60

// importFloorWh is the charge level below which a deficit must be covered
// from the grid instead of the battery.
const importFloorWh = 100.0

// exportCeilingRatio is the fill level above which surplus is exported.
const exportCeilingRatio = 0.95

// NewBattery creates a battery starting at 50% capacity.
func NewBattery(capacityWh float64) *Battery {
	return &Battery{
		CapacityWh: capacityWh,
		ChargeWh:   capacityWh / 2,
	}
}

// UpdateResult is returned by Update for each tick.
type UpdateResult struct {
	ChargeWh    float64
	GridImportW float64
	GridExportW float64
}

// Update integrates one tick of net power into the charge level and decides
// grid exchange. Import and export are mutually exclusive: a deficit pulls
// from the grid only when the battery is nearly empty, a surplus exports
// only when it is nearly full. Everything else the battery absorbs.
func (b *Battery) Update(solarW, windW, consumptionW float64) UpdateResult {
	net := solarW + windW - consumptionW

	b.ChargeWh += net * tickHours
	b.ChargeWh = math.Max(0, math.Min(b.CapacityWh, b.ChargeWh))

	var gridImport, gridExport float64
	if net < 0 && b.ChargeWh <= importFloorWh {
		gridImport = -net
	} else if net > 0 && b.ChargeWh >= b.CapacityWh*exportCeilingRatio {
		gridExport = net
	}

	return UpdateResult{
		ChargeWh:    b.ChargeWh,
		GridImportW: gridImport,
		GridExportW: gridExport,
	}
}

// Percent returns the state of charge as a percentage of capacity.
func (b *Battery) Percent() float64 {
	if b.CapacityWh <= 0 {
		return 0
	}
	return b.ChargeWh / b.CapacityWh * 100
}
