package faults

import "math"

// ReferenceEfficiency is the assumed panel efficiency when computing the
// expected solar output a healthy array should produce. Single source of
// truth for both the generator's inline check and the periodic scan.
const ReferenceEfficiency = 0.18

// Thresholds shared by the inline check and the scan. The inline check uses
// a higher intensity gate so it only fires under unambiguous sun.
const (
	SolarScanMinIntensity   = 300 // W/m², periodic scan gate
	SolarInlineMinIntensity = 400 // W/m², per-tick inline gate
	SolarUnderperformRatio  = 0.6

	MinEfficiency  = 0.12
	MaxPanelTempC  = 80.0
	WindMinSpeed   = 5.0  // m/s, gate for underperformance check
	WindCutOutMps  = 25.0
	WindRatedMps   = 12.0
	WindUnderRatio = 0.5
	WindMinExpectedW = 100.0

	ChargingSurplusW     = 500.0 // net generation defining a charging window
	RapidDischargePoints = 5.0   // battery percentage points per reading
	LowBatteryPercent    = 10.0
	StaleDataMinutes     = 5.0
)

// ExpectedSolarPower returns the output a panel of the given capacity should
// produce at the given irradiance, assuming ReferenceEfficiency.
func ExpectedSolarPower(intensityWm2, capacityW float64) float64 {
	return (intensityWm2 / 1000) * capacityW * ReferenceEfficiency
}

// SolarUnderperforming reports whether actual output has fallen below the
// underperformance ratio of the expected output. Only meaningful above the
// given intensity gate.
func SolarUnderperforming(intensityWm2, powerW, capacityW, minIntensity float64) (expected float64, under bool) {
	if intensityWm2 <= minIntensity {
		return 0, false
	}
	expected = ExpectedSolarPower(intensityWm2, capacityW)
	if expected <= 0 {
		return expected, false
	}
	return expected, powerW/expected < SolarUnderperformRatio
}

// ExpectedWindPower returns the cubic power-curve output for a turbine of
// the given capacity, capped at capacity, zero beyond cut-out.
func ExpectedWindPower(speedMps, capacityW float64) float64 {
	if speedMps >= WindCutOutMps {
		return 0
	}
	p := capacityW * math.Pow(speedMps/WindRatedMps, 3)
	return math.Min(p, capacityW)
}
