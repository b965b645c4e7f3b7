package simulator

import (
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"microgrid/internal/faults"
	"microgrid/internal/metrics"
	"microgrid/internal/model"
	"microgrid/internal/store"
	"microgrid/internal/timemodel"
)

// Config holds the plant parameters for synthetic telemetry.
type Config struct {
	SolarCapacityW    float64
	WindCapacityW     float64
	BaseConsumptionW  float64
	BatteryCapacityWh float64
}

// Callback receives generation events for live broadcast. Optional.
type Callback interface {
	OnReading(model.Reading)
	OnAlert(model.Alert)
}

// Generator produces one internally consistent Reading per tick and owns
// the battery's persistent charge level. A single generator instance must
// be the only writer of its battery state.
type Generator struct {
	cfg      Config
	store    *store.Store
	tm       *timemodel.Model
	rng      *rand.Rand
	battery  *Battery
	now      func() time.Time
	callback Callback
}

func NewGenerator(cfg Config, s *store.Store, tm *timemodel.Model, rng *rand.Rand) *Generator {
	return &Generator{
		cfg:     cfg,
		store:   s,
		tm:      tm,
		rng:     rng,
		battery: NewBattery(cfg.BatteryCapacityWh),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Used by tests; backfill threads its
// own timestamps through TickAt instead.
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// SetCallback registers a live event sink.
func (g *Generator) SetCallback(cb Callback) {
	g.callback = cb
}

// Battery exposes the owned battery state, read-only by convention.
func (g *Generator) Battery() *Battery {
	return g.battery
}

// SolarOutput is one tick of simulated panel telemetry.
type SolarOutput struct {
	IntensityW float64 // irradiance, W/m²
	PanelTempC float64
	PowerW     float64
	Efficiency float64
}

// GenerateSolar derives panel telemetry from the solar diurnal factor.
// Panels heat with irradiance and lose 0.4% efficiency per degree above
// 25°C; output only starts above a 50 W/m² threshold.
func (g *Generator) GenerateSolar(f timemodel.Factors) SolarOutput {
	var intensity float64
	if f.Solar > 0 {
		intensity = 800*f.Solar + g.uniform(-100, 150)
		intensity = math.Max(0, intensity)
	}

	ambient := 25 + g.uniform(-5, 10)
	panelTemp := ambient + intensity/30

	efficiency := 0.20 - math.Max(0, (panelTemp-25)*0.004) + g.uniform(-0.01, 0.01)
	efficiency = math.Max(0.10, math.Min(0.25, efficiency))

	var power float64
	if intensity > 50 {
		power = (intensity/1000)*g.cfg.SolarCapacityW*efficiency + g.uniform(-100, 100)
		power = math.Max(0, power)
	}

	return SolarOutput{
		IntensityW: intensity,
		PanelTempC: panelTemp,
		PowerW:     power,
		Efficiency: efficiency,
	}
}

// WindOutput is one tick of simulated turbine telemetry.
type WindOutput struct {
	SpeedMps     float64
	DirectionDeg float64
	PowerW       float64
}

// Cut-in and cut-out speeds for the turbine power curve.
const (
	windCutInMps  = 3.0
	windCutOutMps = 25.0
	windRatedMps  = 12.0
)

// GenerateWind derives turbine telemetry from the wind diurnal factor.
// Power follows a cubic curve between cut-in and cut-out, capped at rated
// speed.
func (g *Generator) GenerateWind(f timemodel.Factors) WindOutput {
	speed := 8*f.Wind + g.uniform(-2, 4)
	speed = math.Max(0, speed)

	direction := g.uniform(0, 360)

	var power float64
	if speed > windCutInMps && speed <= windCutOutMps {
		normalized := math.Min(speed/windRatedMps, 1)
		power = g.cfg.WindCapacityW*math.Pow(normalized, 3) + g.uniform(-50, 50)
		power = math.Max(0, power)
	}

	return WindOutput{
		SpeedMps:     speed,
		DirectionDeg: direction,
		PowerW:       power,
	}
}

// GenerateConsumption derives household load from the consumption factor,
// floored at the minimum standing draw.
func (g *Generator) GenerateConsumption(f timemodel.Factors) float64 {
	consumption := g.cfg.BaseConsumptionW*f.Consumption + g.uniform(-200, 300)
	return math.Max(500, consumption)
}

// Tick generates and persists one reading stamped with the current time.
func (g *Generator) Tick() (model.Reading, error) {
	return g.TickAt(g.now())
}

// TickAt generates one reading for an explicit timestamp. Backfill uses
// this to replay history without touching the process clock.
func (g *Generator) TickAt(now time.Time) (model.Reading, error) {
	f := g.tm.At(now)

	sol := g.GenerateSolar(f)
	wnd := g.GenerateWind(f)
	consumption := g.GenerateConsumption(f)

	result := g.battery.Update(sol.PowerW, wnd.PowerW, consumption)

	g.checkSolarFault(now, sol)

	reading := model.Reading{
		Timestamp:    now,
		SolarPowerW:  sol.PowerW,
		WindPowerW:   wnd.PowerW,
		ConsumptionW: consumption,
		BatteryWh:    result.ChargeWh,
		GridImportW:  result.GridImportW,
		GridExportW:  result.GridExportW,
	}

	if err := g.store.InsertReading(reading); err != nil {
		return model.Reading{}, fmt.Errorf("persisting reading: %w", err)
	}
	if err := g.store.InsertSolarSample(model.SolarSample{
		Timestamp:  now,
		IntensityW: sol.IntensityW,
		PanelTempC: sol.PanelTempC,
		PowerW:     sol.PowerW,
		Efficiency: sol.Efficiency,
	}); err != nil {
		return model.Reading{}, fmt.Errorf("persisting solar sample: %w", err)
	}
	if err := g.store.InsertWindSample(model.WindSample{
		Timestamp:    now,
		SpeedMps:     wnd.SpeedMps,
		DirectionDeg: wnd.DirectionDeg,
		PowerW:       wnd.PowerW,
	}); err != nil {
		return model.Reading{}, fmt.Errorf("persisting wind sample: %w", err)
	}

	metrics.TicksTotal.Inc()
	if g.callback != nil {
		g.callback.OnReading(reading)
	}
	return reading, nil
}

// checkSolarFault is the per-tick inline check. It shares the expected-power
// rule with the periodic scan but gates on a higher irradiance so it only
// fires under unambiguous sun.
func (g *Generator) checkSolarFault(now time.Time, sol SolarOutput) {
	expected, under := faults.SolarUnderperforming(
		sol.IntensityW, sol.PowerW, g.cfg.SolarCapacityW, faults.SolarInlineMinIntensity)
	if !under {
		return
	}

	alert := model.Alert{
		Timestamp: now,
		Type:      model.AlertSolarFault,
		Severity:  model.SeverityHigh,
		Message: fmt.Sprintf("Solar panel efficiency drop detected! Expected: %.1fW, Actual: %.1fW",
			expected, sol.PowerW),
	}
	if err := g.store.InsertAlert(alert); err != nil {
		log.Printf("alert persistence failed (solar_fault): %v", err)
		return
	}
	metrics.AlertsTotal.WithLabelValues(string(alert.Severity)).Inc()
	if g.callback != nil {
		g.callback.OnAlert(alert)
	}
}

// Backfill replays ticks at 30-minute synthetic steps over the past N days.
// Runs synchronously; the continuous loop must not start until it returns.
func (g *Generator) Backfill(days int) error {
	end := g.now()
	start := end.AddDate(0, 0, -days)

	count := 0
	for t := start; t.Before(end); t = t.Add(30 * time.Minute) {
		if _, err := g.TickAt(t); err != nil {
			log.Printf("backfill tick at %s failed: %v", t.Format(time.RFC3339), err)
			continue
		}
		count++
	}
	log.Printf("backfill complete: %d readings over %d day(s)", count, days)
	return nil
}

// Run generates readings on a fixed interval until the process exits. A
// failed tick is logged and the loop continues after the same interval.
func (g *Generator) Run(interval time.Duration) {
	for {
		if _, err := g.Tick(); err != nil {
			metrics.TickErrors.Inc()
			log.Printf("telemetry tick failed: %v", err)
		}
		time.Sleep(interval)
	}
}

// uniform samples U(lo, hi), or the midpoint when no RNG is set.
func (g *Generator) uniform(lo, hi float64) float64 {
	if g.rng == nil {
		return (lo + hi) / 2
	}
	return lo + g.rng.Float64()*(hi-lo)
}
