package faults

import (
	"fmt"
	"log"
	"time"

	"microgrid/internal/metrics"
	"microgrid/internal/model"
	"microgrid/internal/store"
)

// Config holds the plant parameters the detector evaluates against.
type Config struct {
	SolarCapacityW    float64
	WindCapacityW     float64
	BatteryCapacityWh float64
}

// Notifier receives alerts as they are raised. Optional.
type Notifier interface {
	OnAlert(model.Alert)
}

// Fault is one detected rule violation. Faults are returned to the caller;
// a matching Alert is appended to the store as a side effect.
type Fault struct {
	Timestamp time.Time          `json:"timestamp"`
	Kind      string             `json:"kind"`
	Severity  model.Severity     `json:"severity"`
	Message   string             `json:"message"`
	Details   map[string]float64 `json:"details,omitempty"`
}

// Detector evaluates threshold rules over store query windows. It holds no
// state between scans.
type Detector struct {
	store  *store.Store
	cfg    Config
	now    func() time.Time
	notify Notifier
}

func NewDetector(s *store.Store, cfg Config) *Detector {
	return &Detector{store: s, cfg: cfg, now: time.Now}
}

// SetClock overrides the time source. Used by tests.
func (d *Detector) SetClock(now func() time.Time) {
	d.now = now
}

// SetNotifier registers a live alert sink.
func (d *Detector) SetNotifier(n Notifier) {
	d.notify = n
}

// raiseAlert appends the alert to the store. A persistence failure must not
// kill the scan, so it is logged and swallowed.
func (d *Detector) raiseAlert(typ model.AlertType, sev model.Severity, msg string) {
	a := model.Alert{
		Timestamp: d.now(),
		Type:      typ,
		Severity:  sev,
		Message:   msg,
	}
	if err := d.store.InsertAlert(a); err != nil {
		log.Printf("alert persistence failed (%s): %v", typ, err)
	}
	metrics.AlertsTotal.WithLabelValues(string(sev)).Inc()
	if d.notify != nil {
		d.notify.OnAlert(a)
	}
}

// CheckSolar scans solar samples from the last hoursBack hours for
// underperformance, efficiency drops, and overheating.
func (d *Detector) CheckSolar(hoursBack int) ([]Fault, error) {
	since := d.now().Add(-time.Duration(hoursBack) * time.Hour)
	samples, err := d.store.SolarSince(since)
	if err != nil {
		return nil, fmt.Errorf("solar check: %w", err)
	}

	var faults []Fault
	for _, s := range samples {
		if expected, under := SolarUnderperforming(s.IntensityW, s.PowerW, d.cfg.SolarCapacityW, SolarScanMinIntensity); under {
			msg := fmt.Sprintf("Solar panel low power output detected. Expected: %.1fW, Actual: %.1fW", expected, s.PowerW)
			faults = append(faults, Fault{
				Timestamp: s.Timestamp,
				Kind:      "low_power_output",
				Severity:  model.SeverityHigh,
				Message:   msg,
				Details: map[string]float64{
					"sun_intensity":    s.IntensityW,
					"power_output":     s.PowerW,
					"expected_power":   expected,
					"efficiency_ratio": s.PowerW / expected,
				},
			})
			d.raiseAlert(model.AlertSolarFault, model.SeverityHigh, msg)
		}

		if s.Efficiency < MinEfficiency {
			msg := fmt.Sprintf("Solar panel efficiency drop detected. Current efficiency: %.1f%%", s.Efficiency*100)
			faults = append(faults, Fault{
				Timestamp: s.Timestamp,
				Kind:      "low_efficiency",
				Severity:  model.SeverityMedium,
				Message:   msg,
				Details:   map[string]float64{"efficiency": s.Efficiency},
			})
			d.raiseAlert(model.AlertEfficiencyDrop, model.SeverityMedium, msg)
		}

		if s.PanelTempC > MaxPanelTempC {
			msg := fmt.Sprintf("Solar panel overheating detected. Temperature: %.1f°C", s.PanelTempC)
			faults = append(faults, Fault{
				Timestamp: s.Timestamp,
				Kind:      "overheating",
				Severity:  model.SeverityHigh,
				Message:   msg,
				Details:   map[string]float64{"temperature": s.PanelTempC},
			})
			d.raiseAlert(model.AlertOverheating, model.SeverityHigh, msg)
		}
	}
	return faults, nil
}

// CheckWind scans wind samples from the last hoursBack hours for turbine
// underperformance against the cubic power curve.
func (d *Detector) CheckWind(hoursBack int) ([]Fault, error) {
	since := d.now().Add(-time.Duration(hoursBack) * time.Hour)
	samples, err := d.store.WindSince(since)
	if err != nil {
		return nil, fmt.Errorf("wind check: %w", err)
	}

	var faults []Fault
	for _, s := range samples {
		if s.SpeedMps <= WindMinSpeed {
			continue
		}
		expected := ExpectedWindPower(s.SpeedMps, d.cfg.WindCapacityW)
		if expected <= WindMinExpectedW {
			continue
		}
		if s.PowerW/expected < WindUnderRatio {
			msg := fmt.Sprintf("Wind turbine underperforming. Wind speed: %.1fm/s, Expected: %.1fW, Actual: %.1fW",
				s.SpeedMps, expected, s.PowerW)
			faults = append(faults, Fault{
				Timestamp: s.Timestamp,
				Kind:      "wind_underperformance",
				Severity:  model.SeverityMedium,
				Message:   msg,
				Details: map[string]float64{
					"wind_speed":     s.SpeedMps,
					"power_output":   s.PowerW,
					"expected_power": expected,
				},
			})
			d.raiseAlert(model.AlertWindFault, model.SeverityMedium, msg)
		}
	}
	return faults, nil
}

// CheckBattery inspects charging behavior over the last hoursBack hours:
// a battery that fails to charge during surplus windows, rapid discharge,
// and a critically low state of charge.
func (d *Detector) CheckBattery(hoursBack int) ([]Fault, error) {
	since := d.now().Add(-time.Duration(hoursBack) * time.Hour)
	readings, err := d.store.ReadingsSince(since)
	if err != nil {
		return nil, fmt.Errorf("battery check: %w", err)
	}
	if len(readings) < 10 {
		return nil, nil
	}

	pct := func(r model.Reading) float64 {
		return r.BatteryWh / d.cfg.BatteryCapacityWh * 100
	}
	net := func(r model.Reading) float64 {
		return r.SolarPowerW + r.WindPowerW - r.ConsumptionW
	}

	var faults []Fault

	// Charging windows: readings with surplus generation. The battery level
	// must rise between consecutive such windows unless it is nearly full.
	// Reported once per scan.
	var charging []model.Reading
	for _, r := range readings {
		if net(r) > ChargingSurplusW {
			charging = append(charging, r)
		}
	}
	for i := 0; i+1 < len(charging); i++ {
		cur, next := pct(charging[i]), pct(charging[i+1])
		if next <= cur && cur < 95 {
			msg := fmt.Sprintf("Battery not charging despite surplus generation. Battery level: %.1f%%", cur)
			faults = append(faults, Fault{
				Timestamp: charging[i].Timestamp,
				Kind:      "battery_charging_fault",
				Severity:  model.SeverityHigh,
				Message:   msg,
				Details:   map[string]float64{"battery_percentage": cur},
			})
			d.raiseAlert(model.AlertBatteryFault, model.SeverityHigh, msg)
			break
		}
	}

	// Rapid discharge: more than RapidDischargePoints drop between
	// consecutive readings. Capped at three alerts per scan.
	discharges := 0
	for i := 1; i < len(readings) && discharges < 3; i++ {
		drop := pct(readings[i]) - pct(readings[i-1])
		if drop < -RapidDischargePoints {
			msg := "Rapid battery discharge detected. Check for power leaks."
			faults = append(faults, Fault{
				Timestamp: readings[i].Timestamp,
				Kind:      "rapid_battery_discharge",
				Severity:  model.SeverityMedium,
				Message:   msg,
			})
			d.raiseAlert(model.AlertBatteryDischarge, model.SeverityMedium, msg)
			discharges++
		}
	}

	// Low battery on the latest reading.
	latest := pct(readings[len(readings)-1])
	if latest < LowBatteryPercent {
		msg := fmt.Sprintf("Critical battery level: %.1f%%. Immediate action required.", latest)
		faults = append(faults, Fault{
			Timestamp: readings[len(readings)-1].Timestamp,
			Kind:      "low_battery",
			Severity:  model.SeverityHigh,
			Message:   msg,
			Details:   map[string]float64{"battery_percentage": latest},
		})
		d.raiseAlert(model.AlertLowBattery, model.SeverityHigh, msg)
	}

	return faults, nil
}

// CheckConnectivity verifies that readings are still arriving and fresh.
func (d *Detector) CheckConnectivity() ([]Fault, error) {
	var faults []Fault
	now := d.now()

	readings, err := d.store.LatestReadings(1)
	if err != nil {
		return nil, fmt.Errorf("connectivity check: %w", err)
	}
	if len(readings) == 0 {
		msg := "No energy data received. Check system connectivity."
		faults = append(faults, Fault{
			Timestamp: now,
			Kind:      "no_energy_data",
			Severity:  model.SeverityCritical,
			Message:   msg,
		})
		d.raiseAlert(model.AlertConnectivity, model.SeverityCritical, msg)
	} else {
		ageMin := now.Sub(readings[0].Timestamp).Minutes()
		if ageMin > StaleDataMinutes {
			msg := fmt.Sprintf("Energy data is stale. Last update: %.1f minutes ago.", ageMin)
			faults = append(faults, Fault{
				Timestamp: now,
				Kind:      "stale_data",
				Severity:  model.SeverityMedium,
				Message:   msg,
				Details:   map[string]float64{"age_minutes": ageMin},
			})
			d.raiseAlert(model.AlertStaleData, model.SeverityMedium, msg)
		}
	}

	solar, err := d.store.LatestSolar(1)
	if err != nil {
		return nil, fmt.Errorf("connectivity check: %w", err)
	}
	if len(solar) == 0 {
		msg := "No solar data received. Check solar monitoring system."
		faults = append(faults, Fault{
			Timestamp: now,
			Kind:      "no_solar_data",
			Severity:  model.SeverityHigh,
			Message:   msg,
		})
		d.raiseAlert(model.AlertConnectivity, model.SeverityHigh, msg)
	}

	return faults, nil
}

// RunComprehensiveCheck executes every rule group and aggregates results.
// Internal errors become a system_error alert; the periodic caller must
// never crash from a scan.
func (d *Detector) RunComprehensiveCheck() []Fault {
	var all []Fault
	var firstErr error

	checks := []func() ([]Fault, error){
		func() ([]Fault, error) { return d.CheckSolar(1) },
		func() ([]Fault, error) { return d.CheckWind(1) },
		func() ([]Fault, error) { return d.CheckBattery(24) },
		d.CheckConnectivity,
	}
	for _, check := range checks {
		faults, err := check()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		all = append(all, faults...)
	}

	if firstErr != nil {
		metrics.ScanErrors.Inc()
		msg := fmt.Sprintf("Fault detection system error: %v", firstErr)
		all = append(all, Fault{
			Timestamp: d.now(),
			Kind:      "system_error",
			Severity:  model.SeverityCritical,
			Message:   msg,
		})
		d.raiseAlert(model.AlertSystemError, model.SeverityCritical, msg)
	}

	return all
}

// Summary aggregates alert counts over a period.
type Summary struct {
	TotalFaults int                       `json:"total_faults"`
	ByType      map[model.AlertType]int   `json:"by_type"`
	BySeverity  map[model.Severity]int    `json:"by_severity"`
}

// FaultSummary groups alerts raised in the last N days by type and severity.
func (d *Detector) FaultSummary(days int) (Summary, error) {
	since := d.now().AddDate(0, 0, -days)
	counts, err := d.store.AlertCountsSince(since)
	if err != nil {
		return Summary{}, fmt.Errorf("fault summary: %w", err)
	}

	s := Summary{
		ByType:     make(map[model.AlertType]int),
		BySeverity: make(map[model.Severity]int),
	}
	for _, c := range counts {
		s.TotalFaults += c.Count
		s.ByType[c.Type] += c.Count
		s.BySeverity[c.Severity] += c.Count
	}
	return s, nil
}

// Run executes the comprehensive check on a fixed interval until the process
// exits. Each scan is already crash-proof; this loop only paces it.
func (d *Detector) Run(interval time.Duration) {
	for {
		faults := d.RunComprehensiveCheck()
		if len(faults) > 0 {
			log.Printf("fault scan: %d fault(s) detected", len(faults))
		}
		time.Sleep(interval)
	}
}
