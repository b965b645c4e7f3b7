package model

import "time"

// AlertType identifies the fault category an alert belongs to.
type AlertType string

const (
	AlertSolarFault       AlertType = "solar_fault"
	AlertEfficiencyDrop   AlertType = "efficiency_drop"
	AlertOverheating      AlertType = "overheating"
	AlertWindFault        AlertType = "wind_fault"
	AlertBatteryFault     AlertType = "battery_fault"
	AlertBatteryDischarge AlertType = "battery_discharge"
	AlertLowBattery       AlertType = "low_battery"
	AlertConnectivity     AlertType = "connectivity"
	AlertStaleData        AlertType = "stale_data"
	AlertSystemError      AlertType = "system_error"
)

// Severity orders alerts for the dashboard. Matches the alert log schema.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Reading is one complete measurement cycle of the micro-grid. Immutable
// once appended to the store.
type Reading struct {
	Timestamp    time.Time `json:"timestamp"`
	SolarPowerW  float64   `json:"solar_power_w"`
	WindPowerW   float64   `json:"wind_power_w"`
	ConsumptionW float64   `json:"consumption_w"`
	BatteryWh    float64   `json:"battery_wh"`
	GridImportW  float64   `json:"grid_import_w"`
	GridExportW  float64   `json:"grid_export_w"`
}

// SolarSample holds the panel-level detail recorded alongside each Reading.
type SolarSample struct {
	Timestamp  time.Time `json:"timestamp"`
	IntensityW float64   `json:"sun_intensity"` // irradiance, W/m²
	PanelTempC float64   `json:"panel_temp_c"`
	PowerW     float64   `json:"power_w"`
	Efficiency float64   `json:"efficiency"`
	Status     string    `json:"status"`
}

// WindSample holds the turbine-level detail recorded alongside each Reading.
type WindSample struct {
	Timestamp    time.Time `json:"timestamp"`
	SpeedMps     float64   `json:"wind_speed_mps"`
	DirectionDeg float64   `json:"wind_direction_deg"`
	PowerW       float64   `json:"power_w"`
	Status       string    `json:"status"`
}

// Alert is an append-only fault record. A condition re-detected on the next
// scan creates a new Alert rather than updating the prior one. Only the
// Resolved flag is ever mutated, and only by the dashboard layer.
type Alert struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      AlertType `json:"type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Resolved  bool      `json:"resolved"`
}

// Transaction records an executed grid trade. Immutable once written.
type Transaction struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"` // "buy" or "sell"
	AmountKWh   float64   `json:"amount_kwh"`
	PricePerKWh float64   `json:"price_per_kwh"`
	TotalAmount float64   `json:"total_amount"`
	Status      string    `json:"status"`
}
