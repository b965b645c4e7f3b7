package ws

import (
	"encoding/json"
	"time"

	"microgrid/internal/model"
	"microgrid/internal/trading"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants
const (
	// Server -> Client
	TypeReading        = "telemetry:reading"
	TypeAlert          = "alert:new"
	TypeRecommendation = "trading:recommendation"
	TypeSnapshot       = "snapshot"

	// Client -> Server
	TypeSnapshotRequest = "snapshot:request"
)

// ReadingPayload is one telemetry reading pushed to dashboards.
type ReadingPayload struct {
	Timestamp    string  `json:"timestamp"`
	SolarPowerW  float64 `json:"solar_power_w"`
	WindPowerW   float64 `json:"wind_power_w"`
	ConsumptionW float64 `json:"consumption_w"`
	BatteryWh    float64 `json:"battery_wh"`
	GridImportW  float64 `json:"grid_import_w"`
	GridExportW  float64 `json:"grid_export_w"`
}

// AlertPayload is one raised alert.
type AlertPayload struct {
	ID        int64  `json:"id,omitempty"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
}

// SnapshotPayload is the initial state sent to a newly connected client.
type SnapshotPayload struct {
	Readings       []ReadingPayload        `json:"readings"`
	Alerts         []AlertPayload          `json:"alerts"`
	Recommendation *trading.Recommendation `json:"recommendation,omitempty"`
}

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func ReadingFromModel(r model.Reading) ReadingPayload {
	return ReadingPayload{
		Timestamp:    r.Timestamp.Format(time.RFC3339),
		SolarPowerW:  r.SolarPowerW,
		WindPowerW:   r.WindPowerW,
		ConsumptionW: r.ConsumptionW,
		BatteryWh:    r.BatteryWh,
		GridImportW:  r.GridImportW,
		GridExportW:  r.GridExportW,
	}
}

func AlertFromModel(a model.Alert) AlertPayload {
	return AlertPayload{
		ID:        a.ID,
		Timestamp: a.Timestamp.Format(time.RFC3339),
		Type:      string(a.Type),
		Severity:  string(a.Severity),
		Message:   a.Message,
	}
}
