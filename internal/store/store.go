package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"microgrid/internal/model"
)

// Store is the append-only time-series log backed by SQLite. All timestamps
// are stored as RFC 3339 UTC text so range queries compare lexically.
type Store struct {
	conn *sql.DB
}

const timeLayout = time.RFC3339Nano

// Open creates a store at the given path and initializes the schema. The
// connection pool is capped at one connection: readers and writers are
// serialized per operation, no long-held locks.
func Open(dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		solar_power_w REAL NOT NULL,
		wind_power_w REAL NOT NULL,
		consumption_w REAL NOT NULL,
		battery_wh REAL NOT NULL,
		grid_import_w REAL NOT NULL DEFAULT 0,
		grid_export_w REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON readings(timestamp);

	CREATE TABLE IF NOT EXISTS solar_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		sun_intensity REAL NOT NULL,
		panel_temp_c REAL NOT NULL,
		power_w REAL NOT NULL,
		efficiency REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'OK'
	);
	CREATE INDEX IF NOT EXISTS idx_solar_timestamp ON solar_samples(timestamp);

	CREATE TABLE IF NOT EXISTS wind_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		wind_speed_mps REAL NOT NULL,
		wind_direction_deg REAL NOT NULL,
		power_w REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'OK'
	);
	CREATE INDEX IF NOT EXISTS idx_wind_timestamp ON wind_samples(timestamp);

	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		alert_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		resolved INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp);
	CREATE INDEX IF NOT EXISTS idx_alerts_resolved ON alerts(resolved);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		amount_kwh REAL NOT NULL,
		price_per_kwh REAL NOT NULL,
		total_amount REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// InsertReading appends one telemetry reading.
func (s *Store) InsertReading(r model.Reading) error {
	_, err := s.conn.Exec(`
		INSERT INTO readings (timestamp, solar_power_w, wind_power_w, consumption_w, battery_wh, grid_import_w, grid_export_w)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp.UTC().Format(timeLayout), r.SolarPowerW, r.WindPowerW, r.ConsumptionW,
		r.BatteryWh, r.GridImportW, r.GridExportW)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// InsertSolarSample appends one solar panel sample.
func (s *Store) InsertSolarSample(sample model.SolarSample) error {
	status := sample.Status
	if status == "" {
		status = "OK"
	}
	_, err := s.conn.Exec(`
		INSERT INTO solar_samples (timestamp, sun_intensity, panel_temp_c, power_w, efficiency, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sample.Timestamp.UTC().Format(timeLayout), sample.IntensityW, sample.PanelTempC,
		sample.PowerW, sample.Efficiency, status)
	if err != nil {
		return fmt.Errorf("inserting solar sample: %w", err)
	}
	return nil
}

// InsertWindSample appends one wind turbine sample.
func (s *Store) InsertWindSample(sample model.WindSample) error {
	status := sample.Status
	if status == "" {
		status = "OK"
	}
	_, err := s.conn.Exec(`
		INSERT INTO wind_samples (timestamp, wind_speed_mps, wind_direction_deg, power_w, status)
		VALUES (?, ?, ?, ?, ?)`,
		sample.Timestamp.UTC().Format(timeLayout), sample.SpeedMps, sample.DirectionDeg,
		sample.PowerW, status)
	if err != nil {
		return fmt.Errorf("inserting wind sample: %w", err)
	}
	return nil
}

// InsertAlert appends an alert. Alerts are never updated or deleted apart
// from the resolved flag.
func (s *Store) InsertAlert(a model.Alert) error {
	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.conn.Exec(`
		INSERT INTO alerts (timestamp, alert_type, severity, message, resolved)
		VALUES (?, ?, ?, ?, 0)`,
		ts.UTC().Format(timeLayout), string(a.Type), string(a.Severity), a.Message)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	return nil
}

// InsertTransaction records an executed trade.
func (s *Store) InsertTransaction(t model.Transaction) error {
	_, err := s.conn.Exec(`
		INSERT INTO transactions (id, timestamp, transaction_type, amount_kwh, price_per_kwh, total_amount, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Timestamp.UTC().Format(timeLayout), t.Type, t.AmountKWh, t.PricePerKWh,
		t.TotalAmount, t.Status)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	return nil
}

// ReadingsSince returns readings at or after the given time, oldest first.
func (s *Store) ReadingsSince(since time.Time) ([]model.Reading, error) {
	rows, err := s.conn.Query(`
		SELECT timestamp, solar_power_w, wind_power_w, consumption_w, battery_wh, grid_import_w, grid_export_w
		FROM readings WHERE timestamp >= ? ORDER BY timestamp`,
		since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()
	return scanReadings(rows)
}

// LatestReadings returns the most recent n readings, newest first.
func (s *Store) LatestReadings(n int) ([]model.Reading, error) {
	rows, err := s.conn.Query(`
		SELECT timestamp, solar_power_w, wind_power_w, consumption_w, battery_wh, grid_import_w, grid_export_w
		FROM readings ORDER BY timestamp DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying latest readings: %w", err)
	}
	defer rows.Close()
	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]model.Reading, error) {
	var result []model.Reading
	for rows.Next() {
		var r model.Reading
		var ts string
		if err := rows.Scan(&ts, &r.SolarPowerW, &r.WindPowerW, &r.ConsumptionW,
			&r.BatteryWh, &r.GridImportW, &r.GridExportW); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		t, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing reading timestamp: %w", err)
		}
		r.Timestamp = t
		result = append(result, r)
	}
	return result, rows.Err()
}

// SolarSince returns solar samples at or after the given time, oldest first.
func (s *Store) SolarSince(since time.Time) ([]model.SolarSample, error) {
	rows, err := s.conn.Query(`
		SELECT timestamp, sun_intensity, panel_temp_c, power_w, efficiency, status
		FROM solar_samples WHERE timestamp >= ? ORDER BY timestamp`,
		since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("querying solar samples: %w", err)
	}
	defer rows.Close()
	return scanSolar(rows)
}

// LatestSolar returns the most recent n solar samples, newest first.
func (s *Store) LatestSolar(n int) ([]model.SolarSample, error) {
	rows, err := s.conn.Query(`
		SELECT timestamp, sun_intensity, panel_temp_c, power_w, efficiency, status
		FROM solar_samples ORDER BY timestamp DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying latest solar samples: %w", err)
	}
	defer rows.Close()
	return scanSolar(rows)
}

func scanSolar(rows *sql.Rows) ([]model.SolarSample, error) {
	var result []model.SolarSample
	for rows.Next() {
		var sample model.SolarSample
		var ts string
		if err := rows.Scan(&ts, &sample.IntensityW, &sample.PanelTempC,
			&sample.PowerW, &sample.Efficiency, &sample.Status); err != nil {
			return nil, fmt.Errorf("scanning solar sample: %w", err)
		}
		t, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing solar timestamp: %w", err)
		}
		sample.Timestamp = t
		result = append(result, sample)
	}
	return result, rows.Err()
}

// WindSince returns wind samples at or after the given time, oldest first.
func (s *Store) WindSince(since time.Time) ([]model.WindSample, error) {
	rows, err := s.conn.Query(`
		SELECT timestamp, wind_speed_mps, wind_direction_deg, power_w, status
		FROM wind_samples WHERE timestamp >= ? ORDER BY timestamp`,
		since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("querying wind samples: %w", err)
	}
	defer rows.Close()

	var result []model.WindSample
	for rows.Next() {
		var sample model.WindSample
		var ts string
		if err := rows.Scan(&ts, &sample.SpeedMps, &sample.DirectionDeg,
			&sample.PowerW, &sample.Status); err != nil {
			return nil, fmt.Errorf("scanning wind sample: %w", err)
		}
		t, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing wind timestamp: %w", err)
		}
		sample.Timestamp = t
		result = append(result, sample)
	}
	return result, rows.Err()
}

// UnresolvedAlerts returns all open alerts, newest first.
func (s *Store) UnresolvedAlerts() ([]model.Alert, error) {
	rows, err := s.conn.Query(`
		SELECT id, timestamp, alert_type, severity, message, resolved
		FROM alerts WHERE resolved = 0 ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var result []model.Alert
	for rows.Next() {
		var a model.Alert
		var ts, typ, sev string
		var resolved int
		if err := rows.Scan(&a.ID, &ts, &typ, &sev, &a.Message, &resolved); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		t, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing alert timestamp: %w", err)
		}
		a.Timestamp = t
		a.Type = model.AlertType(typ)
		a.Severity = model.Severity(sev)
		a.Resolved = resolved != 0
		result = append(result, a)
	}
	return result, rows.Err()
}

// ResolveAlert marks an alert as resolved. Called by the dashboard layer,
// not by the detector.
func (s *Store) ResolveAlert(id int64) error {
	_, err := s.conn.Exec(`UPDATE alerts SET resolved = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("resolving alert: %w", err)
	}
	return nil
}

// AlertCount is one row of the fault summary grouping.
type AlertCount struct {
	Type     model.AlertType `json:"type"`
	Severity model.Severity  `json:"severity"`
	Count    int             `json:"count"`
}

// AlertCountsSince returns alert counts grouped by type and severity for
// alerts at or after the given time.
func (s *Store) AlertCountsSince(since time.Time) ([]AlertCount, error) {
	rows, err := s.conn.Query(`
		SELECT alert_type, severity, COUNT(*) FROM alerts
		WHERE timestamp >= ? GROUP BY alert_type, severity ORDER BY COUNT(*) DESC`,
		since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("querying alert counts: %w", err)
	}
	defer rows.Close()

	var result []AlertCount
	for rows.Next() {
		var c AlertCount
		var typ, sev string
		if err := rows.Scan(&typ, &sev, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning alert count: %w", err)
		}
		c.Type = model.AlertType(typ)
		c.Severity = model.Severity(sev)
		result = append(result, c)
	}
	return result, rows.Err()
}

// TransactionsSince returns trades at or after the given time, newest first.
func (s *Store) TransactionsSince(since time.Time) ([]model.Transaction, error) {
	rows, err := s.conn.Query(`
		SELECT id, timestamp, transaction_type, amount_kwh, price_per_kwh, total_amount, status
		FROM transactions WHERE timestamp >= ? ORDER BY timestamp DESC`,
		since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var result []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var ts string
		if err := rows.Scan(&t.ID, &ts, &t.Type, &t.AmountKWh, &t.PricePerKWh,
			&t.TotalAmount, &t.Status); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		parsed, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing transaction timestamp: %w", err)
		}
		t.Timestamp = parsed
		result = append(result, t)
	}
	return result, rows.Err()
}

// ReadingCount returns the total number of stored readings. Used by the
// server to decide whether a first-boot backfill is needed.
func (s *Store) ReadingCount() (int, error) {
	var n int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM readings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting readings: %w", err)
	}
	return n, nil
}
