// Package metrics provides Prometheus instrumentation for the micro-grid
// simulator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksTotal counts telemetry generation cycles.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "microgrid_ticks_total",
		Help: "Total telemetry readings generated",
	})

	// TickErrors counts generation cycles that failed and were skipped.
	TickErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "microgrid_tick_errors_total",
		Help: "Telemetry generation errors",
	})

	// AlertsTotal counts raised alerts, partitioned by severity.
	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "microgrid_alerts_total",
		Help: "Total alerts raised",
	}, []string{"severity"})

	// ScanErrors counts fault scans that ended in a system_error alert.
	ScanErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "microgrid_scan_errors_total",
		Help: "Fault detection scans that failed internally",
	})

	// TradesTotal counts executed trades, partitioned by side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "microgrid_trades_total",
		Help: "Total trades executed",
	}, []string{"side"})

	// WebSocketClients tracks connected dashboard clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "microgrid_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
