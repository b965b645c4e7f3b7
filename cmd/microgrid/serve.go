package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"microgrid/internal/faults"
	"microgrid/internal/metrics"
	"microgrid/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the simulator with background loops and a WebSocket feed",
	Long: `Starts the continuous telemetry loop and the periodic fault scanner, and
serves live readings, alerts, and trading recommendations over WebSocket.
An empty database is backfilled with historical data before the loops start.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	generator := newGenerator(cfg, s)
	engine := newTradingEngine(cfg, s)
	detector := faults.NewDetector(s, faults.Config{
		SolarCapacityW:    cfg.SolarCapacityW,
		WindCapacityW:     cfg.WindCapacityW,
		BatteryCapacityWh: cfg.BatteryCapacityWh,
	})

	hub := ws.NewHub()
	bridge := ws.NewBridge(hub)
	bridge.SetRecommender(engine)
	generator.SetCallback(bridge)
	detector.SetNotifier(bridge)

	// Seed history before the loops start so the first fault scan and
	// trading queries have data to work with.
	count, err := s.ReadingCount()
	if err != nil {
		return fmt.Errorf("counting readings: %w", err)
	}
	if count == 0 {
		log.Printf("empty database, backfilling %d day(s) of history", cfg.BackfillDays)
		if err := generator.Backfill(cfg.BackfillDays); err != nil {
			return fmt.Errorf("backfilling history: %w", err)
		}
	}

	go generator.Run(cfg.TickInterval())
	go detector.Run(cfg.ScanInterval())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/ws", ws.NewHandler(hub, s, engine))

	log.Printf("listening on %s", cfg.ListenAddr)
	return http.ListenAndServe(cfg.ListenAddr, mux)
}
