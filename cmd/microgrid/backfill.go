package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backfillDays int

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Generate historical telemetry into the database",
	Long: `Replays the telemetry generator over the past days at 30-minute steps.
Useful to seed a fresh database before analytics or predictor training.`,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().IntVar(&backfillDays, "days", 0, "days of history to generate (default from config)")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	days := backfillDays
	if days <= 0 {
		days = cfg.BackfillDays
	}

	return newGenerator(cfg, s).Backfill(days)
}
