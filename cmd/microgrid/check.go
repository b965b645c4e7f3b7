package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"microgrid/internal/faults"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one comprehensive fault scan",
	Long: `Runs the solar, wind, battery, and connectivity checks once against the
stored telemetry and prints any faults found, followed by a 7-day summary.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	detector := faults.NewDetector(s, faults.Config{
		SolarCapacityW:    cfg.SolarCapacityW,
		WindCapacityW:     cfg.WindCapacityW,
		BatteryCapacityWh: cfg.BatteryCapacityWh,
	})

	found := detector.RunComprehensiveCheck()
	if len(found) == 0 {
		fmt.Println("No faults detected")
	}
	for _, f := range found {
		fmt.Printf("[%s] %s: %s\n", f.Severity, f.Kind, f.Message)
	}

	summary, err := detector.FaultSummary(7)
	if err != nil {
		return fmt.Errorf("summarizing faults: %w", err)
	}
	fmt.Printf("\nLast 7 days: %d fault(s)\n", summary.TotalFaults)
	for typ, count := range summary.ByType {
		fmt.Printf("  %-24s %d\n", typ, count)
	}
	return nil
}
