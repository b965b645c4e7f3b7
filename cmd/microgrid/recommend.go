package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scheduleHours int

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print the current trading recommendation and schedule",
	Long: `Derives a trading recommendation from the latest reading and the
time-of-day tariff, then prints the planned trades for the coming hours.`,
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().IntVar(&scheduleHours, "hours", 24, "hours of schedule to plan")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	engine := newTradingEngine(cfg, s)

	rec, err := engine.Recommend()
	if err != nil {
		return fmt.Errorf("computing recommendation: %w", err)
	}
	fmt.Printf("Status:   %s (net %.0fW, battery %.1f%%)\n",
		rec.EnergyStatus.Status, rec.EnergyStatus.SurplusDeficitW, rec.EnergyStatus.BatteryPercent)
	fmt.Printf("Prices:   buy $%.3f / sell $%.3f (%s)\n", rec.BuyPrice, rec.SellPrice, rec.PriceCategory)
	fmt.Printf("Action:   %s", rec.Action)
	if rec.AmountKWh > 0 {
		fmt.Printf(" %.2f kWh ($%.2f)", rec.AmountKWh, rec.Value)
	}
	fmt.Printf("\nReason:   %s\n", rec.Reason)

	fmt.Printf("\nSchedule (%dh):\n", scheduleHours)
	for _, entry := range engine.Schedule(scheduleHours) {
		if entry.Action == "hold" {
			continue
		}
		fmt.Printf("  %s  %-4s %.2f kWh  $%+.2f  battery %.0f%%  (%s)\n",
			entry.Time, entry.Action, entry.AmountKWh, entry.EstimatedValue,
			entry.BatteryAfterPct, entry.Category)
	}
	return nil
}
