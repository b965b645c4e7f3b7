package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"microgrid/internal/analytics"
	"microgrid/internal/predictor"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print energy statistics, trends, and the next-hour prediction",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "days of history to analyze")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	pred := predictor.NewNeuralPredictor(predictor.DefaultTrainConfig(), cfg.Seed)
	a := analytics.New(s, pred)

	avg, err := a.Averages(statsDays)
	if err != nil {
		return fmt.Errorf("computing averages: %w", err)
	}
	fmt.Printf("Averages over %d day(s):\n", statsDays)
	fmt.Printf("  solar        %8.1f W\n", avg.AvgSolarW)
	fmt.Printf("  wind         %8.1f W\n", avg.AvgWindW)
	fmt.Printf("  consumption  %8.1f W\n", avg.AvgConsumptionW)
	fmt.Printf("  storage      %8.1f Wh\n", avg.AvgStorageWh)

	daily, err := a.DailyStatistics(statsDays)
	if err != nil && !errors.Is(err, analytics.ErrNoData) {
		return fmt.Errorf("computing daily statistics: %w", err)
	}
	if len(daily) > 0 {
		fmt.Println("\nDaily generation (mean/max W):")
		for _, d := range daily {
			fmt.Printf("  %s  solar %.0f/%.0f  wind %.0f/%.0f  load %.0f/%.0f\n",
				d.Date, d.Solar.MeanW, d.Solar.MaxW, d.Wind.MeanW, d.Wind.MaxW,
				d.Consumption.MeanW, d.Consumption.MaxW)
		}
	}

	balance, err := a.EnergyBalance(statsDays)
	switch {
	case errors.Is(err, analytics.ErrNoData):
		fmt.Println("\nNo telemetry for energy balance")
	case err != nil:
		return fmt.Errorf("computing energy balance: %w", err)
	default:
		fmt.Printf("\nEnergy balance: generated %.2f kWh, consumed %.2f kWh (%.1f%% self-sufficient)\n",
			balance.TotalGenerationKWh, balance.TotalConsumptionKWh, balance.SelfSufficiencyPct)
		fmt.Printf("  surplus hours: %v\n  deficit hours: %v\n", balance.SurplusHours, balance.DeficitHours)
	}

	trends, err := a.EfficiencyTrends()
	switch {
	case errors.Is(err, analytics.ErrNoData):
	case err != nil:
		return fmt.Errorf("analyzing efficiency trends: %w", err)
	default:
		fmt.Printf("\nSolar efficiency: avg %.3f, sun/power correlation %.3f\n",
			trends.AvgEfficiency, trends.SunPowerCorrelation)
		if len(trends.LowEfficiencyDays) > 0 {
			fmt.Printf("  low-efficiency days: %v\n", trends.LowEfficiencyDays)
		}
	}

	targets, err := a.PredictNextHour()
	switch {
	case errors.Is(err, predictor.ErrInsufficientData):
		fmt.Println("\nNo prediction available: insufficient training data")
	case err != nil:
		return fmt.Errorf("predicting next hour: %w", err)
	default:
		fmt.Printf("\nNext hour prediction: solar %.0f W, wind %.0f W, consumption %.0f W\n",
			targets.SolarW, targets.WindW, targets.ConsumptionW)
		outlook, err := a.TradeOutlook(newTradingEngine(cfg, s).Pricing())
		if err != nil {
			return fmt.Errorf("computing trade outlook: %w", err)
		}
		fmt.Printf("Trade outlook: %s (predicted net %.2f kWh)\n", outlook.Action, outlook.PredictedNetKWh)
	}
	return nil
}
