package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var historyDays int

var tradeCmd = &cobra.Command{
	Use:   "trade <buy|sell> <amount_kwh> [price_per_kwh]",
	Short: "Execute an energy trade",
	Long: `Records a grid trade. With no price given, the current time-of-day
tariff is used.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runTrade,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print trade history and market analytics",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyDays, "days", 30, "days of history to summarize")
	rootCmd.AddCommand(tradeCmd)
	rootCmd.AddCommand(historyCmd)
}

func runTrade(cmd *cobra.Command, args []string) error {
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

	tradeType := args[0]
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[1], err)
	}

	var price float64
	if len(args) == 3 {
		price, err = strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", args[2], err)
		}
	} else {
		quote := engine.CurrentQuote()
		if tradeType == "sell" {
			price = quote.SellPrice
		} else {
			price = quote.BuyPrice
		}
	}

	result := engine.ExecuteTrade(tradeType, amount, price)
	if !result.Success {
		return fmt.Errorf("trade rejected: %s", result.Message)
	}
	fmt.Println(result.Message)
	fmt.Printf("Transaction ID: %s\n", result.TransactionID)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	history, err := engine.History(historyDays)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	fmt.Printf("Trades in last %d day(s): %d\n", historyDays, len(history.Transactions))
	for _, tx := range history.Transactions {
		fmt.Printf("  %s  %-4s %.2f kWh @ $%.3f = $%.2f [%s]\n",
			tx.Timestamp.Format("2006-01-02 15:04"), tx.Type, tx.AmountKWh,
			tx.PricePerKWh, tx.TotalAmount, tx.Status)
	}
	fmt.Printf("Bought %.2f kWh ($%.2f), sold %.2f kWh ($%.2f), net $%.2f\n",
		history.Summary.TotalBoughtKWh, history.Summary.TotalSpent,
		history.Summary.TotalSoldKWh, history.Summary.TotalEarned,
		history.Summary.NetProfit)

	market, err := engine.MarketAnalytics(historyDays)
	if err != nil {
		return fmt.Errorf("computing market analytics: %w", err)
	}
	fmt.Printf("\nNext 24h: %d peak, %d off-peak, %d standard hour(s); avg buy $%.3f, avg sell $%.3f\n",
		market.PriceAnalysis.PeakHours, market.PriceAnalysis.OffPeakHours,
		market.PriceAnalysis.StandardHours, market.PriceAnalysis.AvgBuyPrice,
		market.PriceAnalysis.AvgSellPrice)
	for _, rec := range market.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}
	return nil
}
