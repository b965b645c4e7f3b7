package main

import (
	"math/rand/v2"

	"github.com/spf13/cobra"

	"microgrid/internal/config"
	"microgrid/internal/simulator"
	"microgrid/internal/store"
	"microgrid/internal/timemodel"
	"microgrid/internal/trading"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "microgrid",
	Short: "Simulate and monitor a household renewable micro-grid",
	Long: `Microgrid simulates a household renewable energy system: solar panels,
a wind turbine, battery storage, and a grid connection. It generates synthetic
telemetry, detects equipment faults, and recommends energy trades based on
time-of-day prices.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default from config)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// openStore opens the database using the --db override or the config path
func openStore(cfg *config.Config) (*store.Store, error) {
	path := cfg.DBPath
	if dbPath != "" {
		path = dbPath
	}
	return store.Open(path)
}

// newGenerator builds a telemetry generator from the config with a seeded RNG.
func newGenerator(cfg *config.Config, s *store.Store) *simulator.Generator {
	rng := rand.New(rand.NewPCG(cfg.Seed, 0))
	tm := timemodel.New(rng)
	return simulator.NewGenerator(simulator.Config{
		SolarCapacityW:    cfg.SolarCapacityW,
		WindCapacityW:     cfg.WindCapacityW,
		BaseConsumptionW:  cfg.BaseConsumptionW,
		BatteryCapacityWh: cfg.BatteryCapacityWh,
	}, s, tm, rng)
}

// newTradingEngine builds a trading engine from the config.
func newTradingEngine(cfg *config.Config, s *store.Store) *trading.Engine {
	pricing := trading.NewPricing(cfg.BaseBuyPrice, cfg.BaseSellPrice)
	return trading.NewEngine(s, pricing, cfg.BatteryCapacityWh)
}
