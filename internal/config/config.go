package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	ListenAddr      string `yaml:"listen_addr,omitempty"`
	DBPath          string `yaml:"db_path,omitempty"`
	TickIntervalSec int    `yaml:"tick_interval_sec,omitempty"`
	ScanIntervalSec int    `yaml:"scan_interval_sec,omitempty"`
	BackfillDays    int    `yaml:"backfill_days,omitempty"`

	SolarCapacityW    float64 `yaml:"solar_capacity_w,omitempty"`
	WindCapacityW     float64 `yaml:"wind_capacity_w,omitempty"`
	BaseConsumptionW  float64 `yaml:"base_consumption_w,omitempty"`
	BatteryCapacityWh float64 `yaml:"battery_capacity_wh,omitempty"`

	BaseBuyPrice  float64 `yaml:"base_buy_price,omitempty"`
	BaseSellPrice float64 `yaml:"base_sell_price,omitempty"`

	Seed uint64 `yaml:"seed,omitempty"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() *Config {
	return &Config{
		ListenAddr:        ":8080",
		DBPath:            "microgrid.db",
		TickIntervalSec:   30,
		ScanIntervalSec:   300,
		BackfillDays:      7,
		SolarCapacityW:    5000,
		WindCapacityW:     3000,
		BaseConsumptionW:  2000,
		BatteryCapacityWh: 10000,
		BaseBuyPrice:      0.12,
		BaseSellPrice:     0.08,
		Seed:              1,
	}
}

// Load reads the config file, fills in defaults, and applies environment
// overrides. A missing file is not an error; defaults are returned.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save writes the config to file.
func Save(configPath string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the default config file path (local directory).
func DefaultConfigPath() string {
	return "config.yaml"
}

// applyEnv overrides selected fields from the environment. A local .env file
// is loaded first if present.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("MICROGRID_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("MICROGRID_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("MICROGRID_TICK_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TickIntervalSec = n
		}
	}
	if v := os.Getenv("MICROGRID_SCAN_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ScanIntervalSec = n
		}
	}
	if v := os.Getenv("MICROGRID_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Seed = n
		}
	}
}

// TickInterval returns the telemetry generation interval.
func (c *Config) TickInterval() time.Duration {
	if c.TickIntervalSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TickIntervalSec) * time.Second
}

// ScanInterval returns the fault scan interval.
func (c *Config) ScanInterval() time.Duration {
	if c.ScanIntervalSec <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.ScanIntervalSec) * time.Second
}
