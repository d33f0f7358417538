package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Graph GraphConfig `yaml:"graph"`
	Sim   SimConfig   `yaml:"sim"`
	Web   WebConfig   `yaml:"web"`
	NATS  NATSConfig  `yaml:"nats"`
	Store StoreConfig `yaml:"store"`
	Log   LogConfig   `yaml:"log"`
}

// GraphConfig selects the navigation graph. An empty Path builds a
// GridWidth x GridHeight demo grid.
type GraphConfig struct {
	Path       string  `yaml:"path"`
	GridWidth  int     `yaml:"grid_width"`
	GridHeight int     `yaml:"grid_height"`
	Spacing    float64 `yaml:"spacing"`
	Chargers   []int   `yaml:"chargers"`
}

type SimConfig struct {
	TickInterval   time.Duration `yaml:"tick_interval"`
	Speed          float64       `yaml:"speed"`
	DrainPerUnit   float64       `yaml:"drain_per_unit"`
	ChargePerTick  float64       `yaml:"charge_per_tick"`
	LowBattery     float64       `yaml:"low_battery"`
	InitialBattery float64       `yaml:"initial_battery"`
	MetricsPath    string        `yaml:"metrics_path"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type NATSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Embedded bool   `yaml:"embedded"`
	Port     int    `yaml:"port"`
	URL      string `yaml:"url"`
}

type StoreConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Driver        string        `yaml:"driver"`
	DSN           string        `yaml:"dsn"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

func defaults() Config {
	return Config{
		Graph: GraphConfig{
			GridWidth:  5,
			GridHeight: 5,
			Spacing:    1,
			Chargers:   []int{1, 25},
		},
		Sim: SimConfig{
			TickInterval:   100 * time.Millisecond,
			Speed:          0.25,
			DrainPerUnit:   4,
			ChargePerTick:  10,
			LowBattery:     20,
			InitialBattery: 100,
		},
		Web: WebConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		NATS: NATSConfig{
			Embedded: true,
			Port:     4222,
		},
		Store: StoreConfig{
			Driver:        "sqlite",
			DSN:           "data/fleet.db",
			BatchSize:     100,
			FlushInterval: 2 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "logs/fleet_logs.txt",
		},
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("FLEET_CONFIG")
	if path == "" {
		path = "fleet.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults + env
	} else {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FLEET_GRAPH"); v != "" {
		cfg.Graph.Path = v
	}
	if v := os.Getenv("FLEET_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sim.TickInterval = d
		}
	}
	if v := os.Getenv("FLEET_SPEED"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Sim.Speed = f
		}
	}
	if v := os.Getenv("FLEET_WEB_ADDR"); v != "" {
		cfg.Web.Addr = v
	}
	if v := os.Getenv("FLEET_WEB_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Web.Enabled = b
		}
	}
	if v := os.Getenv("FLEET_NATS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.NATS.Enabled = b
		}
	}
	if v := os.Getenv("FLEET_NATS_URL"); v != "" {
		cfg.NATS.URL = v
		cfg.NATS.Embedded = false
	}
	if v := os.Getenv("FLEET_NATS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.NATS.Port = port
		}
	}
	if v := os.Getenv("FLEET_STORE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Store.Enabled = b
		}
	}
	if v := os.Getenv("FLEET_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("FLEET_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("FLEET_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("FLEET_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v, ok := os.LookupEnv("FLEET_LOG_FILE"); ok {
		cfg.Log.File = v
	}
}

func (c *Config) validate() error {
	if c.Graph.Path == "" && (c.Graph.GridWidth < 1 || c.Graph.GridHeight < 1) {
		return fmt.Errorf("graph: grid size %dx%d", c.Graph.GridWidth, c.Graph.GridHeight)
	}
	if c.Sim.TickInterval <= 0 {
		return fmt.Errorf("sim: tick_interval must be positive, got %v", c.Sim.TickInterval)
	}
	switch c.Store.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("store: unknown driver %q", c.Store.Driver)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	return nil
}

// SlogLevel maps the configured level name, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
