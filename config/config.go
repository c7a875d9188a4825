// Package config loads the runtime configuration from a YAML file and
// FLINT_ prefixed environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FLINT_"

// Defaults applied by Normalize.
const (
	DefaultTickRate  = 20
	DefaultIOWorkers = 64
	DefaultLogLevel  = "info"
	DefaultAddress   = ":19132"
)

// Config is the runtime configuration. CPUWorkers defaults to GOMAXPROCS.
type Config struct {
	// TickRate is the number of world ticks per second.
	TickRate   int    `yaml:"tick_rate" env:"TICK_RATE"`
	CPUWorkers int    `yaml:"cpu_workers" env:"CPU_WORKERS"`
	IOWorkers  int    `yaml:"io_workers" env:"IO_WORKERS"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL"`
	Server     Server `yaml:"server" envPrefix:"SERVER_"`
}

// Server holds the settings of the reference server binary.
type Server struct {
	Address     string `yaml:"address" env:"ADDRESS"`
	Name        string `yaml:"name" env:"NAME"`
	MaxPlayers  int    `yaml:"max_players" env:"MAX_PLAYERS"`
	WorldFolder string `yaml:"world_folder" env:"WORLD_FOLDER"`
	AuthEnabled bool   `yaml:"auth_enabled" env:"AUTH_ENABLED"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	cfg := Config{
		LogLevel: DefaultLogLevel,
		Server: Server{
			Address:     DefaultAddress,
			Name:        "Flint",
			WorldFolder: "world",
			AuthEnabled: true,
		},
	}
	cfg.Normalize()
	return cfg
}

// Load reads path over the defaults, then applies environment variables.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Normalize replaces unset or out of range values with defaults.
func (c *Config) Normalize() {
	if c.TickRate <= 0 {
		c.TickRate = DefaultTickRate
	}
	if c.CPUWorkers <= 0 {
		c.CPUWorkers = runtime.GOMAXPROCS(0)
	}
	if c.IOWorkers <= 0 {
		c.IOWorkers = DefaultIOWorkers
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.Server.Address) == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.MaxPlayers < 0 {
		c.Server.MaxPlayers = 0
	}
}

// Validate reports values Normalize cannot repair.
func (c Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level of LogLevel, or info if it is invalid.
func (c Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level: unknown level %q", s)
}
