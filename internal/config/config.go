// Package config loads service configuration from defaults, an optional YAML file
// and the environment, in that order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/denisok6893-rgb/buybox-recommender/internal/convergence"
	"github.com/denisok6893-rgb/buybox-recommender/internal/logging"
	"github.com/denisok6893-rgb/buybox-recommender/internal/matching"
)

type Config struct {
	Server      ServerConfig       `koanf:"server"`
	Database    DatabaseConfig     `koanf:"database"`
	Logging     LoggingConfig      `koanf:"logging"`
	WeightsPath string             `koanf:"weights_path"`
	Matching    matching.Config    `koanf:"matching"`
	Convergence convergence.Config `koanf:"convergence"`
}

type ServerConfig struct {
	Address      string        `koanf:"address"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
	// CandidatesPath, when set, is imported into the candidates table on startup.
	CandidatesPath string `koanf:"candidates_path"`
	// MarketsPath, when set, is imported into the markets table on startup.
	MarketsPath string `koanf:"markets_path"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "data/buybox.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WeightsPath: "configs/weights.json",
		Matching:    matching.DefaultConfig(),
		Convergence: convergence.DefaultConfig(),
	}
}

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	if err := c.Convergence.Validate(); err != nil {
		return fmt.Errorf("convergence: %w", err)
	}
	return nil
}

// ScoringConfig overlays the weights file, when one is configured, on the layered
// matching settings. Batch size and concurrency always come from the layered config.
// On error the layered settings are returned with the error so callers can log and
// carry on.
func (c *Config) ScoringConfig() (matching.Config, error) {
	if c.WeightsPath == "" {
		return c.Matching, nil
	}
	w, err := matching.OverlayConfigFile(c.Matching, c.WeightsPath)
	if err != nil {
		return c.Matching, err
	}
	w.PropertiesPerMarket = c.Matching.PropertiesPerMarket
	w.MaxConcurrency = c.Matching.MaxConcurrency
	return w, nil
}
