// Package config loads the yaml configuration of the chs binary.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	chs "github.com/David-Tong/consistent-hashing-scheduler"
	"github.com/David-Tong/consistent-hashing-scheduler/intake"
	"github.com/David-Tong/consistent-hashing-scheduler/workload"
)

// Run modes.
const (
	ModeSimulate = "simulate"
	ModeServe    = "serve"
	ModeAgent    = "agent"
)

// Weight distributions.
const (
	WeightsRandom      = "random"
	WeightsUniform     = "uniform"
	WeightsExponential = "exponential"
)

// NATS connection modes.
const (
	NATSEmbedded = "embedded"
	NATSExternal = "external"
)

// Config is the root configuration structure.
type Config struct {
	Mode       string           `yaml:"mode"` // "simulate", "serve", "agent"
	Scheduler  chs.Config       `yaml:"scheduler"`
	Servers    ServersConfig    `yaml:"servers"`
	Workload   WorkloadConfig   `yaml:"workload"`
	NATS       NATSConfig       `yaml:"nats"`
	Intake     intake.Config    `yaml:"intake"`
	Membership MembershipConfig `yaml:"membership"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServersConfig lists the initial server pool.
//
// Addresses wins over Generate when both are set.
type ServersConfig struct {
	Addresses []string       `yaml:"addresses"`
	Generate  GenerateConfig `yaml:"generate"`
}

// GenerateConfig produces "<prefix>-<i>" addresses.
type GenerateConfig struct {
	Prefix string `yaml:"prefix"` // "server"
	Count  int    `yaml:"count"`  // 10
}

// WorkloadConfig configures the simulate mode.
type WorkloadConfig struct {
	workload.RunnerConfig `yaml:",inline"`

	Seed    uint64        `yaml:"seed"`
	Weights WeightsConfig `yaml:"weights"`
}

// WeightsConfig selects the task weight distribution.
type WeightsConfig struct {
	Distribution string                   `yaml:"distribution"` // "random", "uniform", "exponential"
	Max          int64                    `yaml:"max"`          // upper bound for "random"
	Uniform      int64                    `yaml:"uniform"`      // weight for "uniform"
	Exponential  ExponentialWeightsConfig `yaml:"exponential"`
}

// ExponentialWeightsConfig configures exponential weight distribution.
type ExponentialWeightsConfig struct {
	ExtremePercent float64 `yaml:"extremePercent"` // 0.05 = 5% of tasks
	ExtremeWeight  int64   `yaml:"extremeWeight"`
	NormalWeight   int64   `yaml:"normalWeight"`
}

// NATSConfig configures the NATS connection of the serve mode.
type NATSConfig struct {
	Mode     string `yaml:"mode"` // "embedded", "external"
	URL      string `yaml:"url"`  // "nats://localhost:4222"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	StoreDir string `yaml:"storeDir"`
}

// MembershipConfig configures heartbeat-driven server membership.
//
// In serve mode a watcher adds and removes announced servers; in agent mode
// the process announces Servers.Addresses.
type MembershipConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Bucket   string        `yaml:"bucket"`   // "chs-servers"
	Prefix   string        `yaml:"prefix"`   // "servers"
	Interval time.Duration `yaml:"interval"` // heartbeat period, e.g. "5s"
	TTL      time.Duration `yaml:"ttl"`      // bucket TTL, 3x interval by default
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"` // ":9090"
	Namespace string `yaml:"namespace"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text", "json"
}

// LoadConfig loads configuration from a YAML file.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded configuration with defaults applied
//   - error: Error if file cannot be read, parsed or validated
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML document, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
