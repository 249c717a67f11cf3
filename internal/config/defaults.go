package config

import (
	"time"

	chs "github.com/David-Tong/consistent-hashing-scheduler"
	"github.com/David-Tong/consistent-hashing-scheduler/intake"
)

// applyDefaults applies default values to configuration fields that are not set.
//
//nolint:cyclop
func applyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = ModeSimulate
	}

	chs.SetDefaults(&cfg.Scheduler)

	// Servers defaults
	if len(cfg.Servers.Addresses) == 0 {
		if cfg.Servers.Generate.Prefix == "" {
			cfg.Servers.Generate.Prefix = "server"
		}
		if cfg.Servers.Generate.Count == 0 {
			cfg.Servers.Generate.Count = 10
		}
	}

	// Workload defaults
	if cfg.Workload.Runners == 0 {
		cfg.Workload.Runners = 4
	}
	if cfg.Workload.TasksPerRunner == 0 {
		cfg.Workload.TasksPerRunner = 1000
	}
	if cfg.Workload.Rounds == 0 {
		cfg.Workload.Rounds = 1
	}
	if cfg.Workload.Pause == 0 {
		cfg.Workload.Pause = 100 * time.Millisecond
	}
	if cfg.Workload.Weights.Distribution == "" {
		cfg.Workload.Weights.Distribution = WeightsRandom
	}
	if cfg.Workload.Weights.Max == 0 {
		cfg.Workload.Weights.Max = 10
	}
	if cfg.Workload.Weights.Uniform == 0 {
		cfg.Workload.Weights.Uniform = 1
	}
	if cfg.Workload.Weights.Exponential.ExtremePercent == 0 {
		cfg.Workload.Weights.Exponential.ExtremePercent = 0.05
	}
	if cfg.Workload.Weights.Exponential.ExtremeWeight == 0 {
		cfg.Workload.Weights.Exponential.ExtremeWeight = 100
	}
	if cfg.Workload.Weights.Exponential.NormalWeight == 0 {
		cfg.Workload.Weights.Exponential.NormalWeight = 1
	}

	// NATS defaults
	if cfg.NATS.Mode == "" {
		cfg.NATS.Mode = NATSEmbedded
	}
	if cfg.NATS.Mode == NATSExternal && cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.NATS.Host == "" {
		cfg.NATS.Host = "127.0.0.1"
	}

	intake.SetDefaults(&cfg.Intake)

	// Membership defaults
	if cfg.Mode == ModeAgent {
		cfg.Membership.Enabled = true
	}
	if cfg.Membership.Bucket == "" {
		cfg.Membership.Bucket = "chs-servers"
	}
	if cfg.Membership.Prefix == "" {
		cfg.Membership.Prefix = "servers"
	}
	if cfg.Membership.Interval == 0 {
		cfg.Membership.Interval = 5 * time.Second
	}
	if cfg.Membership.TTL == 0 {
		cfg.Membership.TTL = 3 * cfg.Membership.Interval
	}

	// Metrics defaults
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "chs"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
