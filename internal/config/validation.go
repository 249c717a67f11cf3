package config

import (
	"errors"
	"fmt"

	"github.com/David-Tong/consistent-hashing-scheduler/internal/logging"
)

// validateConfig validates the configuration for logical consistency.
//
//nolint:cyclop
func validateConfig(cfg *Config) error {
	validModes := map[string]bool{
		ModeSimulate: true,
		ModeServe:    true,
		ModeAgent:    true,
	}
	if !validModes[cfg.Mode] {
		return fmt.Errorf("invalid mode: %s (must be one of: simulate, serve, agent)", cfg.Mode)
	}

	if err := cfg.Scheduler.Validate(); err != nil {
		return err
	}

	if len(cfg.Servers.Addresses) == 0 && cfg.Servers.Generate.Count <= 0 {
		return errors.New("server count must be positive")
	}

	if cfg.Workload.Runners <= 0 {
		return errors.New("runner count must be positive")
	}
	if cfg.Workload.TasksPerRunner <= 0 {
		return errors.New("tasks per runner must be positive")
	}
	if cfg.Workload.Rounds <= 0 {
		return errors.New("rounds must be positive")
	}
	if cfg.Workload.Pause < 0 {
		return errors.New("pause cannot be negative")
	}

	validDistributions := map[string]bool{
		WeightsRandom:      true,
		WeightsUniform:     true,
		WeightsExponential: true,
	}
	if !validDistributions[cfg.Workload.Weights.Distribution] {
		return fmt.Errorf("invalid distribution: %s (must be one of: random, uniform, exponential)", cfg.Workload.Weights.Distribution)
	}

	if cfg.Workload.Weights.Distribution == WeightsExponential {
		exp := cfg.Workload.Weights.Exponential
		if exp.ExtremePercent <= 0 || exp.ExtremePercent >= 1 {
			return errors.New("extreme percent must be between 0 and 1")
		}
		if exp.ExtremeWeight <= 0 {
			return errors.New("extreme weight must be positive")
		}
		if exp.NormalWeight <= 0 {
			return errors.New("normal weight must be positive")
		}
	}

	validNATSModes := map[string]bool{
		NATSEmbedded: true,
		NATSExternal: true,
	}
	if !validNATSModes[cfg.NATS.Mode] {
		return fmt.Errorf("invalid nats mode: %s (must be one of: embedded, external)", cfg.NATS.Mode)
	}
	if cfg.NATS.Port < 0 {
		return errors.New("nats port cannot be negative")
	}

	if cfg.Membership.Interval <= 0 {
		return errors.New("membership interval must be positive")
	}
	if cfg.Membership.TTL <= cfg.Membership.Interval {
		return errors.New("membership ttl must exceed the heartbeat interval")
	}
	if cfg.Mode == ModeAgent && len(cfg.Servers.Addresses) == 0 {
		return errors.New("agent mode needs servers.addresses to announce")
	}

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return err
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be one of: text, json)", cfg.Logging.Format)
	}

	return nil
}
