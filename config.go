package chs

import (
	"fmt"

	"github.com/David-Tong/consistent-hashing-scheduler/internal/hash"
)

// DefaultVirtualNodes is the number of virtual nodes each server gets on every ring.
const DefaultVirtualNodes = 10

// Config is the configuration for the Scheduler.
type Config struct {
	// ImbalanceFactor scales the mean server load into the per-server ceiling
	// (maxAssignedLoad = mean load * ImbalanceFactor). Must be > 1.0.
	//
	// Smaller values keep loads tighter at the cost of more ring walks and
	// faster category growth.
	ImbalanceFactor float64 `yaml:"imbalanceFactor"`

	// BoundLoadThresholdFactor scales the per-category share of servers
	// (serverCount / number of categories) into the number of servers a
	// category may claim before it must reuse its own. Must be > 0.
	BoundLoadThresholdFactor float64 `yaml:"boundLoadThresholdFactor"`

	// VirtualNodes is the number of virtual nodes per server per ring.
	// Default: 10
	VirtualNodes int `yaml:"virtualNodes"`

	// HashFunction selects the ring hash: "fnv" (default) or "xxh3".
	HashFunction string `yaml:"hashFunction"`
}

// DefaultConfig returns a configuration with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values applied
//
// Example:
//
//	cfg := chs.DefaultConfig()
//	cfg.ImbalanceFactor = 1.1
//	sched, err := chs.NewScheduler(servers, &cfg)
func DefaultConfig() Config {
	return Config{
		ImbalanceFactor:          1.25,
		BoundLoadThresholdFactor: 1.0,
		VirtualNodes:             DefaultVirtualNodes,
		HashFunction:             hash.NameFNV,
	}
}

// SetDefaults fills zero-valued fields in cfg with values from DefaultConfig().
//
// Parameters:
//   - cfg: Configuration to update (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.ImbalanceFactor == 0 {
		cfg.ImbalanceFactor = defaults.ImbalanceFactor
	}
	if cfg.BoundLoadThresholdFactor == 0 {
		cfg.BoundLoadThresholdFactor = defaults.BoundLoadThresholdFactor
	}
	if cfg.VirtualNodes == 0 {
		cfg.VirtualNodes = defaults.VirtualNodes
	}
	if cfg.HashFunction == "" {
		cfg.HashFunction = defaults.HashFunction
	}
}

// Validate checks configuration constraints.
//
// Validation Rules:
//   - ImbalanceFactor > 1.0 (some server is always within the ceiling)
//   - BoundLoadThresholdFactor > 0
//   - VirtualNodes >= 1
//   - HashFunction is a known hash
//
// Returns:
//   - error: ErrInvalidConfig (wrapped) describing the first violation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.ImbalanceFactor <= 1.0 {
		return fmt.Errorf("%w: imbalanceFactor must be > 1.0, got %v", ErrInvalidConfig, cfg.ImbalanceFactor)
	}

	if cfg.BoundLoadThresholdFactor <= 0 {
		return fmt.Errorf("%w: boundLoadThresholdFactor must be > 0, got %v", ErrInvalidConfig, cfg.BoundLoadThresholdFactor)
	}

	if cfg.VirtualNodes < 1 {
		return fmt.Errorf("%w: virtualNodes must be >= 1, got %d", ErrInvalidConfig, cfg.VirtualNodes)
	}

	if _, err := hash.Lookup(cfg.HashFunction); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// ValidateWithWarnings logs warnings for valid but non-recommended values.
//
// This is called after Validate() in NewScheduler() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.ImbalanceFactor < 1.05 {
		logger.Warn(
			"imbalanceFactor is very close to 1.0, expect long ring walks",
			"imbalanceFactor", cfg.ImbalanceFactor,
			"recommended", "1.1 or higher",
		)
	}

	if cfg.VirtualNodes < DefaultVirtualNodes {
		logger.Warn(
			"virtualNodes is below the default, distribution may be uneven",
			"virtualNodes", cfg.VirtualNodes,
			"recommended", DefaultVirtualNodes,
		)
	}
}
