package chs

import (
	"math"
	"sync"

	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// Stats is a consistent snapshot of the scheduler thresholds.
type Stats struct {
	// LoadSum is the sum of the weights of all scheduled tasks, minus released weight.
	LoadSum int64 `json:"loadSum"`

	// ServerCount is the number of registered servers.
	ServerCount int `json:"serverCount"`

	// MaxAssignedLoad is the per-server load ceiling computed by the last
	// ScheduleTask call: the truncated mean load times the imbalance factor.
	MaxAssignedLoad float64 `json:"maxAssignedLoad"`

	// BoundLoadThreshold is the number of servers a category may hold before
	// it stops growing, as computed by the last ScheduleTask call.
	BoundLoadThreshold int `json:"boundLoadThreshold"`
}

// loadStats guards the aggregate scheduler state.
//
// Every field is read and written under mu so a caller always observes the
// four values as one unit.
type loadStats struct {
	mu                 sync.Mutex
	loadSum            int64
	serverCount        int
	maxAssignedLoad    float64
	boundLoadThreshold int

	imbalanceFactor          float64
	boundLoadThresholdFactor float64
	numCategories            int
}

func newLoadStats(cfg *Config, serverCount int) *loadStats {
	return &loadStats{
		serverCount:              serverCount,
		imbalanceFactor:          cfg.ImbalanceFactor,
		boundLoadThresholdFactor: cfg.BoundLoadThresholdFactor,
		numCategories:            types.NumCategories(),
	}
}

// record adds weight to the load sum, recomputes both thresholds and returns
// the resulting snapshot. Nothing changes when no server is registered.
func (s *loadStats) record(weight int64) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.serverCount == 0 {
		return Stats{}, ErrNoServers
	}

	s.loadSum += weight
	// Both shares truncate before the factor applies
	s.maxAssignedLoad = float64(s.loadSum/int64(s.serverCount)) * s.imbalanceFactor
	s.boundLoadThreshold = int(math.Floor(float64(s.serverCount/s.numCategories) * s.boundLoadThresholdFactor))

	return s.snapshotLocked(), nil
}

// release subtracts weight from the load sum.
func (s *loadStats) release(weight int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadSum = max(s.loadSum-weight, 0)
}

func (s *loadStats) setServerCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.serverCount = n
}

func (s *loadStats) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *loadStats) snapshotLocked() Stats {
	return Stats{
		LoadSum:            s.loadSum,
		ServerCount:        s.serverCount,
		MaxAssignedLoad:    s.maxAssignedLoad,
		BoundLoadThreshold: s.boundLoadThreshold,
	}
}
