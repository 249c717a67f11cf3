package chs

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/David-Tong/consistent-hashing-scheduler/internal/hash"
	"github.com/David-Tong/consistent-hashing-scheduler/internal/logging"
	"github.com/David-Tong/consistent-hashing-scheduler/internal/metrics"
	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// Ring paths reported to the metrics collector.
const (
	pathCategory = "category"
	pathGeneral  = "general"
)

// Rebuild reasons reported to the metrics collector.
const (
	rebuildAddServer    = "add_server"
	rebuildRemoveServer = "remove_server"
)

// Scheduler assigns tasks to servers with bounded-load consistent hashing.
//
// It owns one general ring holding every server plus one ring per task
// category. Category rings start empty and grow as the general ring admits
// servers into them.
//
// Thread Safety:
//   - ScheduleTask, ReleaseTask and the inspection methods run concurrently
//   - AddServer and RemoveServer exclude every other call while rebuilding
type Scheduler struct {
	cfg     Config
	hashFn  hash.Func
	logger  Logger
	metrics MetricsCollector

	// topoMu is held for reading while a ring is walked and for writing while
	// rings are rebuilt.
	topoMu     sync.RWMutex
	index      *xsync.Map[string, *types.Server]
	general    *registry
	categories []*registry

	stats *loadStats
}

// RingView describes the contents of one ring.
type RingView struct {
	// Name is "general" or the category name.
	Name string `json:"name"`

	// Servers lists the registered addresses, sorted.
	Servers []string `json:"servers"`

	// VirtualNodes maps each address to its virtual node count on the ring.
	VirtualNodes map[string]int `json:"virtualNodes"`

	// Size is the total number of virtual nodes on the ring.
	Size int `json:"size"`
}

// NewScheduler creates a scheduler over the initial server pool.
//
// Zero-valued config fields are filled from DefaultConfig() on a copy of cfg;
// the caller's Config is not modified.
//
// Parameters:
//   - servers: Initial server pool (must be non-empty, addresses unique)
//   - cfg: Scheduler configuration
//   - opts: Optional logger and metrics collector
//
// Returns:
//   - *Scheduler: Scheduler ready for concurrent use
//   - error: ErrInvalidConfig, ErrNoServers, ErrNilServer or ErrServerExists (wrapped)
//
// Example:
//
//	cfg := chs.DefaultConfig()
//	sched, err := chs.NewScheduler(servers, &cfg, chs.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
func NewScheduler(servers []*types.Server, cfg *Config, opts ...Option) (*Scheduler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	config := *cfg
	SetDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	hashFn, err := hash.Lookup(config.HashFunction)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if len(servers) == 0 {
		return nil, fmt.Errorf("new scheduler: %w", ErrNoServers)
	}

	options := &schedulerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}

	config.ValidateWithWarnings(loggerInstance)

	s := &Scheduler{
		cfg:     config,
		hashFn:  hashFn,
		logger:  loggerInstance,
		metrics: metricsCollector,
		index:   xsync.NewMap[string, *types.Server](),
	}

	pool := make(map[string]*types.Server, len(servers))
	for i, srv := range servers {
		if srv == nil {
			return nil, fmt.Errorf("new scheduler: server %d: %w", i, ErrNilServer)
		}
		if _, ok := pool[srv.Address()]; ok {
			return nil, fmt.Errorf("new scheduler: %s: %w", srv.Address(), ErrServerExists)
		}
		pool[srv.Address()] = srv
		s.index.Store(srv.Address(), srv)
	}

	s.general = newRegistry(generalRing, pool, config.VirtualNodes, hashFn)
	s.categories = make([]*registry, types.NumCategories())
	for _, c := range types.Categories() {
		s.categories[c] = newRegistry(c.String(), nil, config.VirtualNodes, hashFn)
	}
	s.stats = newLoadStats(&config, len(pool))

	s.metrics.RecordServerCount(len(pool))
	s.logger.Info("scheduler created",
		"servers", len(pool),
		"categories", types.NumCategories(),
		"virtualNodes", config.VirtualNodes,
		"hashFunction", config.HashFunction,
		"imbalanceFactor", config.ImbalanceFactor,
		"boundLoadThresholdFactor", config.BoundLoadThresholdFactor,
	)

	return s, nil
}

// ScheduleTask assigns task to a server and adds the task weight to its load.
//
// The category ring is probed first. Its successor server is accepted when
// its load is within maxAssignedLoad. Otherwise the category either grows
// (its registry holds no more than boundLoadThreshold servers) through the
// general ring, or walks its own ring when one of its servers is still within
// the bound. The general ring walk admits the chosen server into the category.
//
// Parameters:
//   - task: Task to schedule
//
// Returns:
//   - *types.Server: Server the task was assigned to
//   - error: ErrInvalidTask, ErrUnknownCategory or ErrNoServers (wrapped)
func (s *Scheduler) ScheduleTask(task types.Task) (*types.Server, error) {
	start := time.Now()

	if err := task.Validate(); err != nil {
		s.metrics.RecordScheduleError(errorReason(err))
		return nil, err
	}

	s.topoMu.RLock()
	defer s.topoMu.RUnlock()

	stats, err := s.stats.record(task.Weight)
	if err != nil {
		s.metrics.RecordScheduleError(errorReason(err))
		return nil, fmt.Errorf("schedule task %s: %w", task.ID, err)
	}
	s.metrics.RecordThresholds(stats.LoadSum, stats.MaxAssignedLoad, stats.BoundLoadThreshold)

	h := s.hashFn(task.ID)
	category := s.categories[task.Category]

	path := pathCategory
	srv := s.probeCategory(category, h, stats)
	if srv == nil {
		path = pathGeneral
		srv = s.walkGeneral(h, stats.MaxAssignedLoad)

		if category.admit(srv) {
			size := category.size()
			s.metrics.RecordAdmission(category.name)
			s.metrics.RecordCategoryServers(category.name, size)
			s.logger.Debug("server admitted into category",
				"category", category.name,
				"server", srv.Address(),
				"categoryServers", size,
				"boundLoadThreshold", stats.BoundLoadThreshold,
			)
		}
	}

	srv.AddTask(task)
	s.metrics.RecordSchedule(category.name, path, time.Since(start).Seconds())

	return srv, nil
}

// probeCategory returns a server from the category ring, or nil when the
// task must go through the general ring.
func (s *Scheduler) probeCategory(reg *registry, h uint64, stats Stats) *types.Server {
	view := reg.load()
	if view.ring.Empty() {
		return nil
	}

	bound := stats.MaxAssignedLoad
	idx := view.ring.Successor(h)
	if srv := view.server(idx); withinBound(srv, bound) {
		return srv
	}

	// The category may still grow
	if len(view.servers) <= stats.BoundLoadThreshold {
		return nil
	}

	if !view.hasServerWithin(bound) {
		return nil
	}

	srv, _ := s.walk(reg.name, view, view.ring.Next(idx), 1, bound)

	return srv
}

// walkGeneral returns the first server within bound clockwise from h on the
// general ring. When a full lap finds none, the least loaded server is used.
func (s *Scheduler) walkGeneral(h uint64, bound float64) *types.Server {
	view := s.general.load()

	srv, ok := s.walk(generalRing, view, view.ring.Successor(h), 0, bound)
	if !ok {
		srv = view.leastLoaded()
		s.logger.Warn("no server within load bound, using least loaded server",
			"server", srv.Address(),
			"load", srv.Load(),
			"maxAssignedLoad", bound,
		)
	}

	return srv
}

// walk visits at most one lap of the ring starting at idx and returns the
// first server whose load is within bound. skipped counts virtual nodes the
// caller already rejected.
func (s *Scheduler) walk(ring string, view *registryView, idx int, skipped int, bound float64) (*types.Server, bool) {
	for step := range view.ring.Size() {
		srv := view.server(idx)
		if withinBound(srv, bound) {
			if steps := skipped + step; steps > 0 {
				s.metrics.RecordWalkSteps(ring, steps)
			}

			return srv, true
		}
		idx = view.ring.Next(idx)
	}

	s.metrics.RecordBoundOverflow(ring)

	return nil, false
}

func withinBound(srv *types.Server, bound float64) bool {
	return float64(srv.Load()) <= bound
}

// ReleaseTask removes the task weight from the server at addr and from the
// running load sum. The server load never drops below zero.
//
// Parameters:
//   - addr: Address of the server the task was assigned to
//   - task: The completed task
//
// Returns:
//   - error: ErrInvalidTask, ErrUnknownCategory or ErrServerNotFound (wrapped)
func (s *Scheduler) ReleaseTask(addr string, task types.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	s.topoMu.RLock()
	defer s.topoMu.RUnlock()

	srv, ok := s.index.Load(addr)
	if !ok {
		return fmt.Errorf("release task %s: %s: %w", task.ID, addr, ErrServerNotFound)
	}

	released := srv.CompleteTask(task)
	s.stats.release(released)

	return nil
}

// AddServer registers server in the general ring and rebuilds every ring.
//
// Returns:
//   - error: ErrNilServer or ErrServerExists (wrapped)
func (s *Scheduler) AddServer(server *types.Server) error {
	if server == nil {
		return ErrNilServer
	}

	s.topoMu.Lock()
	defer s.topoMu.Unlock()

	if _, loaded := s.index.LoadOrStore(server.Address(), server); loaded {
		return fmt.Errorf("add server %s: %w", server.Address(), ErrServerExists)
	}

	pool := maps.Clone(s.general.load().servers)
	pool[server.Address()] = server

	s.rebuildLocked(rebuildAddServer, pool, "")

	return nil
}

// RemoveServer unregisters the server's address from every ring and
// rebuilds every ring.
//
// The load of the removed server stays in the running load sum.
//
// Returns:
//   - error: ErrNilServer or ErrServerNotFound (wrapped)
func (s *Scheduler) RemoveServer(server *types.Server) error {
	if server == nil {
		return ErrNilServer
	}

	s.topoMu.Lock()
	defer s.topoMu.Unlock()

	addr := server.Address()
	if _, ok := s.index.LoadAndDelete(addr); !ok {
		return fmt.Errorf("remove server %s: %w", addr, ErrServerNotFound)
	}

	s.rebuildLocked(rebuildRemoveServer, s.general.without(addr), addr)

	return nil
}

// rebuildLocked rebuilds the general ring from pool and every category ring
// from its registry minus removed. Caller must hold topoMu for writing.
func (s *Scheduler) rebuildLocked(reason string, pool map[string]*types.Server, removed string) {
	start := time.Now()

	s.general.rebuild(pool)
	virtualNodes := s.general.load().ring.Size()

	for _, reg := range s.categories {
		servers := reg.load().servers
		if removed != "" {
			servers = reg.without(removed)
		}
		reg.rebuild(servers)

		virtualNodes += reg.load().ring.Size()
		s.metrics.RecordCategoryServers(reg.name, reg.size())
	}

	s.stats.setServerCount(len(pool))

	duration := time.Since(start)
	s.metrics.RecordServerCount(len(pool))
	s.metrics.RecordRebuild(reason, duration.Seconds(), virtualNodes)
	s.logger.Info("rings rebuilt",
		"reason", reason,
		"servers", len(pool),
		"virtualNodes", virtualNodes,
		"duration", duration,
	)
}

// Stats returns a snapshot of the scheduler thresholds.
func (s *Scheduler) Stats() Stats {
	return s.stats.snapshot()
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Servers returns the registered servers sorted by address.
func (s *Scheduler) Servers() []*types.Server {
	servers := make([]*types.Server, 0, s.index.Size())
	s.index.Range(func(_ string, srv *types.Server) bool {
		servers = append(servers, srv)
		return true
	})

	slices.SortFunc(servers, func(a, b *types.Server) int {
		return strings.Compare(a.Address(), b.Address())
	})

	return servers
}

// Server returns the registered server at addr.
func (s *Scheduler) Server(addr string) (*types.Server, bool) {
	return s.index.Load(addr)
}

// CategoryServers returns the addresses admitted into category, sorted.
//
// Returns:
//   - []string: Admitted addresses (empty before the first admission)
//   - error: ErrUnknownCategory (wrapped) for a category outside the enumerated set
func (s *Scheduler) CategoryServers(category types.Category) ([]string, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	return slices.Sorted(maps.Keys(s.categories[category].load().servers)), nil
}

// Rings describes the general ring followed by every category ring.
func (s *Scheduler) Rings() []RingView {
	s.topoMu.RLock()
	defer s.topoMu.RUnlock()

	views := make([]RingView, 0, len(s.categories)+1)
	views = append(views, describe(s.general))
	for _, reg := range s.categories {
		views = append(views, describe(reg))
	}

	return views
}

func describe(reg *registry) RingView {
	view := reg.load()

	return RingView{
		Name:         reg.name,
		Servers:      slices.Sorted(maps.Keys(view.servers)),
		VirtualNodes: view.ring.VirtualNodeCounts(),
		Size:         view.ring.Size(),
	}
}

// errorReason maps a scheduling error to its metrics label.
func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTask):
		return "invalid_task"
	case errors.Is(err, ErrUnknownCategory):
		return "unknown_category"
	case errors.Is(err, ErrNoServers):
		return "no_servers"
	default:
		return "unknown"
	}
}
