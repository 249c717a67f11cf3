package chs

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/David-Tong/consistent-hashing-scheduler/internal/hash"
	"github.com/David-Tong/consistent-hashing-scheduler/internal/logging"
	chstest "github.com/David-Tong/consistent-hashing-scheduler/testing"
	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// recordingMetrics counts metric calls by name.
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

var _ types.MetricsCollector = (*recordingMetrics)(nil)

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]int)}
}

func (m *recordingMetrics) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
}

func (m *recordingMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.counts[key]
}

func (m *recordingMetrics) RecordSchedule(category, path string, _ float64) {
	m.inc("schedule:" + category + ":" + path)
}
func (m *recordingMetrics) RecordScheduleError(reason string) { m.inc("error:" + reason) }
func (m *recordingMetrics) RecordWalkSteps(ring string, _ int) { m.inc("walk:" + ring) }
func (m *recordingMetrics) RecordAdmission(category string)    { m.inc("admission:" + category) }
func (m *recordingMetrics) RecordBoundOverflow(ring string)    { m.inc("overflow:" + ring) }
func (m *recordingMetrics) RecordThresholds(int64, float64, int) {
	m.inc("thresholds")
}
func (m *recordingMetrics) RecordRebuild(reason string, _ float64, _ int) {
	m.inc("rebuild:" + reason)
}
func (m *recordingMetrics) RecordServerCount(int)              { m.inc("servers") }
func (m *recordingMetrics) RecordCategoryServers(string, int) { m.inc("categoryServers") }

func makeServers(n int) []*types.Server {
	servers := make([]*types.Server, n)
	for i := range servers {
		servers[i] = types.NewServer(fmt.Sprintf("10.0.0.%d", i+1))
	}

	return servers
}

func newTestScheduler(t *testing.T, n int, opts ...Option) *Scheduler {
	t.Helper()

	cfg := DefaultConfig()
	s, err := NewScheduler(makeServers(n), &cfg, opts...)
	require.NoError(t, err)

	return s
}

func taskID(i int) string {
	return fmt.Sprintf("%012d", i)
}

// requireRingsConsistent checks that every ring holds exactly the virtual
// nodes of its registered servers and that category servers are registered.
func requireRingsConsistent(t *testing.T, s *Scheduler) {
	t.Helper()

	vnodes := s.Config().VirtualNodes
	views := s.Rings()
	require.Len(t, views, types.NumCategories()+1)
	require.Equal(t, generalRing, views[0].Name)

	general := make(map[string]bool, len(views[0].Servers))
	for _, addr := range views[0].Servers {
		general[addr] = true
	}

	for _, view := range views {
		require.Len(t, view.VirtualNodes, len(view.Servers), "ring %s", view.Name)
		for _, addr := range view.Servers {
			require.Equal(t, vnodes, view.VirtualNodes[addr], "ring %s server %s", view.Name, addr)
			require.True(t, general[addr], "ring %s holds unregistered server %s", view.Name, addr)
		}
		require.Equal(t, len(view.Servers)*vnodes, view.Size, "ring %s", view.Name)
	}
}

func TestNewScheduler(t *testing.T) {
	t.Run("builds general ring and empty category rings", func(t *testing.T) {
		s := newTestScheduler(t, 3, WithLogger(chstest.NewTestLogger(t)))

		views := s.Rings()
		require.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, views[0].Servers)
		require.Equal(t, 30, views[0].Size)
		for _, view := range views[1:] {
			require.Empty(t, view.Servers)
			require.Zero(t, view.Size)
		}

		require.Equal(t, Stats{ServerCount: 3}, s.Stats())
		requireRingsConsistent(t, s)
	})

	t.Run("fills zero config fields without touching the caller's config", func(t *testing.T) {
		cfg := Config{ImbalanceFactor: 1.5}
		s, err := NewScheduler(makeServers(2), &cfg)
		require.NoError(t, err)

		require.Equal(t, 1.5, s.Config().ImbalanceFactor)
		require.Equal(t, DefaultVirtualNodes, s.Config().VirtualNodes)
		require.Zero(t, cfg.VirtualNodes)
	})

	t.Run("errors", func(t *testing.T) {
		cfg := DefaultConfig()
		dup := makeServers(2)
		dup[1] = types.NewServer(dup[0].Address())

		badImbalance := DefaultConfig()
		badImbalance.ImbalanceFactor = 1.0
		badBound := DefaultConfig()
		badBound.BoundLoadThresholdFactor = -0.5

		testCases := []struct {
			name    string
			servers []*types.Server
			cfg     *Config
			wantErr error
		}{
			{"nil config", makeServers(1), nil, ErrInvalidConfig},
			{"imbalance factor of one", makeServers(1), &badImbalance, ErrInvalidConfig},
			{"negative bound factor", makeServers(1), &badBound, ErrInvalidConfig},
			{"no servers", nil, &cfg, ErrNoServers},
			{"nil server", []*types.Server{nil}, &cfg, ErrNilServer},
			{"duplicate address", dup, &cfg, ErrServerExists},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				s, err := NewScheduler(tc.servers, tc.cfg)
				require.ErrorIs(t, err, tc.wantErr)
				require.Nil(t, s)
			})
		}
	})
}

func TestScheduler_Locality(t *testing.T) {
	s := newTestScheduler(t, 5)

	for i := range 200 {
		task := types.Task{ID: taskID(i), Category: types.Categories()[i%types.NumCategories()]}

		first, err := s.ScheduleTask(task)
		require.NoError(t, err)
		second, err := s.ScheduleTask(task)
		require.NoError(t, err)

		require.Same(t, first, second, "task %s", task.ID)
	}
}

func TestScheduler_CategoryClustering(t *testing.T) {
	s := newTestScheduler(t, 5)

	first, err := s.ScheduleTask(types.Task{ID: taskID(0), Category: types.CategoryCompute})
	require.NoError(t, err)

	// Weightless tasks never overload the single admitted server
	for i := 1; i < 100; i++ {
		srv, err := s.ScheduleTask(types.Task{ID: taskID(i), Category: types.CategoryCompute})
		require.NoError(t, err)
		require.Same(t, first, srv)
	}

	compute, err := s.CategoryServers(types.CategoryCompute)
	require.NoError(t, err)
	require.Equal(t, []string{first.Address()}, compute)

	storage, err := s.CategoryServers(types.CategoryStorage)
	require.NoError(t, err)
	require.Empty(t, storage, "categories grow independently")
}

func TestScheduler_BoundedLoad(t *testing.T) {
	testCases := []struct {
		name         string
		servers      int
		hashFunction string
		imbalance    float64
		boundFactor  float64
	}{
		{"three servers", 3, hash.NameFNV, 1.25, 1.0},
		{"ten servers", 10, hash.NameFNV, 1.25, 1.0},
		{"tight imbalance", 10, hash.NameFNV, 1.05, 0.5},
		{"wide category share", 8, hash.NameFNV, 1.5, 2.0},
		{"xxh3 ring", 10, hash.NameXXH3, 1.25, 1.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := newRecordingMetrics()
			cfg := Config{
				ImbalanceFactor:          tc.imbalance,
				BoundLoadThresholdFactor: tc.boundFactor,
				HashFunction:             tc.hashFunction,
			}
			s, err := NewScheduler(makeServers(tc.servers), &cfg, WithMetrics(rec))
			require.NoError(t, err)

			rng := rand.New(rand.NewPCG(42, uint64(tc.servers)))
			sizes := make(map[types.Category]int)
			var total int64

			for i := range 3000 {
				task := types.Task{
					ID:       taskID(rng.IntN(1_000_000)),
					Category: types.Categories()[rng.IntN(types.NumCategories())],
					Weight:   rng.Int64N(11),
				}

				srv, err := s.ScheduleTask(task)
				require.NoError(t, err)
				total += task.Weight

				stats := s.Stats()
				require.Equal(t, total, stats.LoadSum)
				require.LessOrEqual(t, float64(srv.Load()-task.Weight), stats.MaxAssignedLoad,
					"task %d: %s exceeded the bound", i, srv)

				// Category registries only grow
				admitted, err := s.CategoryServers(task.Category)
				require.NoError(t, err)
				require.GreaterOrEqual(t, len(admitted), sizes[task.Category])
				sizes[task.Category] = len(admitted)
				require.Contains(t, admitted, srv.Address())
			}

			require.Zero(t, rec.count("overflow:"+generalRing))
			requireRingsConsistent(t, s)

			var sum int64
			for _, srv := range s.Servers() {
				sum += srv.Load()
			}
			require.Equal(t, total, sum)
		})
	}
}

func TestScheduler_EndToEnd(t *testing.T) {
	cfg := Config{ImbalanceFactor: 1.25, BoundLoadThresholdFactor: 1.0}
	servers := []*types.Server{types.NewServer("A"), types.NewServer("B"), types.NewServer("C")}
	rec := newRecordingMetrics()
	s, err := NewScheduler(servers, &cfg, WithMetrics(rec))
	require.NoError(t, err)

	sizes := make([]int, 0, 100)
	for i := range 100 {
		_, err := s.ScheduleTask(types.Task{ID: taskID(i), Category: types.CategoryCompute, Weight: 1})
		require.NoError(t, err)

		compute, err := s.CategoryServers(types.CategoryCompute)
		require.NoError(t, err)
		sizes = append(sizes, len(compute))
	}

	stats := s.Stats()
	require.Equal(t, int64(100), stats.LoadSum)
	require.Equal(t, 1, stats.BoundLoadThreshold)          // floor((3/2) * 1.0)
	require.InDelta(t, 41.25, stats.MaxAssignedLoad, 1e-9) // (100/3 = 33) * 1.25

	loads := map[string]int64{}
	for _, srv := range servers {
		loads[srv.Address()] = srv.Load()
	}
	require.Equal(t, map[string]int64{"A": 35, "B": 31, "C": 34}, loads)

	// Grows to 2 while size <= threshold, then to 3 once no compute server
	// was within the bound.
	require.Equal(t, []int{1, 2, 2, 2, 3}, sizes[:5])
	require.Equal(t, 3, sizes[len(sizes)-1])
	require.Equal(t, 3, rec.count("admission:compute"))
	require.Zero(t, rec.count("overflow:"+generalRing))

	compute, err := s.CategoryServers(types.CategoryCompute)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, compute)

	storage, err := s.CategoryServers(types.CategoryStorage)
	require.NoError(t, err)
	require.Empty(t, storage)

	requireRingsConsistent(t, s)
}

func TestScheduler_CategoryStopsBelowPool(t *testing.T) {
	s := newTestScheduler(t, 6)

	for i := range 8 {
		_, err := s.ScheduleTask(types.Task{ID: taskID(i), Category: types.CategoryCompute, Weight: 1})
		require.NoError(t, err)
	}

	want := []string{"10.0.0.1", "10.0.0.3", "10.0.0.4", "10.0.0.5", "10.0.0.6"}
	compute, err := s.CategoryServers(types.CategoryCompute)
	require.NoError(t, err)
	require.Equal(t, want, compute)

	// Above the threshold with servers in bound, the category walks its own
	// ring and never admits 10.0.0.2.
	for i := 8; i < 208; i++ {
		srv, err := s.ScheduleTask(types.Task{ID: taskID(i), Category: types.CategoryCompute})
		require.NoError(t, err)
		require.NotEqual(t, "10.0.0.2", srv.Address())
	}

	compute, err = s.CategoryServers(types.CategoryCompute)
	require.NoError(t, err)
	require.Equal(t, want, compute)
	require.Less(t, len(compute), len(s.Servers()))

	stats := s.Stats()
	require.Equal(t, int64(8), stats.LoadSum)
	require.Equal(t, 3, stats.BoundLoadThreshold) // floor((6/2) * 1.0)
	require.InDelta(t, 1.25, stats.MaxAssignedLoad, 1e-9)

	loads := map[string]int64{}
	for _, srv := range s.Servers() {
		loads[srv.Address()] = srv.Load()
	}
	require.Equal(t, map[string]int64{
		"10.0.0.1": 2, "10.0.0.2": 0, "10.0.0.3": 2,
		"10.0.0.4": 2, "10.0.0.5": 1, "10.0.0.6": 1,
	}, loads)

	requireRingsConsistent(t, s)
}

func TestScheduler_ProbeCategory(t *testing.T) {
	s := newTestScheduler(t, 3)
	a, _ := s.Server("10.0.0.1")
	b, _ := s.Server("10.0.0.2")

	reg := s.categories[types.CategoryCompute]
	require.True(t, reg.admit(a))
	require.True(t, reg.admit(b))

	h := hash.FNVMix("task-1")
	view := reg.load()
	successor := view.server(view.ring.Successor(h))
	other := a
	if successor == a {
		other = b
	}

	t.Run("accepts the successor within the bound", func(t *testing.T) {
		srv := s.probeCategory(reg, h, Stats{MaxAssignedLoad: 0, BoundLoadThreshold: 0})
		require.Same(t, successor, srv)
	})

	successor.AddTask(types.Task{ID: "x", Weight: 5})

	t.Run("falls through while the category may grow", func(t *testing.T) {
		srv := s.probeCategory(reg, h, Stats{MaxAssignedLoad: 1, BoundLoadThreshold: 2})
		require.Nil(t, srv)
	})

	t.Run("walks its own ring once it may not grow", func(t *testing.T) {
		srv := s.probeCategory(reg, h, Stats{MaxAssignedLoad: 1, BoundLoadThreshold: 1})
		require.Same(t, other, srv)
	})

	other.AddTask(types.Task{ID: "y", Weight: 5})

	t.Run("falls through when no category server is within the bound", func(t *testing.T) {
		srv := s.probeCategory(reg, h, Stats{MaxAssignedLoad: 1, BoundLoadThreshold: 1})
		require.Nil(t, srv)
	})

	t.Run("empty category ring falls through", func(t *testing.T) {
		srv := s.probeCategory(s.categories[types.CategoryStorage], h, Stats{MaxAssignedLoad: 100})
		require.Nil(t, srv)
	})
}

func TestScheduler_WalkGeneral(t *testing.T) {
	rec := newRecordingMetrics()
	s := newTestScheduler(t, 3, WithMetrics(rec))

	for i, srv := range s.Servers() {
		srv.AddTask(types.Task{ID: "x", Weight: int64(10 - i)})
	}

	t.Run("walks to a server within the bound", func(t *testing.T) {
		srv := s.walkGeneral(hash.FNVMix("task-1"), 8)
		require.Equal(t, "10.0.0.3", srv.Address())
	})

	t.Run("uses the least loaded server after a full lap", func(t *testing.T) {
		srv := s.walkGeneral(hash.FNVMix("task-1"), 1)
		require.Equal(t, "10.0.0.3", srv.Address())
		require.Equal(t, 1, rec.count("overflow:"+generalRing))
	})
}

func TestScheduler_ScheduleTaskErrors(t *testing.T) {
	rec := newRecordingMetrics()
	s := newTestScheduler(t, 3, WithMetrics(rec))

	testCases := []struct {
		name    string
		task    types.Task
		wantErr error
		reason  string
	}{
		{"unknown category", types.Task{ID: "t", Category: types.Category(9), Weight: 1}, ErrUnknownCategory, "unknown_category"},
		{"negative weight", types.Task{ID: "t", Weight: -1}, ErrInvalidTask, "invalid_task"},
		{"empty id", types.Task{Weight: 1}, ErrInvalidTask, "invalid_task"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, err := s.ScheduleTask(tc.task)
			require.ErrorIs(t, err, tc.wantErr)
			require.Nil(t, srv)
			require.Positive(t, rec.count("error:"+tc.reason))
		})
	}

	// Rejected tasks leave no trace
	require.Equal(t, Stats{ServerCount: 3}, s.Stats())
	for _, view := range s.Rings()[1:] {
		require.Empty(t, view.Servers)
	}
}

func TestScheduler_AddServer(t *testing.T) {
	rec := newRecordingMetrics()
	s := newTestScheduler(t, 3, WithMetrics(rec))

	for i := range 300 {
		_, err := s.ScheduleTask(types.Task{ID: taskID(i), Category: types.CategoryStorage, Weight: 1})
		require.NoError(t, err)
	}
	storageBefore, err := s.CategoryServers(types.CategoryStorage)
	require.NoError(t, err)

	added := types.NewServer("10.0.0.4")
	require.NoError(t, s.AddServer(added))

	require.Equal(t, 4, s.Stats().ServerCount)
	require.Equal(t, int64(300), s.Stats().LoadSum)
	srv, ok := s.Server("10.0.0.4")
	require.True(t, ok)
	require.Same(t, added, srv)
	require.Equal(t, 1, rec.count("rebuild:"+rebuildAddServer))

	// Category rings are rebuilt from their registries, not grown
	storageAfter, err := s.CategoryServers(types.CategoryStorage)
	require.NoError(t, err)
	require.Equal(t, storageBefore, storageAfter)
	requireRingsConsistent(t, s)

	t.Run("new server takes load", func(t *testing.T) {
		for i := 300; i < 600; i++ {
			_, err := s.ScheduleTask(types.Task{ID: taskID(i), Category: types.CategoryStorage, Weight: 1})
			require.NoError(t, err)
		}
		require.Positive(t, added.Load())
	})

	t.Run("errors", func(t *testing.T) {
		require.ErrorIs(t, s.AddServer(nil), ErrNilServer)
		require.ErrorIs(t, s.AddServer(types.NewServer("10.0.0.1")), ErrServerExists)
		require.Len(t, s.Servers(), 4)
	})
}

func TestScheduler_RemoveServer(t *testing.T) {
	s := newTestScheduler(t, 3)

	assigned := make(map[string]*types.Server)
	for i := range 100 {
		task := types.Task{ID: taskID(i), Category: types.CategoryCompute, Weight: 1}
		srv, err := s.ScheduleTask(task)
		require.NoError(t, err)
		assigned[task.ID] = srv
	}

	victim := assigned[taskID(7)]
	require.NoError(t, s.RemoveServer(victim))

	_, ok := s.Server(victim.Address())
	require.False(t, ok)
	require.Equal(t, 2, s.Stats().ServerCount)
	require.Equal(t, int64(100), s.Stats().LoadSum, "removed load stays in the sum")
	for _, view := range s.Rings() {
		require.NotContains(t, view.Servers, victim.Address(), "ring %s", view.Name)
	}
	requireRingsConsistent(t, s)

	// Tasks that resolved to the removed server move elsewhere
	for id, prev := range assigned {
		if prev != victim {
			continue
		}
		srv, err := s.ScheduleTask(types.Task{ID: id, Category: types.CategoryCompute, Weight: 1})
		require.NoError(t, err)
		require.NotSame(t, victim, srv, "task %s", id)
	}

	t.Run("errors", func(t *testing.T) {
		require.ErrorIs(t, s.RemoveServer(nil), ErrNilServer)
		require.ErrorIs(t, s.RemoveServer(victim), ErrServerNotFound)
		require.ErrorIs(t, s.RemoveServer(types.NewServer("10.9.9.9")), ErrServerNotFound)
	})

	t.Run("empty pool fails without changing state", func(t *testing.T) {
		for _, srv := range s.Servers() {
			require.NoError(t, s.RemoveServer(srv))
		}

		before := s.Stats()
		require.Zero(t, before.ServerCount)

		srv, err := s.ScheduleTask(types.Task{ID: "t", Category: types.CategoryCompute, Weight: 5})
		require.ErrorIs(t, err, ErrNoServers)
		require.Nil(t, srv)
		require.Equal(t, before, s.Stats())

		for _, view := range s.Rings() {
			require.Zero(t, view.Size)
		}

		require.NoError(t, s.AddServer(types.NewServer("10.0.0.9")))
		srv, err = s.ScheduleTask(types.Task{ID: "t", Category: types.CategoryCompute, Weight: 5})
		require.NoError(t, err)
		require.Equal(t, "10.0.0.9", srv.Address())
	})
}

func TestScheduler_ReleaseTask(t *testing.T) {
	s := newTestScheduler(t, 3)

	task := types.Task{ID: "t-1", Category: types.CategoryCompute, Weight: 7}
	srv, err := s.ScheduleTask(task)
	require.NoError(t, err)
	require.Equal(t, int64(7), srv.Load())

	require.NoError(t, s.ReleaseTask(srv.Address(), task))
	require.Zero(t, srv.Load())
	require.Zero(t, s.Stats().LoadSum)

	t.Run("over-release is floored", func(t *testing.T) {
		require.NoError(t, s.ReleaseTask(srv.Address(), task))
		require.Zero(t, srv.Load())
		require.Zero(t, s.Stats().LoadSum)
	})

	t.Run("errors", func(t *testing.T) {
		require.ErrorIs(t, s.ReleaseTask("10.9.9.9", task), ErrServerNotFound)
		require.ErrorIs(t, s.ReleaseTask(srv.Address(), types.Task{ID: "t", Weight: -1}), ErrInvalidTask)
	})
}

func TestScheduler_CategoryServersUnknown(t *testing.T) {
	s := newTestScheduler(t, 1)

	_, err := s.CategoryServers(types.Category(200))
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestScheduler_Concurrent(t *testing.T) {
	s := newTestScheduler(t, 10, WithLogger(logging.NewNop()))

	var (
		mu  sync.Mutex
		all = s.Servers()
	)

	const workers = 32
	const tasksPerWorker = 500

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(w), 7))

			for i := range tasksPerWorker {
				task := types.Task{
					ID:       taskID(rng.IntN(100_000)),
					Category: types.Categories()[rng.IntN(types.NumCategories())],
					Weight:   rng.Int64N(11),
				}
				srv, err := s.ScheduleTask(task)
				if err != nil {
					t.Errorf("schedule: %v", err)
					return
				}

				if i%2 == 0 {
					err := s.ReleaseTask(srv.Address(), task)
					if err != nil && !errors.Is(err, ErrServerNotFound) {
						t.Errorf("release: %v", err)
						return
					}
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 20 {
			srv := types.NewServer(fmt.Sprintf("10.0.1.%d", i))
			mu.Lock()
			all = append(all, srv)
			mu.Unlock()

			if err := s.AddServer(srv); err != nil {
				t.Errorf("add: %v", err)
				return
			}
			if i%2 == 0 {
				if err := s.RemoveServer(srv); err != nil {
					t.Errorf("remove: %v", err)
					return
				}
			}
		}
	}()

	wg.Wait()

	// No load lost: every weight is accounted for on exactly one server,
	// including servers that have since been removed.
	var sum int64
	for _, srv := range all {
		sum += srv.Load()
	}
	require.Equal(t, s.Stats().LoadSum, sum)
	require.Equal(t, 20, s.Stats().ServerCount)
	requireRingsConsistent(t, s)
}
