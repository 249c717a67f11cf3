package chs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/David-Tong/consistent-hashing-scheduler/internal/hash"
	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

func newPool(addrs ...string) map[string]*types.Server {
	pool := make(map[string]*types.Server, len(addrs))
	for _, addr := range addrs {
		pool[addr] = types.NewServer(addr)
	}

	return pool
}

func TestRegistry_Rebuild(t *testing.T) {
	pool := newPool("10.0.0.1", "10.0.0.2")
	reg := newRegistry("general", pool, 10, hash.FNVMix)

	view := reg.load()
	require.Equal(t, 20, view.ring.Size())
	require.Equal(t, 2, reg.size())
	require.Equal(t, map[string]int{"10.0.0.1": 10, "10.0.0.2": 10}, view.ring.VirtualNodeCounts())

	// The registry owns its map
	delete(pool, "10.0.0.1")
	require.Equal(t, 2, reg.size())

	t.Run("empty registry", func(t *testing.T) {
		reg := newRegistry("compute", nil, 10, hash.FNVMix)
		require.True(t, reg.load().ring.Empty())
		require.Zero(t, reg.size())
	})
}

func TestRegistry_Admit(t *testing.T) {
	reg := newRegistry("compute", nil, 10, hash.FNVMix)
	srv := types.NewServer("10.0.0.1")

	before := reg.load()
	require.True(t, reg.admit(srv))
	require.False(t, reg.admit(srv), "second admission is a no-op")

	after := reg.load()
	require.NotSame(t, before, after)
	require.True(t, before.ring.Empty(), "published views are never modified")
	require.Equal(t, 10, after.ring.Size())
	require.Same(t, srv, after.servers["10.0.0.1"])
}

func TestRegistry_ConcurrentAdmit(t *testing.T) {
	reg := newRegistry("compute", nil, 10, hash.FNVMix)
	pool := newPool("a", "b", "c", "d", "e")

	var wg sync.WaitGroup
	for range 10 {
		for _, srv := range pool {
			wg.Add(1)
			go func() {
				defer wg.Done()
				reg.admit(srv)
			}()
		}
	}
	wg.Wait()

	view := reg.load()
	require.Len(t, view.servers, 5)
	require.Equal(t, 50, view.ring.Size())
	for addr, count := range view.ring.VirtualNodeCounts() {
		require.Equal(t, 10, count, "server %s", addr)
	}
}

func TestRegistryView_LeastLoaded(t *testing.T) {
	pool := newPool("b", "a", "c")
	pool["c"].AddTask(types.Task{ID: "x", Weight: 5})
	view := newRegistry("general", pool, 10, hash.FNVMix).load()

	require.Equal(t, "a", view.leastLoaded().Address(), "ties broken by address")

	pool["a"].AddTask(types.Task{ID: "y", Weight: 1})
	require.Equal(t, "b", view.leastLoaded().Address())

	require.True(t, view.hasServerWithin(0))
	require.False(t, view.hasServerWithin(-1))
}

func TestRegistry_Without(t *testing.T) {
	reg := newRegistry("general", newPool("a", "b"), 10, hash.FNVMix)

	rest := reg.without("a")
	require.Len(t, rest, 1)
	require.Contains(t, rest, "b")
	require.Equal(t, 2, reg.size(), "registry is untouched")
}
