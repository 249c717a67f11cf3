package chs

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/David-Tong/consistent-hashing-scheduler/internal/hash"
	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// generalRing is the name of the ring holding every registered server.
const generalRing = "general"

// registryView is an immutable pairing of a ring with the servers it holds.
//
// The ring contains exactly the virtual nodes of the servers in the map.
type registryView struct {
	ring    *hash.Ring
	servers map[string]*types.Server
}

// server resolves the owner of the virtual node at idx.
func (v *registryView) server(idx int) *types.Server {
	return v.servers[v.ring.Member(idx)]
}

// hasServerWithin reports whether any server's load is <= bound.
func (v *registryView) hasServerWithin(bound float64) bool {
	for _, srv := range v.servers {
		if float64(srv.Load()) <= bound {
			return true
		}
	}

	return false
}

// leastLoaded returns the server with the lowest load, ties broken by address.
func (v *registryView) leastLoaded() *types.Server {
	var best *types.Server
	for _, srv := range v.servers {
		if best == nil || srv.Load() < best.Load() ||
			(srv.Load() == best.Load() && srv.Address() < best.Address()) {
			best = srv
		}
	}

	return best
}

// registry holds the current view of one ring.
//
// Readers load the view without locking. Writers build a new view under mu
// and publish it with a single atomic store.
type registry struct {
	name         string
	virtualNodes int
	hashFn       hash.Func

	mu   sync.Mutex
	view atomic.Pointer[registryView]
}

func newRegistry(name string, servers map[string]*types.Server, virtualNodes int, fn hash.Func) *registry {
	r := &registry{
		name:         name,
		virtualNodes: virtualNodes,
		hashFn:       fn,
	}
	r.rebuild(servers)

	return r
}

func (r *registry) load() *registryView {
	return r.view.Load()
}

// size returns the number of servers in the registry.
func (r *registry) size() int {
	return len(r.load().servers)
}

// admit adds srv to the registry together with its virtual nodes.
//
// Returns false when the address is already registered.
func (r *registry) admit(srv *types.Server) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.view.Load()
	if _, ok := cur.servers[srv.Address()]; ok {
		return false
	}

	servers := maps.Clone(cur.servers)
	servers[srv.Address()] = srv

	r.view.Store(&registryView{
		ring:    cur.ring.With(srv.Address()),
		servers: servers,
	})

	return true
}

// rebuild replaces the view with a ring built from scratch for servers.
func (r *registry) rebuild(servers map[string]*types.Server) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := maps.Clone(servers)
	if owned == nil {
		owned = make(map[string]*types.Server)
	}

	r.view.Store(&registryView{
		ring:    hash.NewRing(slices.Sorted(maps.Keys(owned)), r.virtualNodes, r.hashFn),
		servers: owned,
	})
}

// without returns a copy of the server map minus addr.
func (r *registry) without(addr string) map[string]*types.Server {
	servers := maps.Clone(r.load().servers)
	delete(servers, addr)

	return servers
}
