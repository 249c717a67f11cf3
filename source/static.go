package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// Static implements a server source with a fixed list of addresses.
type Static struct {
	mu        sync.RWMutex
	addresses []string
}

var _ types.ServerSource = (*Static)(nil)

// NewStatic creates a new static server source.
//
// The source returns a fixed list of addresses that never changes unless
// Update is called. Every ListServers call returns fresh Server instances,
// so two schedulers built from the same source never share load counters.
//
// Parameters:
//   - addresses: Fixed list of server addresses
//
// Returns:
//   - *Static: Initialized static source
//
// Example:
//
//	src := source.NewStatic([]string{"10.0.0.1", "10.0.0.2", "10.0.0.3"})
//	servers, _ := src.ListServers(ctx)
//	sched, err := chs.NewScheduler(servers, &cfg)
//	if err != nil { /* handle */ }
func NewStatic(addresses []string) *Static {
	return &Static{
		addresses: append([]string(nil), addresses...),
	}
}

// ListServers returns one server per configured address.
//
// Returns:
//   - []*types.Server: Servers with zero load, in configured order
//   - error: Context error when ctx is already done
func (s *Static) ListServers(ctx context.Context) ([]*types.Server, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	servers := make([]*types.Server, len(s.addresses))
	for i, addr := range s.addresses {
		servers[i] = types.NewServer(addr)
	}

	return servers, nil
}

// Addresses returns a copy of the configured addresses.
func (s *Static) Addresses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.addresses...)
}

// Update replaces the address list.
//
// Parameters:
//   - addresses: New list of addresses
func (s *Static) Update(addresses []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addresses = append([]string(nil), addresses...)
}

// Generate returns count addresses named "<prefix>-<index>".
//
// Parameters:
//   - prefix: Address prefix (e.g., "server")
//   - count: Number of addresses
//
// Returns:
//   - []string: Addresses "<prefix>-0" through "<prefix>-<count-1>"
//
// Example:
//
//	src := source.NewStatic(source.Generate("server", 50))
func Generate(prefix string, count int) []string {
	addresses := make([]string, 0, max(count, 0))
	for i := range count {
		addresses = append(addresses, fmt.Sprintf("%s-%d", prefix, i))
	}

	return addresses
}
