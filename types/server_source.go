package types

import "context"

// ServerSource provides the inventory of servers available at startup.
//
// Implementations can query various backends:
//   - Static: fixed address list from configuration
//   - Custom: any inventory or service discovery lookup
//
// The driver calls ListServers once before constructing the Scheduler.
type ServerSource interface {
	// ListServers returns the servers to register.
	//
	// Implementations should:
	//   - Return servers with unique addresses
	//   - Handle context cancellation gracefully
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - []*Server: Servers to register (fresh instances with zero load)
	//   - error: Discovery error (nil on success)
	ListServers(ctx context.Context) ([]*Server, error)
}
