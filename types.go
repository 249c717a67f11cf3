package chs

import "github.com/David-Tong/consistent-hashing-scheduler/types"

// Re-export types from the types package.
//
// Internal packages depend on types rather than on the root package, which
// keeps the import graph acyclic while callers can still write chs.Task,
// chs.Server, etc.
type (
	Server   = types.Server
	Task     = types.Task
	Category = types.Category
)

// Re-export interfaces from the types package for convenience.
type (
	ServerSource     = types.ServerSource
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
)

// Re-export Category constants from the types package.
const (
	CategoryCompute = types.CategoryCompute
	CategoryStorage = types.CategoryStorage
)

// NewServer creates a server with zero load.
func NewServer(address string) *Server {
	return types.NewServer(address)
}
