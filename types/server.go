package types

import (
	"fmt"
	"sync/atomic"
)

// Server is a worker machine that tasks are assigned to.
//
// A Server is shared by reference between the general registry and every
// category registry it has been admitted into, so a load update made through
// any of them is visible everywhere. All methods are safe for concurrent use.
type Server struct {
	address string
	load    atomic.Int64
}

// NewServer creates a server with zero load.
//
// Parameters:
//   - address: Unique server address (e.g., "10.0.0.1:8080")
//
// Returns:
//   - *Server: Server ready to be registered with a scheduler
func NewServer(address string) *Server {
	return &Server{address: address}
}

// Address returns the unique address of the server.
func (s *Server) Address() string {
	return s.address
}

// Load returns the accumulated weight of the tasks assigned to the server.
func (s *Server) Load() int64 {
	return s.load.Load()
}

// AddTask adds the task weight to the server load and returns the new load.
func (s *Server) AddTask(task Task) int64 {
	return s.load.Add(task.Weight)
}

// CompleteTask removes the task weight from the server load and returns the
// amount actually removed. The load never drops below zero.
func (s *Server) CompleteTask(task Task) int64 {
	for {
		cur := s.load.Load()
		next := max(cur-task.Weight, 0)
		if s.load.CompareAndSwap(cur, next) {
			return cur - next
		}
	}
}

// String implements fmt.Stringer.
func (s *Server) String() string {
	return fmt.Sprintf("%s(load=%d)", s.address, s.Load())
}
