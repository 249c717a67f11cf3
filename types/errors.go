package types

import "errors"

// Sentinel errors for the scheduler.
//
// These errors provide type-safe error checking using errors.Is().
// Components wrap them with context using fmt.Errorf("%s: %w", msg, err).

// Configuration errors - returned while constructing a Scheduler.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoServers is returned when the server pool is empty, either at
	// construction time or because every server has been removed.
	ErrNoServers = errors.New("no servers available")
)

// Scheduling errors - returned by ScheduleTask and ReleaseTask.
var (
	// ErrUnknownCategory is returned for a task category outside the enumerated set.
	ErrUnknownCategory = errors.New("unknown task category")

	// ErrInvalidTask is returned for a task with an empty ID or a negative weight.
	ErrInvalidTask = errors.New("invalid task")
)

// Topology errors - returned by AddServer and RemoveServer.
var (
	// ErrNilServer is returned when a nil server is passed in.
	ErrNilServer = errors.New("server is nil")

	// ErrServerExists is returned when adding a server whose address is already registered.
	ErrServerExists = errors.New("server already registered")

	// ErrServerNotFound is returned when an address is not registered.
	ErrServerNotFound = errors.New("server not found")
)
