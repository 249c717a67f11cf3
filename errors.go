package chs

import "github.com/David-Tong/consistent-hashing-scheduler/types"

// Sentinel errors returned by the Scheduler.
//
// They are re-exported from the types package so callers can match them with
// errors.Is without importing types.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrNoServers is returned when the server pool is empty.
	ErrNoServers = types.ErrNoServers

	// ErrUnknownCategory is returned for a task category outside the enumerated set.
	ErrUnknownCategory = types.ErrUnknownCategory

	// ErrInvalidTask is returned for a task with an empty ID or a negative weight.
	ErrInvalidTask = types.ErrInvalidTask

	// ErrNilServer is returned when a nil server is passed in.
	ErrNilServer = types.ErrNilServer

	// ErrServerExists is returned when adding an address that is already registered.
	ErrServerExists = types.ErrServerExists

	// ErrServerNotFound is returned when an address is not registered.
	ErrServerNotFound = types.ErrServerNotFound
)
