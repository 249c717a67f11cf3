// Package source provides built-in server source implementations.
//
// Server sources supply the inventory a Scheduler starts with.
// The package includes:
//
//   - Static: Fixed list of addresses
//   - Generate: Helper producing numbered addresses for simulations
//
// Custom sources can be implemented by satisfying the types.ServerSource interface.
package source
