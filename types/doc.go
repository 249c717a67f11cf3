// Package types provides core type definitions and interfaces for the scheduler.
//
// This package contains shared types that are used across multiple packages in
// the module. By keeping these types in a separate package, internal packages can
// depend on them without depending on the root chs package.
//
// Key types:
//   - Server: Worker machine with an atomically tracked load
//   - Task: Immutable unit of work with an ID, Category and Weight
//   - Category: Closed set of task categories
//   - ServerSource: Inventory of servers available at startup
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
