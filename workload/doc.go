// Package workload generates synthetic tasks and drives a scheduler with
// many concurrent runners.
//
// A Runner starts N goroutines. Each one generates its batch of tasks once,
// schedules the whole batch Rounds times (so repeated IDs exercise locality)
// and pauses between rounds.
package workload
