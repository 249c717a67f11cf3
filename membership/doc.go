// Package membership keeps the scheduler's server pool in step with the
// heartbeats servers announce in a NATS KV bucket.
//
// The Watcher combines a KV watch for fast detection with periodic polling,
// which also catches keys removed by the bucket TTL. Each reconcile adds
// newly announced servers and removes servers whose heartbeat is gone.
// Servers the scheduler was built with stay untouched unless they announce
// themselves and later disappear.
package membership
