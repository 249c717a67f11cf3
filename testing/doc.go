// Package testing provides test utilities for the scheduler.
//
// It follows Go's convention of providing testing utilities in a dedicated
// package (similar to net/http/httptest).
//
// Key utilities:
//   - NewTestLogger: types.Logger writing key=value lines to the test log,
//     silent once the test has finished
//   - StartEmbeddedNATS: Single in-process NATS server with JetStream
//   - CreateMemoryStream: Convenience wrapper for stream creation
//   - CreateJetStreamKV: In-memory KV bucket for membership tests
//
// Example usage:
//
//	import (
//	    "testing"
//	    chstest "github.com/David-Tong/consistent-hashing-scheduler/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := chstest.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testing
