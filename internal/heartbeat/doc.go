// Package heartbeat announces server liveness through NATS KV.
//
// A server agent publishes a timestamp under its key at a fixed interval. The
// bucket TTL removes the key once the agent stops publishing, and the
// membership watcher turns appearing and disappearing keys into AddServer and
// RemoveServer calls on the scheduler.
//
// # Key Format
//
//	{prefix}.{base64url(address)}
//
// Addresses such as "10.0.0.1:7000" carry characters NATS keys reject, so the
// address is encoded with unpadded URL-safe base64. Use Key and AddressOf to
// convert between the two.
//
// # Lifecycle
//
//	publisher := heartbeat.New(kv, "servers", 5*time.Second)
//	publisher.SetAddress("10.0.0.1:7000")
//	if err := publisher.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer publisher.Stop()
//
// The bucket TTL should be about 3x the interval so a server is dropped
// after three missed heartbeats. Stop deletes the key right away.
package heartbeat
