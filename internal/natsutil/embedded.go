package natsutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// EmbeddedOptions configures an in-process NATS server.
type EmbeddedOptions struct {
	// Host to bind (default "127.0.0.1").
	Host string

	// Port to bind; -1 picks a random port.
	Port int

	// JetStream enables JetStream with storage under StoreDir.
	JetStream bool
	StoreDir  string
}

// StartEmbedded starts an in-process NATS server and connects to it.
//
// Parameters:
//   - opts: Server options
//
// Returns:
//   - *server.Server: Running NATS server
//   - *nats.Conn: Client connection to the server
//   - error: Error if startup fails
func StartEmbedded(opts EmbeddedOptions) (*server.Server, *nats.Conn, error) {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}

	ns, err := server.NewServer(&server.Options{
		Host:      opts.Host,
		Port:      opts.Port,
		JetStream: opts.JetStream,
		StoreDir:  opts.StoreDir,
		NoLog:     true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, nil, errors.New("NATS server not ready")
	}

	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		ns.Shutdown()
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return ns, nc, nil
}
