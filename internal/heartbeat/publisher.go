package heartbeat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/David-Tong/consistent-hashing-scheduler/internal/logging"
	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// Common errors for heartbeat operations.
var (
	ErrNotStarted     = errors.New("publisher not started")
	ErrAlreadyStarted = errors.New("publisher already started")
	ErrNoAddress      = errors.New("server address not set")
)

// Key returns the KV key announcing address under prefix.
func Key(prefix, address string) string {
	return prefix + "." + base64.RawURLEncoding.EncodeToString([]byte(address))
}

// AddressOf decodes the address from a key with its prefix already stripped.
func AddressOf(encoded string) (string, error) {
	addr, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid heartbeat key %q: %w", encoded, err)
	}

	return string(addr), nil
}

// Publisher publishes periodic heartbeats for one server address.
type Publisher struct {
	kv       jetstream.KeyValue
	prefix   string
	address  string
	interval time.Duration
	logger   types.Logger

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	ticker  *time.Ticker
}

// New creates a new heartbeat publisher.
//
// Parameters:
//   - kv: JetStream KV bucket holding announcements
//   - prefix: Key prefix (e.g., "servers")
//   - interval: Heartbeat interval
//
// Returns:
//   - *Publisher: New heartbeat publisher instance
func New(kv jetstream.KeyValue, prefix string, interval time.Duration) *Publisher {
	return &Publisher{
		kv:       kv,
		prefix:   prefix,
		interval: interval,
		logger:   logging.NewNop(),
	}
}

// SetAddress sets the announced server address. Must be called before Start().
func (p *Publisher) SetAddress(address string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.address = address
}

// SetLogger sets the logger for failed heartbeats.
func (p *Publisher) SetLogger(logger types.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if logger != nil {
		p.logger = logger
	}
}

// Start publishes the first heartbeat immediately, then every interval until
// Stop() is called.
//
// Returns:
//   - error: ErrAlreadyStarted if already running, ErrNoAddress if the address is not set
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}

	if p.address == "" {
		return ErrNoAddress
	}

	if err := p.publish(ctx); err != nil {
		return fmt.Errorf("failed to publish initial heartbeat: %w", err)
	}

	p.started = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.ticker = time.NewTicker(p.interval)

	go p.publishLoop(p.ticker, p.stopCh, p.doneCh)

	return nil
}

// Stop stops publishing and deletes the heartbeat so watchers see the server
// leave without waiting for the TTL.
//
// Returns:
//   - error: ErrNotStarted if not running, or the delete error
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}

	p.ticker.Stop()
	close(p.stopCh)
	p.started = false
	doneCh := p.doneCh
	key := Key(p.prefix, p.address)
	p.mu.Unlock()

	<-doneCh

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("stopped but failed to delete heartbeat: %w", err)
	}

	return nil
}

func (p *Publisher) publishLoop(ticker *time.Ticker, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			p.mu.Lock()
			err := p.publish(ctx)
			logger := p.logger
			p.mu.Unlock()
			cancel()

			if err != nil {
				logger.Warn("heartbeat failed", "error", err)
			}
		}
	}
}

// publish writes the heartbeat; caller must hold mu.
func (p *Publisher) publish(ctx context.Context) error {
	value := []byte(time.Now().Format(time.RFC3339Nano))

	if _, err := p.kv.Put(ctx, Key(p.prefix, p.address), value); err != nil {
		return fmt.Errorf("failed to publish heartbeat for %s: %w", p.address, err)
	}

	return nil
}

// Address returns the announced address.
func (p *Publisher) Address() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.address
}

// IsStarted returns whether the publisher is currently running.
func (p *Publisher) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.started
}
