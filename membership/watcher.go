package membership

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/David-Tong/consistent-hashing-scheduler/internal/heartbeat"
	"github.com/David-Tong/consistent-hashing-scheduler/internal/kvutil"
	"github.com/David-Tong/consistent-hashing-scheduler/internal/logging"
	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// Lifecycle errors.
var (
	ErrAlreadyStarted = errors.New("membership watcher already started")
	ErrAlreadyStopped = errors.New("membership watcher already stopped")
	ErrNotStarted     = errors.New("membership watcher not started")
)

const debounce = 100 * time.Millisecond

// Topology is the part of the scheduler the watcher drives.
type Topology interface {
	AddServer(server *types.Server) error
	RemoveServer(server *types.Server) error
}

// Watcher reconciles announced servers into a Topology.
type Watcher struct {
	kv           jetstream.KeyValue
	prefix       string
	pollInterval time.Duration
	topology     Topology
	logger       types.Logger

	watcher   jetstream.KeyWatcher
	watcherMu sync.Mutex

	// members holds the addresses this watcher has added
	reconcileMu sync.Mutex
	members     map[string]struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a membership watcher.
//
// Parameters:
//   - kv: Bucket holding heartbeats
//   - prefix: Heartbeat key prefix
//   - pollInterval: Fallback polling period, typically half the bucket TTL
//   - topology: Scheduler receiving AddServer/RemoveServer calls
//   - logger: Logger (nop when nil)
//
// Returns:
//   - *Watcher: Watcher ready to Start
func NewWatcher(kv jetstream.KeyValue, prefix string, pollInterval time.Duration, topology Topology, logger types.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Watcher{
		kv:           kv,
		prefix:       prefix,
		pollInterval: pollInterval,
		topology:     topology,
		logger:       logger,
		members:      make(map[string]struct{}),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start runs one reconcile synchronously, then keeps watching in the background.
//
// Returns:
//   - error: Lifecycle error, or the initial reconcile error
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return ErrAlreadyStopped
	}
	if w.started {
		return ErrAlreadyStarted
	}

	if err := w.Reconcile(ctx); err != nil {
		return err
	}

	w.started = true
	go w.run(ctx)

	return nil
}

// Stop stops watching and waits for the background goroutine. Servers
// already added stay in the topology.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return ErrNotStarted
	}
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	return nil
}

// Members returns the sorted addresses currently added by the watcher.
func (w *Watcher) Members() []string {
	w.reconcileMu.Lock()
	defer w.reconcileMu.Unlock()

	return slices.Sorted(maps.Keys(w.members))
}

// Reconcile compares the announced servers with the added ones and applies
// the difference to the topology.
//
// A server that already exists in the topology is adopted as a member. A
// member the topology no longer knows is dropped silently.
func (w *Watcher) Reconcile(ctx context.Context) error {
	keys, err := kvutil.KeysWithPrefix(ctx, w.kv, w.prefix)
	if err != nil {
		return fmt.Errorf("failed to list heartbeats: %w", err)
	}

	live := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		addr, err := heartbeat.AddressOf(key)
		if err != nil {
			w.logger.Warn("skipping heartbeat key", "key", key, "error", err)
			continue
		}
		live[addr] = struct{}{}
	}

	w.reconcileMu.Lock()
	defer w.reconcileMu.Unlock()

	var errs []error

	for _, addr := range slices.Sorted(maps.Keys(live)) {
		if _, ok := w.members[addr]; ok {
			continue
		}

		err := w.topology.AddServer(types.NewServer(addr))
		switch {
		case err == nil:
			w.logger.Info("server joined", "server", addr)
		case errors.Is(err, types.ErrServerExists):
			w.logger.Debug("adopting known server", "server", addr)
		default:
			errs = append(errs, err)
			continue
		}
		w.members[addr] = struct{}{}
	}

	for _, addr := range slices.Sorted(maps.Keys(w.members)) {
		if _, ok := live[addr]; ok {
			continue
		}

		err := w.topology.RemoveServer(types.NewServer(addr))
		switch {
		case err == nil:
			w.logger.Info("server left", "server", addr)
		case errors.Is(err, types.ErrServerNotFound):
			w.logger.Debug("member already removed", "server", addr)
		default:
			errs = append(errs, err)
			continue
		}
		delete(w.members, addr)
	}

	return errors.Join(errs...)
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.startWatcher(ctx); err != nil {
		w.logger.Warn("failed to start watcher, falling back to polling only", "error", err)
	}
	defer w.stopWatcher()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	debounceTimer := time.NewTimer(debounce)
	debounceTimer.Stop()
	pending := false

	var updates <-chan jetstream.KeyValueEntry
	w.watcherMu.Lock()
	if w.watcher != nil {
		updates = w.watcher.Updates()
	}
	w.watcherMu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case entry, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			// nil marks the end of the initial replay
			if entry == nil {
				continue
			}
			if !pending {
				pending = true
				debounceTimer.Reset(debounce)
			}
		case <-debounceTimer.C:
			pending = false
			w.reconcile(ctx, "watch")
		case <-ticker.C:
			w.reconcile(ctx, "poll")
		}
	}
}

func (w *Watcher) reconcile(ctx context.Context, trigger string) {
	if err := w.Reconcile(ctx); err != nil {
		w.logger.Error("membership reconcile failed", "trigger", trigger, "error", err)
	}
}

func (w *Watcher) startWatcher(ctx context.Context) error {
	w.watcherMu.Lock()
	defer w.watcherMu.Unlock()

	watcher, err := w.kv.Watch(ctx, w.prefix+".*")
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	w.watcher = watcher

	return nil
}

func (w *Watcher) stopWatcher() {
	w.watcherMu.Lock()
	defer w.watcherMu.Unlock()

	if w.watcher != nil {
		if err := w.watcher.Stop(); err != nil {
			w.logger.Warn("failed to stop watcher", "error", err)
		}
		w.watcher = nil
	}
}
