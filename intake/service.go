package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	chs "github.com/David-Tong/consistent-hashing-scheduler"
	"github.com/David-Tong/consistent-hashing-scheduler/internal/logging"
	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// Backend is the scheduler surface served over NATS.
//
// *chs.Scheduler satisfies it.
type Backend interface {
	ScheduleTask(task types.Task) (*types.Server, error)
	ReleaseTask(addr string, task types.Task) error
	Stats() chs.Stats
}

// ErrAlreadyStarted is returned when Start is called on a running service.
var ErrAlreadyStarted = errors.New("intake service already started")

// Service answers schedule, release and stats requests.
type Service struct {
	nc      *nats.Conn
	backend Backend
	cfg     Config
	logger  types.Logger

	js jetstream.JetStream

	mu   sync.Mutex
	subs []*nats.Subscription
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger types.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates an intake service.
//
// Parameters:
//   - nc: NATS connection
//   - backend: Scheduler answering requests
//   - cfg: Subjects and journal settings (zero fields take defaults)
//   - opts: Optional logger
//
// Returns:
//   - *Service: Service ready to Start
//   - error: Error if the JetStream context cannot be created
func NewService(nc *nats.Conn, backend Backend, cfg Config, opts ...ServiceOption) (*Service, error) {
	SetDefaults(&cfg)

	s := &Service{
		nc:      nc,
		backend: backend,
		cfg:     cfg,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Journal {
		js, err := jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		s.js = js
	}

	return s, nil
}

// Start creates the journal stream when enabled and subscribes to every subject.
//
// Parameters:
//   - ctx: Context for stream creation
//
// Returns:
//   - error: ErrAlreadyStarted, or a subscription or stream error
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.subs) > 0 {
		return ErrAlreadyStarted
	}

	if s.js != nil {
		_, err := s.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:        s.cfg.JournalStream,
			Description: "Task assignment journal",
			Subjects:    []string{s.cfg.JournalSubject(">")},
			Storage:     jetstream.MemoryStorage,
			Retention:   jetstream.LimitsPolicy,
			MaxAge:      s.cfg.JournalMaxAge,
		})
		if err != nil {
			return fmt.Errorf("failed to create journal stream: %w", err)
		}
	}

	handlers := map[string]nats.MsgHandler{
		s.cfg.ScheduleSubject(): s.handleSchedule,
		s.cfg.ReleaseSubject():  s.handleRelease,
		s.cfg.StatsSubject():    s.handleStats,
	}

	for subject, handler := range handlers {
		sub, err := s.nc.QueueSubscribe(subject, s.cfg.QueueGroup, handler)
		if err != nil {
			s.unsubscribeLocked()
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}

	// Make sure the server has registered the subscriptions before callers send requests
	if err := s.nc.Flush(); err != nil {
		s.unsubscribeLocked()
		return fmt.Errorf("failed to flush subscriptions: %w", err)
	}

	s.logger.Info("intake service started",
		"prefix", s.cfg.SubjectPrefix,
		"queueGroup", s.cfg.QueueGroup,
		"journal", s.cfg.Journal,
	)

	return nil
}

// Stop drains every subscription and waits for pending journal publishes.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, sub := range s.subs {
		if err := sub.Drain(); err != nil {
			errs = append(errs, err)
		}
	}
	s.subs = nil

	if s.js != nil {
		select {
		case <-s.js.PublishAsyncComplete():
		case <-time.After(5 * time.Second):
			errs = append(errs, errors.New("journal publishes still pending"))
		}
	}

	s.logger.Info("intake service stopped", "prefix", s.cfg.SubjectPrefix)

	return errors.Join(errs...)
}

func (s *Service) unsubscribeLocked() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
}

func (s *Service) handleSchedule(msg *nats.Msg) {
	var task types.Task
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		s.respond(msg, ScheduleReply{Reply: failure(fmt.Errorf("%w: %w", ErrBadRequest, err))})
		return
	}

	srv, err := s.backend.ScheduleTask(task)
	if err != nil {
		s.logger.Warn("schedule request failed", "task", task.ID, "error", err)
		s.respond(msg, ScheduleReply{Reply: failure(err)})

		return
	}

	s.respond(msg, ScheduleReply{Server: srv.Address(), Load: srv.Load()})
	s.journal(task, srv.Address())
}

func (s *Service) handleRelease(msg *nats.Msg) {
	var req ReleaseRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.respond(msg, failure(fmt.Errorf("%w: %w", ErrBadRequest, err)))
		return
	}

	if err := s.backend.ReleaseTask(req.Server, req.Task); err != nil {
		s.respond(msg, failure(err))
		return
	}

	s.respond(msg, Reply{})
}

func (s *Service) handleStats(msg *nats.Msg) {
	s.respond(msg, StatsReply{Stats: s.backend.Stats()})
}

func (s *Service) respond(msg *nats.Msg, reply any) {
	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Error("failed to encode reply", "subject", msg.Subject, "error", err)
		return
	}

	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to send reply", "subject", msg.Subject, "error", err)
	}
}

// journal publishes the assignment without waiting for the acknowledgement.
func (s *Service) journal(task types.Task, server string) {
	if s.js == nil {
		return
	}

	data, err := json.Marshal(AssignmentEvent{
		TaskID:    task.ID,
		Category:  task.Category,
		Weight:    task.Weight,
		Server:    server,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to encode assignment event", "task", task.ID, "error", err)
		return
	}

	if _, err := s.js.PublishAsync(s.cfg.JournalSubject(task.Category.String()), data); err != nil {
		s.logger.Warn("failed to journal assignment", "task", task.ID, "error", err)
	}
}
