package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	chs "github.com/David-Tong/consistent-hashing-scheduler"
	"github.com/David-Tong/consistent-hashing-scheduler/internal/natsutil"
	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// ErrUnavailable is returned when the service cannot be reached.
var ErrUnavailable = errors.New("intake service unavailable")

// Assignment is the result of a remote schedule request.
type Assignment struct {
	Server string
	Load   int64
}

// Client sends requests to an intake Service.
type Client struct {
	nc  *nats.Conn
	cfg Config
}

// NewClient creates an intake client.
//
// Parameters:
//   - nc: NATS connection
//   - cfg: Subjects and request timeout (zero fields take defaults)
//
// Returns:
//   - *Client: Client ready for concurrent use
func NewClient(nc *nats.Conn, cfg Config) *Client {
	SetDefaults(&cfg)

	return &Client{nc: nc, cfg: cfg}
}

// Schedule asks the service to schedule task.
//
// Returns:
//   - Assignment: Chosen server and its load after the assignment
//   - error: Scheduler sentinel errors, ErrBadRequest or ErrUnavailable (wrapped)
func (c *Client) Schedule(ctx context.Context, task types.Task) (Assignment, error) {
	var reply ScheduleReply
	if err := c.request(ctx, c.cfg.ScheduleSubject(), task, &reply); err != nil {
		return Assignment{}, err
	}
	if err := reply.Err(); err != nil {
		return Assignment{}, err
	}

	return Assignment{Server: reply.Server, Load: reply.Load}, nil
}

// ScheduleTask schedules task with the configured request timeout.
//
// The returned server is a detached handle carrying only the address; its
// load is not tracked locally.
func (c *Client) ScheduleTask(task types.Task) (*types.Server, error) {
	assignment, err := c.Schedule(context.Background(), task)
	if err != nil {
		return nil, err
	}

	return types.NewServer(assignment.Server), nil
}

// Release asks the service to release a completed task.
func (c *Client) Release(ctx context.Context, server string, task types.Task) error {
	var reply Reply
	if err := c.request(ctx, c.cfg.ReleaseSubject(), ReleaseRequest{Server: server, Task: task}, &reply); err != nil {
		return err
	}

	return reply.Err()
}

// Stats fetches the scheduler thresholds.
func (c *Client) Stats(ctx context.Context) (chs.Stats, error) {
	var reply StatsReply
	if err := c.request(ctx, c.cfg.StatsSubject(), struct{}{}, &reply); err != nil {
		return chs.Stats{}, err
	}
	if err := reply.Err(); err != nil {
		return chs.Stats{}, err
	}

	return reply.Stats, nil
}

func (c *Client) request(ctx context.Context, subject string, req any, reply any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", subject, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	msg, err := c.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		if natsutil.IsConnectivityError(err) {
			return fmt.Errorf("%w: %s: %w", ErrUnavailable, subject, err)
		}

		return fmt.Errorf("%s request failed: %w", subject, err)
	}

	if err := json.Unmarshal(msg.Data, reply); err != nil {
		return fmt.Errorf("failed to decode %s reply: %w", subject, err)
	}

	return nil
}
