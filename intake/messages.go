package intake

import (
	"errors"
	"fmt"
	"time"

	chs "github.com/David-Tong/consistent-hashing-scheduler"
	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// Error codes carried in replies.
const (
	CodeBadRequest      = "bad_request"
	CodeInvalidTask     = "invalid_task"
	CodeUnknownCategory = "unknown_category"
	CodeNoServers       = "no_servers"
	CodeServerNotFound  = "server_not_found"
	CodeInternal        = "internal"
)

// ErrBadRequest is returned when the service could not decode a request.
var ErrBadRequest = errors.New("bad request")

// ErrRemote is returned for service failures without a dedicated sentinel.
var ErrRemote = errors.New("remote error")

// Reply is the common part of every reply.
type Reply struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// Err converts the reply into an error wrapping the matching sentinel.
func (r Reply) Err() error {
	if r.Code == "" {
		return nil
	}

	var sentinel error
	switch r.Code {
	case CodeBadRequest:
		sentinel = ErrBadRequest
	case CodeInvalidTask:
		sentinel = chs.ErrInvalidTask
	case CodeUnknownCategory:
		sentinel = chs.ErrUnknownCategory
	case CodeNoServers:
		sentinel = chs.ErrNoServers
	case CodeServerNotFound:
		sentinel = chs.ErrServerNotFound
	default:
		sentinel = ErrRemote
	}

	return fmt.Errorf("%w: %s", sentinel, r.Error)
}

// failure builds the reply for err.
func failure(err error) Reply {
	code := CodeInternal
	switch {
	case errors.Is(err, ErrBadRequest):
		code = CodeBadRequest
	case errors.Is(err, chs.ErrInvalidTask):
		code = CodeInvalidTask
	case errors.Is(err, chs.ErrUnknownCategory):
		code = CodeUnknownCategory
	case errors.Is(err, chs.ErrNoServers):
		code = CodeNoServers
	case errors.Is(err, chs.ErrServerNotFound):
		code = CodeServerNotFound
	}

	return Reply{Code: code, Error: err.Error()}
}

// ScheduleReply answers a schedule request.
type ScheduleReply struct {
	Reply

	// Server is the address the task was assigned to.
	Server string `json:"server,omitempty"`

	// Load is the server load right after the assignment.
	Load int64 `json:"load,omitempty"`
}

// ReleaseRequest asks the service to release a completed task.
type ReleaseRequest struct {
	Server string     `json:"server"`
	Task   types.Task `json:"task"`
}

// StatsReply answers a stats request.
type StatsReply struct {
	Reply
	chs.Stats
}

// AssignmentEvent is the journal record of one assignment.
type AssignmentEvent struct {
	TaskID    string         `json:"taskId"`
	Category  types.Category `json:"category"`
	Weight    int64          `json:"weight"`
	Server    string         `json:"server"`
	Timestamp time.Time      `json:"timestamp"`
}
