// Package intake exposes a Scheduler over NATS request/reply.
//
// Subjects (with the default "chs" prefix):
//
//	chs.schedule   request: types.Task        reply: ScheduleReply
//	chs.release    request: ReleaseRequest    reply: Reply
//	chs.stats      request: empty             reply: StatsReply
//
// Bodies are JSON. Errors travel in the reply as a code plus message and are
// mapped back to the scheduler's sentinel errors by Client, so callers can
// keep using errors.Is.
//
// When a journal is configured the service additionally publishes every
// assignment to JetStream on "<prefix>.journal.<category>".
package intake
