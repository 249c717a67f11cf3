package testing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingTB captures Logf output and defers Cleanup until runCleanup.
type recordingTB struct {
	testing.TB

	lines    []string
	cleanups []func()
}

func (r *recordingTB) Logf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *recordingTB) Cleanup(fn func()) {
	r.cleanups = append(r.cleanups, fn)
}

func (r *recordingTB) runCleanup() {
	for _, fn := range r.cleanups {
		fn()
	}
}

func TestNewTestLogger(t *testing.T) {
	t.Run("formats key value pairs", func(t *testing.T) {
		tb := &recordingTB{TB: t}
		logger := NewTestLogger(tb)

		logger.Info("server admitted into category", "category", "compute", "server", "10.0.0.1")
		logger.Warn("no server within load bound", "load", int64(7), "maxAssignedLoad")

		require.Equal(t, []string{
			"INFO server admitted into category category=compute server=10.0.0.1",
			"WARN no server within load bound load=7 maxAssignedLoad=(MISSING)",
		}, tb.lines)
	})

	t.Run("drops lines after the test finished", func(t *testing.T) {
		tb := &recordingTB{TB: t}
		logger := NewTestLogger(tb)

		logger.Debug("before")
		tb.runCleanup()
		logger.Error("after", "error", "watch closed")

		require.Equal(t, []string{"DEBUG before"}, tb.lines)
	})
}
