package testing

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// NewTestLogger returns a types.Logger that writes scheduler, intake and
// membership log lines to the test log as "LEVEL msg key=value ...".
//
// Background goroutines such as the membership watcher or the intake service
// may still log while the test is tearing down. Lines arriving after the test
// has finished are dropped instead of panicking in t.Logf.
func NewTestLogger(tb testing.TB) types.Logger {
	l := &testLogger{tb: tb}
	tb.Cleanup(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.done = true
	})

	return l
}

type testLogger struct {
	tb testing.TB

	mu   sync.Mutex
	done bool
}

var _ types.Logger = (*testLogger)(nil)

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.log("DEBUG", msg, keysAndValues)
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.log("INFO", msg, keysAndValues)
}

func (l *testLogger) Warn(msg string, keysAndValues ...any) {
	l.log("WARN", msg, keysAndValues)
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.log("ERROR", msg, keysAndValues)
}

// Fatal fails the test. Like t.Fatalf it must be called from the test goroutine.
func (l *testLogger) Fatal(msg string, keysAndValues ...any) {
	l.tb.Helper()
	l.tb.Fatalf("FATAL %s", format(msg, keysAndValues))
}

func (l *testLogger) log(level, msg string, keysAndValues []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return
	}
	l.tb.Logf("%s %s", level, format(msg, keysAndValues))
}

// format renders keysAndValues as key=value pairs. A trailing key without a
// value is printed as key=(MISSING).
func format(msg string, keysAndValues []any) string {
	var b strings.Builder
	b.WriteString(msg)

	for i := 0; i < len(keysAndValues); i += 2 {
		var value any = "(MISSING)"
		if i+1 < len(keysAndValues) {
			value = keysAndValues[i+1]
		}
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], value)
	}

	return b.String()
}
