// Package logger implements a small in-memory ring-buffer logger used
// throughout the emulator for diagnostic messages that are not severe
// enough to be returned as an error (unrecognised bus addresses,
// dropped peripheral writes, fetches outside the decoded program).
//
// Log entries are kept in memory rather than written directly to
// stdout/stderr so that a host can decide whether and how to surface
// them (a debug overlay, a file, or nothing at all).
package logger

import (
	"fmt"
	"io"
	"sync"
)

// Permission is implemented by callers that want to conditionally
// suppress a log entry, e.g. a preference the host exposes to the user.
type Permission interface {
	AllowLogging() bool
}

// Allow is a Permission that always allows logging.
const Allow = alwaysAllow(true)

type alwaysAllow bool

func (a alwaysAllow) AllowLogging() bool {
	return bool(a)
}

type entry struct {
	tag    string
	detail string
}

func (e entry) String() string {
	return fmt.Sprintf("%s: %s\n", e.tag, e.detail)
}

// Logger is a fixed-capacity ring buffer of log entries.
type Logger struct {
	mu      sync.Mutex
	entries []entry
	cap     int
	next    int
	size    int
}

// NewLogger creates a Logger that retains at most capacity entries,
// discarding the oldest entry once full.
func NewLogger(capacity int) *Logger {
	if capacity < 1 {
		capacity = 1
	}
	return &Logger{
		entries: make([]entry, capacity),
		cap:     capacity,
	}
}

// Log adds a new entry to the log, subject to the supplied permission.
// The detail argument is formatted according to its type: errors and
// fmt.Stringer use their own string representation; anything else
// falls back to the %v verb.
func (l *Logger) Log(perm Permission, tag string, detail interface{}) {
	if perm != nil && !perm.AllowLogging() {
		return
	}

	var s string
	switch v := detail.(type) {
	case error:
		s = v.Error()
	case fmt.Stringer:
		s = v.String()
	case string:
		s = v
	default:
		s = fmt.Sprintf("%v", v)
	}

	l.append(tag, s)
}

// Logf is like Log but formats detail with fmt.Sprintf first.
func (l *Logger) Logf(perm Permission, tag string, format string, args ...interface{}) {
	if perm != nil && !perm.AllowLogging() {
		return
	}
	l.append(tag, fmt.Sprintf(format, args...))
}

func (l *Logger) append(tag, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = entry{tag: tag, detail: detail}
	l.next = (l.next + 1) % l.cap
	if l.size < l.cap {
		l.size++
	}
}

// Clear empties the log.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next = 0
	l.size = 0
}

// Write writes every retained entry, oldest first, to w.
func (l *Logger) Write(w io.Writer) {
	l.Tail(w, l.cap)
}

// Tail writes the most recent n entries, oldest first, to w.
func (l *Logger) Tail(w io.Writer, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > l.size {
		n = l.size
	}
	if n <= 0 {
		return
	}

	start := (l.next - n + l.cap) % l.cap
	for i := 0; i < n; i++ {
		idx := (start + i) % l.cap
		fmt.Fprint(w, l.entries[idx].String())
	}
}

// central is the package-level logger used by the Log/Logf/Write/Tail/Clear
// convenience functions.
var central = NewLogger(1000)

var (
	echoMu sync.Mutex
	echoTo io.Writer
	echoOn bool
)

// SetEcho turns on (or off) immediate mirroring of every central-logger
// entry to w, in addition to its normal retention in the ring buffer.
// Passing on=false disables echoing regardless of w.
func SetEcho(w io.Writer, on bool) {
	echoMu.Lock()
	defer echoMu.Unlock()
	echoTo = w
	echoOn = on
}

// Log adds an entry to the central logger. Logging is always allowed.
func Log(tag string, detail interface{}) {
	central.Log(Allow, tag, detail)
	echo(tag, detail)
}

// Logf is like Log but formats detail with fmt.Sprintf first.
func Logf(tag string, format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	central.Log(Allow, tag, s)
	echo(tag, s)
}

func echo(tag string, detail interface{}) {
	echoMu.Lock()
	defer echoMu.Unlock()
	if echoOn && echoTo != nil {
		fmt.Fprint(echoTo, entry{tag: tag, detail: fmt.Sprintf("%v", detail)}.String())
	}
}

// Write writes the central logger's contents to w.
func Write(w io.Writer) {
	central.Write(w)
}

// Tail writes the most recent n entries of the central logger to w.
func Tail(w io.Writer, n int) {
	central.Tail(w, n)
}

// Clear empties the central logger.
func Clear() {
	central.Clear()
}
