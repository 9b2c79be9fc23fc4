package logger_test

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"pocketarm/logger"
)

func TestLoggerRingBuffer(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	log.Write(w)
	if w.String() != "" {
		t.Fatalf("expected empty log, got %q", w.String())
	}

	log.Log(logger.Allow, "test", "this is a test")
	w.Reset()
	log.Write(w)
	if w.String() != "test: this is a test\n" {
		t.Fatalf("got %q", w.String())
	}

	log.Log(logger.Allow, "test2", "this is another test")
	w.Reset()
	log.Write(w)
	want := "test: this is a test\ntest2: this is another test\n"
	if w.String() != want {
		t.Fatalf("got %q, want %q", w.String(), want)
	}

	w.Reset()
	log.Tail(w, 100)
	if w.String() != want {
		t.Fatalf("got %q, want %q", w.String(), want)
	}

	w.Reset()
	log.Tail(w, 2)
	if w.String() != want {
		t.Fatalf("got %q, want %q", w.String(), want)
	}

	w.Reset()
	log.Tail(w, 1)
	if w.String() != "test2: this is another test\n" {
		t.Fatalf("got %q", w.String())
	}

	w.Reset()
	log.Tail(w, 0)
	if w.String() != "" {
		t.Fatalf("got %q", w.String())
	}
}

// prohibitLogging randomises whether logging is allowed, exercising the
// Permission interface.
type prohibitLogging struct {
	allow int
}

func (p prohibitLogging) AllowLogging() bool {
	return p.allow > 50
}

func TestPermissions(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	var p prohibitLogging

	for i := 0; i < 100; i++ {
		p.allow = rand.Intn(100)
		log.Clear()
		w.Reset()
		log.Log(p, "tag", "detail")
		log.Write(w)
		if p.AllowLogging() {
			if w.String() != "tag: detail\n" {
				t.Fatalf("got %q", w.String())
			}
		} else if w.String() != "" {
			t.Fatalf("expected suppressed entry, got %q", w.String())
		}
	}
}

// Log() explicitly handles error types by using the Error() result.
func TestErrorLogging(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	err := errors.New("test error")

	log.Log(logger.Allow, "tag", err)
	log.Write(w)
	if w.String() != "tag: test error\n" {
		t.Fatalf("got %q", w.String())
	}

	log.Clear()
	w.Reset()

	log.Logf(logger.Allow, "tag", "wrapped: %v", err)
	log.Write(w)
	if w.String() != "tag: wrapped: test error\n" {
		t.Fatalf("got %q", w.String())
	}
}

// Log() explicitly handles fmt.Stringer types.
type stringerTest struct{}

func (stringerTest) String() string {
	return "stringer test"
}

func TestStringerLogging(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	log.Log(logger.Allow, "tag", stringerTest{})
	log.Write(w)
	if w.String() != "tag: stringer test\n" {
		t.Fatalf("got %q", w.String())
	}
}

// for explicitly unsupported types, Log() falls back to the %v verb.
func TestIntLogging(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	log.Log(logger.Allow, "tag", 100)
	log.Write(w)
	if w.String() != "tag: 100\n" {
		t.Fatalf("got %q", w.String())
	}
}
