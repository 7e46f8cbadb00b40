package logger

import (
	"fmt"
	"sync/atomic"
	"testing"
)

func TestNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()

	logger.Debugw("debug message", "key", "value")
	logger.Infow("info message", "key", "value")
	logger.Warnw("warn message", "key", "value")
	logger.Errorw("error message", "key", "value")

	// NoOpLogger.Fatalw should not terminate the process
	logger.Fatalw("fatal message", "key", "value")

	chained := logger.WithComponent("server").WithRequestID("abc").With("key", "value")
	chained.Infow("chained message")

	if chained != logger {
		t.Error("expected a hookless NoOpLogger to return itself")
	}
}

func TestNoOpLogger_Hooks(t *testing.T) {
	var warns, errs atomic.Int32
	l := &NoOpLogger{
		WarnwFunc:  func(string, ...any) { warns.Add(1) },
		ErrorwFunc: func(string, ...any) { errs.Add(1) },
	}

	l.Warnw("one")
	l.Warnw("two")
	l.Errorw("three")
	l.Infow("ignored")

	if warns.Load() != 2 {
		t.Errorf("expected 2 warn calls, got %d", warns.Load())
	}
	if errs.Load() != 1 {
		t.Errorf("expected 1 error call, got %d", errs.Load())
	}
}

func TestNoOpLogger_HooksSeeContext(t *testing.T) {
	var got []string
	base := &NoOpLogger{InfowFunc: func(msg string, kvs ...any) {
		got = append(got, fmt.Sprint(msg, kvs))
	}}

	server := base.WithComponent("server")
	reqA := server.WithRequestID("req-a")
	reqB := server.WithRequestID("req-b")

	reqA.Infow("handled", "outcome", "valid")
	reqB.Infow("handled")
	base.Infow("plain")

	want := []string{
		"handled[component server request_id req-a outcome valid]",
		"handled[component server request_id req-b]",
		"plain[]",
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("unexpected hook calls:\n got %q\nwant %q", got, want)
	}
}
