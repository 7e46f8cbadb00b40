package logger

import (
	"bytes"
	"strings"
	"testing"
)

func newCapturedLogger(minLevel string) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewStdLoggerTo(&buf, 0, minLevel), &buf
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"WARNING", LevelWarn},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{" error ", LevelError},
		{"unknown", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestStdLogger_LogLevels(t *testing.T) {
	tests := []struct {
		name      string
		minLevel  string
		logFunc   func(Logger)
		expected  string
		shouldLog bool
	}{
		{
			name:      "debug message with debug level",
			minLevel:  "debug",
			logFunc:   func(l Logger) { l.Debugw("test debug message") },
			expected:  "[DEBUG] test debug message",
			shouldLog: true,
		},
		{
			name:      "debug message with info level",
			minLevel:  "info",
			logFunc:   func(l Logger) { l.Debugw("test debug message") },
			shouldLog: false,
		},
		{
			name:      "warn message with warn level",
			minLevel:  "warn",
			logFunc:   func(l Logger) { l.Warnw("test warn message") },
			expected:  "[WARN] test warn message",
			shouldLog: true,
		},
		{
			name:      "info message with error level",
			minLevel:  "error",
			logFunc:   func(l Logger) { l.Infow("test info message") },
			shouldLog: false,
		},
		{
			name:      "error message with error level",
			minLevel:  "error",
			logFunc:   func(l Logger) { l.Errorw("test error message") },
			expected:  "[ERROR] test error message",
			shouldLog: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newCapturedLogger(tt.minLevel)
			tt.logFunc(logger)

			output := buf.String()
			if tt.shouldLog {
				if !strings.Contains(output, tt.expected) {
					t.Errorf("Expected log output to contain %q, got %q", tt.expected, output)
				}
			} else if output != "" {
				t.Errorf("Expected no log output, got %q", output)
			}
		})
	}
}

func TestStdLogger_KeyValues(t *testing.T) {
	logger, buf := newCapturedLogger("debug")

	logger.Infow("test message", "key1", "value1", 123, "skipped", "key2", 42, "dangling")

	output := buf.String()
	if !strings.Contains(output, "[INFO] test message key1=value1 key2=42") {
		t.Errorf("unexpected output %q", output)
	}
	if strings.Contains(output, "dangling") || strings.Contains(output, "123=") {
		t.Errorf("expected malformed pairs to be skipped, got %q", output)
	}
}

func TestStdLogger_ContextSortedAndIsolated(t *testing.T) {
	base, buf := newCapturedLogger("debug")

	a := base.WithComponent("server").WithRequestID("req-1").With("zeta", 1, "alpha", 2)
	b := base.WithComponent("store")

	a.Infow("from a")
	first := buf.String()
	buf.Reset()
	b.Infow("from b")
	second := buf.String()

	want := "[INFO] from a alpha=2 component=server request_id=req-1 zeta=1"
	if strings.TrimSpace(first) != want {
		t.Errorf("got %q, want %q", strings.TrimSpace(first), want)
	}
	if strings.Contains(second, "request_id") || !strings.Contains(second, "component=store") {
		t.Errorf("context leaked between loggers: %q", second)
	}
}

func TestStdLogger_FatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	code := -1
	l := NewStdLoggerTo(&buf, 0, "info").(*StdLogger)
	l.exit = func(c int) { code = c }

	l.Fatalw("boom", "reason", "test")

	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(buf.String(), "[FATAL] boom reason=test") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
