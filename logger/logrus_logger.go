package logger

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"

	"github.com/sirupsen/logrus"
)

// LogrusOptions configures a LogrusLogger.
type LogrusOptions struct {
	// Level is the minimum level ("debug", "info", "warn", "error", "fatal").
	Level string

	// Format selects the formatter: "json" or "text" (default).
	Format string

	// Output receives log lines. Defaults to os.Stdout.
	Output io.Writer

	// ReportCaller adds file:line of the call site to every entry.
	ReportCaller bool
}

// LogrusLogger adapts a logrus entry to the Logger interface.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger builds a LogrusLogger from opts.
func NewLogrusLogger(opts LogrusOptions) Logger {
	l := logrus.New()
	l.SetLevel(toLogrusLevel(ParseLogLevel(opts.Level)))

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	l.SetOutput(out)
	l.SetReportCaller(opts.ReportCaller)

	switch opts.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				_, filename := path.Split(f.File)
				return "", fmt.Sprintf("%s:%d", filename, f.Line)
			},
		})
	}

	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// NewLogrusLoggerFromEntry wraps an existing entry, e.g. one with test hooks attached.
func NewLogrusLoggerFromEntry(entry *logrus.Entry) Logger {
	return &LogrusLogger{entry: entry}
}

func toLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	case LevelFatal:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

func toFields(kvs []any) logrus.Fields {
	fields := logrus.Fields{}
	for k, v := range pairs(kvs) {
		fields[k] = v
	}
	return fields
}

func (l *LogrusLogger) Debugw(msg string, kvs ...any) { l.entry.WithFields(toFields(kvs)).Debug(msg) }
func (l *LogrusLogger) Infow(msg string, kvs ...any)  { l.entry.WithFields(toFields(kvs)).Info(msg) }
func (l *LogrusLogger) Warnw(msg string, kvs ...any)  { l.entry.WithFields(toFields(kvs)).Warn(msg) }
func (l *LogrusLogger) Errorw(msg string, kvs ...any) { l.entry.WithFields(toFields(kvs)).Error(msg) }
func (l *LogrusLogger) Fatalw(msg string, kvs ...any) { l.entry.WithFields(toFields(kvs)).Fatal(msg) }

// With adds key-value pairs to the logger's context.
func (l *LogrusLogger) With(kvs ...any) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(toFields(kvs))}
}

// WithComponent returns a logger with a component name added to the context.
func (l *LogrusLogger) WithComponent(name string) Logger {
	return &LogrusLogger{entry: l.entry.WithField("component", name)}
}

// WithRequestID returns a logger with a request id added to the context.
func (l *LogrusLogger) WithRequestID(id string) Logger {
	return &LogrusLogger{entry: l.entry.WithField("request_id", id)}
}
