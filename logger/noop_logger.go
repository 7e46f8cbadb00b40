package logger

import "slices"

// NoOpLogger discards everything unless a hook is set. Hooks receive the
// context attached through With, WithComponent and WithRequestID ahead of
// the call's own pairs, so tests can check which connection a line came from.
type NoOpLogger struct {
	DebugwFunc func(string, ...any)
	InfowFunc  func(string, ...any)
	WarnwFunc  func(string, ...any)
	ErrorwFunc func(string, ...any)
	FatalwFunc func(string, ...any) // never exits

	fields []any
}

// NewNoOpLogger returns a Logger that discards all log messages.
func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) emit(hook func(string, ...any), msg string, kvs []any) {
	if hook == nil {
		return
	}
	if len(l.fields) == 0 {
		hook(msg, kvs...)
		return
	}
	hook(msg, append(slices.Clip(l.fields), kvs...)...)
}

func (l *NoOpLogger) Debugw(msg string, kvs ...any) { l.emit(l.DebugwFunc, msg, kvs) }
func (l *NoOpLogger) Infow(msg string, kvs ...any)  { l.emit(l.InfowFunc, msg, kvs) }
func (l *NoOpLogger) Warnw(msg string, kvs ...any)  { l.emit(l.WarnwFunc, msg, kvs) }
func (l *NoOpLogger) Errorw(msg string, kvs ...any) { l.emit(l.ErrorwFunc, msg, kvs) }
func (l *NoOpLogger) Fatalw(msg string, kvs ...any) { l.emit(l.FatalwFunc, msg, kvs) }

// With returns a copy sharing the hooks, with kvs added to its context.
// Without hooks there is nothing to carry and l itself is returned.
func (l *NoOpLogger) With(kvs ...any) Logger {
	if !l.hooked() {
		return l
	}
	c := *l
	c.fields = append(slices.Clip(l.fields), kvs...)
	return &c
}

func (l *NoOpLogger) WithComponent(name string) Logger { return l.With("component", name) }

func (l *NoOpLogger) WithRequestID(id string) Logger { return l.With("request_id", id) }

func (l *NoOpLogger) hooked() bool {
	return l.DebugwFunc != nil || l.InfowFunc != nil || l.WarnwFunc != nil ||
		l.ErrorwFunc != nil || l.FatalwFunc != nil
}
