package logger

// Logger defines structured, context-aware logging for the license server and client.
//
// All logging methods accept a message and a variadic list of key-value pairs.
// Keys must be strings and must alternate with values: key1, val1, key2, val2, ...
type Logger interface {
	// Debugw logs a debug-level message with optional structured context.
	Debugw(msg string, keysAndValues ...any)

	// Infow logs an info-level message with optional structured context.
	Infow(msg string, keysAndValues ...any)

	// Warnw logs a warning-level message with optional structured context.
	Warnw(msg string, keysAndValues ...any)

	// Errorw logs an error-level message with optional structured context.
	Errorw(msg string, keysAndValues ...any)

	// Fatalw logs a fatal-level message and then terminates the application.
	Fatalw(msg string, keysAndValues ...any)

	// With adds arbitrary key-value pairs to the logger's context.
	With(keysAndValues ...any) Logger

	// WithComponent adds a component label (e.g., "store", "server") to categorize log output.
	WithComponent(name string) Logger

	// WithRequestID tags every entry with the id of the connection being served.
	WithRequestID(id string) Logger
}
