package server

import (
	"errors"
	"fmt"
)

var (
	// ErrServerNotStarted indicates the server has not been started.
	ErrServerNotStarted = errors.New("server: server not started")

	// ErrServerAlreadyStarted indicates an attempt to start a server twice.
	ErrServerAlreadyStarted = errors.New("server: server already started")

	// ErrServerStopped indicates the server has been stopped and cannot be restarted.
	ErrServerStopped = errors.New("server: server stopped")

	// ErrShutdownTimeout indicates in-flight connections did not finish before the shutdown deadline.
	// Remaining connections were force-closed.
	ErrShutdownTimeout = errors.New("server: shutdown timed out")

	// ErrRateLimited indicates a connection was dropped by the rate limiter.
	ErrRateLimited = errors.New("server: connection rate limited")

	// ErrMissingStore indicates the server was built without a license store.
	ErrMissingStore = errors.New("server: license store is required")
)

// ServerError annotates a failure with the server operation it happened in.
type ServerError struct {
	Op  string
	Err error
}

// NewServerError wraps err for operation op.
func NewServerError(op string, err error) *ServerError {
	return &ServerError{Op: op, Err: err}
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
}

func (e *ServerError) Unwrap() error { return e.Err }

// ConfigError represents a validation error in Config.
type ConfigError struct {
	Message string
}

// NewConfigError returns a new ConfigError instance.
func NewConfigError(msg string) *ConfigError {
	return &ConfigError{Message: msg}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "server config error: " + e.Message
}
