package server

import "time"

// ServerMetrics defines observability hooks for license server operations.
// All methods must be safe for concurrent use.
type ServerMetrics interface {
	// IncrRequest counts one finished request.
	// 'command' is the decoded command kind ("validate", "logout", ...), or
	// "unknown" when the line could not be decoded.
	// 'outcome' is the Outcome label; 'valid' is the counter it was classified under.
	IncrRequest(command string, outcome Outcome, valid bool)

	// ObserveRequestLatency records the time from accept until the connection closed.
	ObserveRequestLatency(command string, latency time.Duration)

	// IncrStoreError counts store failures (persist or closed store) per command.
	IncrStoreError(command string)

	// IncrRejectedConnection counts connections dropped before a request was read.
	// 'reason' is "rate_limited" or "read_error".
	IncrRejectedConnection(reason string)

	// SetActiveConnections sets the number of connections currently being served.
	SetActiveConnections(count int)

	// Reset clears all metric counters and resets gauges.
	// Useful primarily in unit or integration tests.
	Reset()
}

// NoOpServerMetrics provides a no-operation implementation of ServerMetrics.
type NoOpServerMetrics struct{}

// NewNoOpServerMetrics creates a new no-operation metrics implementation.
func NewNoOpServerMetrics() ServerMetrics {
	return &NoOpServerMetrics{}
}

func (n *NoOpServerMetrics) IncrRequest(command string, outcome Outcome, valid bool)     {}
func (n *NoOpServerMetrics) ObserveRequestLatency(command string, latency time.Duration) {}
func (n *NoOpServerMetrics) IncrStoreError(command string)                               {}
func (n *NoOpServerMetrics) IncrRejectedConnection(reason string)                        {}
func (n *NoOpServerMetrics) SetActiveConnections(count int)                              {}
func (n *NoOpServerMetrics) Reset()                                                      {}
