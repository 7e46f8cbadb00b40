package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jathurchan/seatlicense/protocol"
)

const (
	// Default timeout for establishing the TCP connection.
	defaultConnectTimeout = 2500 * time.Millisecond

	// Default timeout covering the request write and the response read.
	defaultIOTimeout = 2500 * time.Millisecond

	// Default number of validation attempts, including the first.
	defaultMaxAttempts = 2

	// Default delay unit for backoff between validation attempts.
	defaultBaseDelay = 300 * time.Millisecond

	// Default maximum backoff duration.
	defaultMaxBackoff = 2 * time.Second

	// Default jitter factor to randomize backoff durations.
	defaultJitterFactor = 0.1

	// Default minimum spacing between two requests of one client.
	defaultMinRequestInterval = time.Second

	// Default resolver queried to decide whether the host is online.
	defaultProbeAddress = "8.8.8.8:53"

	// Default timeout for the connectivity probe.
	defaultProbeTimeout = 2 * time.Second
)

// DefaultAddress is the server endpoint used when none is configured.
var DefaultAddress = fmt.Sprintf("127.0.0.1:%d", protocol.DefaultPort)

// Config holds configuration options for license clients.
type Config struct {
	// Address is the host:port of the license server.
	Address string

	// ConnectTimeout bounds establishing the TCP connection. Defaults to 2.5 seconds.
	ConnectTimeout time.Duration

	// IOTimeout bounds writing the request and reading the response. Defaults to 2.5 seconds.
	IOTimeout time.Duration

	// MaxResponseSize caps the bytes read for one response. Defaults to 4096.
	MaxResponseSize int

	// MinRequestInterval is the minimum delay between two requests issued by
	// the same client, shared by all goroutines using it. Zero disables it.
	MinRequestInterval time.Duration

	// RetryPolicy governs retries of license validation.
	RetryPolicy RetryPolicy

	// ProbeAddress is the DNS server queried when the license server cannot be reached.
	ProbeAddress string

	// ProbeTimeout bounds the connectivity probe.
	ProbeTimeout time.Duration

	// MachineID overrides machine id discovery when set.
	MachineID string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Address:            DefaultAddress,
		ConnectTimeout:     defaultConnectTimeout,
		IOTimeout:          defaultIOTimeout,
		MaxResponseSize:    protocol.MaxResponseSize,
		MinRequestInterval: defaultMinRequestInterval,
		RetryPolicy:        DefaultRetryPolicy(),
		ProbeAddress:       defaultProbeAddress,
		ProbeTimeout:       defaultProbeTimeout,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Address == "" {
		return errors.New("config: Address must be set")
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("config: invalid Address %q: %w", c.Address, err)
	}
	if c.ConnectTimeout <= 0 {
		return errors.New("config: ConnectTimeout must be positive")
	}
	if c.IOTimeout <= 0 {
		return errors.New("config: IOTimeout must be positive")
	}
	if c.MaxResponseSize <= 0 || c.MaxResponseSize > protocol.MaxResponseSize {
		return fmt.Errorf("config: MaxResponseSize must be between 1 and %d", protocol.MaxResponseSize)
	}
	if c.MinRequestInterval < 0 {
		return errors.New("config: MinRequestInterval must not be negative")
	}
	if c.ProbeTimeout < 0 {
		return errors.New("config: ProbeTimeout must not be negative")
	}
	if err := c.RetryPolicy.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
