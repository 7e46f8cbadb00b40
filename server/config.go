package server

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jathurchan/seatlicense/clock"
	"github.com/jathurchan/seatlicense/logger"
	"github.com/jathurchan/seatlicense/protocol"
)

// Config holds the settings for a license server instance.
type Config struct {
	// ListenAddress is the TCP bind address (e.g., "0.0.0.0:4053").
	ListenAddress string

	// Version is the string answered to getversion.
	Version string

	MaxRequestSize  int           // Maximum size of one request line (in bytes)
	MaxConnections  int           // Max connections served at once, 0 for no cap
	ShutdownTimeout time.Duration // Max time Stop waits for in-flight connections
	ReadTimeout     time.Duration // Read deadline per connection, 0 for none

	// FrameIdleTimeout ends a request that stops arriving without a newline.
	// Zero waits for a newline or EOF.
	FrameIdleTimeout time.Duration

	WriteTimeout    time.Duration // Write deadline for the response, 0 for none

	EnableRateLimit bool          // Whether accepted connections are rate limited
	RateLimit       int           // Connections allowed per window
	RateLimitBurst  int           // Burst capacity
	RateLimitWindow time.Duration // Window RateLimit applies to

	Logger  logger.Logger
	Metrics ServerMetrics
	Clock   clock.Clock
}

// DefaultConfig returns a Config pre-populated with defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddress:    DefaultListenAddress,
		Version:          DefaultVersion,
		MaxRequestSize:   DefaultMaxRequestSize,
		MaxConnections:   DefaultMaxConnections,
		ShutdownTimeout:  DefaultShutdownTimeout,
		ReadTimeout:      DefaultReadTimeout,
		FrameIdleTimeout: DefaultFrameIdleTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		EnableRateLimit:  false,
		RateLimit:        DefaultRateLimit,
		RateLimitBurst:   DefaultRateLimitBurst,
		RateLimitWindow:  DefaultRateLimitWindow,
		Logger:           logger.NewNoOpLogger(),
		Metrics:          NewNoOpServerMetrics(),
		Clock:            clock.NewStandardClock(),
	}
}

// Validate checks if the server configuration is valid.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return NewConfigError("ListenAddress cannot be empty")
	}
	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		return NewConfigError(fmt.Sprintf("ListenAddress %q is not host:port: %v", c.ListenAddress, err))
	}
	if strings.TrimSpace(c.Version) == "" {
		return NewConfigError("Version cannot be empty")
	}
	if len(c.Version) > protocol.MaxResponseSize {
		return NewConfigError(fmt.Sprintf("Version exceeds %d bytes", protocol.MaxResponseSize))
	}

	if c.MaxRequestSize <= 0 {
		return NewConfigError("MaxRequestSize must be positive")
	}
	if c.MaxConnections < 0 {
		return NewConfigError("MaxConnections cannot be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return NewConfigError("ShutdownTimeout must be positive")
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return NewConfigError("ReadTimeout and WriteTimeout cannot be negative")
	}
	if c.FrameIdleTimeout < 0 {
		return NewConfigError("FrameIdleTimeout cannot be negative")
	}

	if c.EnableRateLimit {
		if c.RateLimit <= 0 {
			return NewConfigError("RateLimit must be positive")
		}
		if c.RateLimitBurst <= 0 {
			return NewConfigError("RateLimitBurst must be positive")
		}
		if c.RateLimitWindow <= 0 {
			return NewConfigError("RateLimitWindow must be positive")
		}
	}

	return nil
}
