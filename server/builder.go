package server

import (
	"fmt"
	"time"

	"github.com/jathurchan/seatlicense/clock"
	"github.com/jathurchan/seatlicense/logger"
)

// Builder helps construct a Server with validated configuration and sane defaults.
type Builder struct {
	config Config
	store  LicenseStore
}

// NewBuilder returns a Builder preloaded with default configuration values.
func NewBuilder() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithStore sets the license store the server dispatches to. This must be set explicitly.
func (b *Builder) WithStore(store LicenseStore) *Builder {
	b.store = store
	return b
}

// WithListenAddress sets the TCP bind address.
func (b *Builder) WithListenAddress(address string) *Builder {
	b.config.ListenAddress = address
	return b
}

// WithVersion sets the version string answered to getversion.
func (b *Builder) WithVersion(version string) *Builder {
	b.config.Version = version
	return b
}

// WithLimits sets request size and connection limits.
// maxRequestSize <= 0 keeps the default; maxConnections < 0 keeps the default and 0 removes the cap.
func (b *Builder) WithLimits(maxRequestSize, maxConnections int) *Builder {
	if maxRequestSize > 0 {
		b.config.MaxRequestSize = maxRequestSize
	}
	if maxConnections >= 0 {
		b.config.MaxConnections = maxConnections
	}
	return b
}

// WithTimeouts sets shutdown and per-connection deadlines.
// A shutdown timeout <= 0 leaves the default; read and write timeouts < 0 leave theirs.
func (b *Builder) WithTimeouts(shutdown, read, write time.Duration) *Builder {
	if shutdown > 0 {
		b.config.ShutdownTimeout = shutdown
	}
	if read >= 0 {
		b.config.ReadTimeout = read
	}
	if write >= 0 {
		b.config.WriteTimeout = write
	}
	return b
}

// WithFrameIdleTimeout sets how long the server waits for more request bytes
// after some have arrived without a newline. Zero waits for a newline or EOF;
// negative values leave the default.
func (b *Builder) WithFrameIdleTimeout(idle time.Duration) *Builder {
	if idle >= 0 {
		b.config.FrameIdleTimeout = idle
	}
	return b
}

// WithRateLimit configures connection rate limiting.
// Values <= 0 use the default if rate limiting is enabled.
func (b *Builder) WithRateLimit(enabled bool, limit, burst int, window time.Duration) *Builder {
	b.config.EnableRateLimit = enabled
	if enabled {
		if limit > 0 {
			b.config.RateLimit = limit
		}
		if burst > 0 {
			b.config.RateLimitBurst = burst
		}
		if window > 0 {
			b.config.RateLimitWindow = window
		}
	}
	return b
}

// WithLogger sets the logger. A nil logger is ignored.
func (b *Builder) WithLogger(log logger.Logger) *Builder {
	if log != nil {
		b.config.Logger = log
	}
	return b
}

// WithMetrics sets the metrics sink. A nil value is ignored.
func (b *Builder) WithMetrics(metrics ServerMetrics) *Builder {
	if metrics != nil {
		b.config.Metrics = metrics
	}
	return b
}

// WithClock sets the clock used for timestamps and durations. A nil value is ignored.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	if c != nil {
		b.config.Clock = c
	}
	return b
}

// Build validates the configuration and returns a Server ready to Start.
func (b *Builder) Build() (*Server, error) {
	if b.store == nil {
		return nil, ErrMissingStore
	}
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("server: invalid configuration: %w", err)
	}
	return newServer(b.config, b.store), nil
}
