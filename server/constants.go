package server

import (
	"fmt"
	"time"

	"github.com/jathurchan/seatlicense/protocol"
)

const (
	// --- Default server configuration values ---

	// DefaultVersion is reported by getversion when no version is configured.
	DefaultVersion = "1.0.0"

	// DefaultShutdownTimeout bounds how long Stop waits for in-flight connections.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultMaxRequestSize bounds one request line in bytes.
	DefaultMaxRequestSize = protocol.DefaultMaxRequestSize

	// DefaultMaxConnections caps concurrently served connections. Zero disables the cap.
	DefaultMaxConnections = 256

	// DefaultReadTimeout is zero: the server trusts clients to send promptly.
	DefaultReadTimeout time.Duration = 0

	// DefaultFrameIdleTimeout ends a request whose bytes stopped arriving
	// without a trailing newline.
	DefaultFrameIdleTimeout = 200 * time.Millisecond

	// DefaultWriteTimeout bounds writing one response.
	DefaultWriteTimeout = 5 * time.Second

	// --- Rate limiting defaults ---

	// DefaultRateLimit is the number of connections accepted per window when rate limiting is on.
	DefaultRateLimit = 100

	// DefaultRateLimitBurst is the token bucket burst size.
	DefaultRateLimitBurst = 200

	// DefaultRateLimitWindow is the window DefaultRateLimit applies to.
	DefaultRateLimitWindow = time.Second

	// --- Accept loop ---

	// acceptBackoffMin is the first delay after a temporary accept error.
	acceptBackoffMin = 5 * time.Millisecond

	// acceptBackoffMax caps the delay between retried accepts.
	acceptBackoffMax = time.Second
)

// DefaultListenAddress is the address the server binds to by default.
var DefaultListenAddress = fmt.Sprintf("0.0.0.0:%d", protocol.DefaultPort)
