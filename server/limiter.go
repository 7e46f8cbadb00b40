package server

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/jathurchan/seatlicense/logger"
)

// ConnectionLimiter gates accepted connections before their request is read.
type ConnectionLimiter interface {
	// Admit returns nil when the connection from remoteAddr may be served,
	// or an error wrapping ErrRateLimited that names the remote and the limit.
	Admit(remoteAddr string) error

	// Rejected is the number of connections refused so far.
	Rejected() uint64
}

// tokenBucketLimiter admits connections from one bucket shared by all peers.
type tokenBucketLimiter struct {
	bucket   *rate.Limiter
	perSec   rate.Limit
	logger   logger.Logger
	rejected atomic.Uint64
}

// NewConnectionLimiter allows perWindow connections per window with the
// given burst. A window <= 0 admits everything.
func NewConnectionLimiter(perWindow, burst int, window time.Duration, log logger.Logger) ConnectionLimiter {
	limit := rate.Inf
	if window > 0 {
		limit = rate.Limit(float64(perWindow) / window.Seconds())
	} else {
		log.Warnw("Connection rate limit window is not positive, admitting all connections", "window", window)
	}
	if burst <= 0 {
		burst = 1
	}
	return &tokenBucketLimiter{
		bucket: rate.NewLimiter(limit, burst),
		perSec: limit,
		logger: log.WithComponent("limiter"),
	}
}

func (l *tokenBucketLimiter) Admit(remoteAddr string) error {
	if l.bucket.Allow() {
		return nil
	}
	n := l.rejected.Add(1)
	l.logger.Warnw("Connection refused by rate limit",
		"remote_addr", remoteAddr,
		"per_second", float64(l.perSec),
		"burst", l.bucket.Burst(),
		"rejected_total", n)
	return fmt.Errorf("%w: %s over %.2f connections/s", ErrRateLimited, remoteAddr, float64(l.perSec))
}

func (l *tokenBucketLimiter) Rejected() uint64 { return l.rejected.Load() }
