package client

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/jathurchan/seatlicense/clock"
)

// RetryPolicy decides whether a failed validation is retried and how long to
// wait before the next attempt.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// BaseDelay is the delay unit the backoff grows from.
	BaseDelay time.Duration

	// MaxBackoff caps the delay between attempts before jitter.
	MaxBackoff time.Duration

	// JitterFactor adds randomness to backoff timing (0.0 to 1.0).
	JitterFactor float64
}

// DefaultRetryPolicy returns the policy used by DefaultConfig.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  defaultMaxAttempts,
		BaseDelay:    defaultBaseDelay,
		MaxBackoff:   defaultMaxBackoff,
		JitterFactor: defaultJitterFactor,
	}
}

// Validate checks the policy for nonsensical values.
func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return errors.New("retry: MaxAttempts must be at least 1")
	case p.BaseDelay < 0:
		return errors.New("retry: BaseDelay must not be negative")
	case p.MaxBackoff < p.BaseDelay:
		return errors.New("retry: MaxBackoff must not be below BaseDelay")
	case p.JitterFactor < 0 || p.JitterFactor > 1:
		return errors.New("retry: JitterFactor must be between 0 and 1")
	}
	return nil
}

// ShouldRetry reports whether another attempt may follow the failed attempt
// number attempt (1-based) that ended with err.
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	return attempt < p.MaxAttempts && IsRetryable(err)
}

// Backoff returns the wait after the failed attempt number attempt (1-based):
// min(max(attempt*base, base*2^(attempt-1)), cap) plus a random jitter of
// up to JitterFactor of that value. Jitter only lengthens the wait.
func (p RetryPolicy) Backoff(attempt int, r clock.Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	linear := time.Duration(attempt) * p.BaseDelay
	exponential := p.BaseDelay
	for i := 1; i < attempt && exponential < p.MaxBackoff; i++ {
		exponential *= 2
	}
	backoff := min(max(linear, exponential), p.MaxBackoff)

	if p.JitterFactor > 0 && r != nil {
		jitter := r.Float64() * p.JitterFactor * float64(backoff)
		backoff += time.Duration(jitter)
	}
	return max(backoff, 0)
}

// IsRetryable reports whether err is a transient transport failure:
// a timeout, a connection closed without a response, or a socket error.
// Usage errors, server answers and context cancellation are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnectionClosed) {
		return true
	}
	// A bare context deadline is the caller's budget running out.
	if err == context.DeadlineExceeded {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
