package client

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// requestLimiter spaces requests at least interval apart across every
// goroutine sharing one Client. The first request passes immediately.
type requestLimiter struct {
	limiter *rate.Limiter
}

func newRequestLimiter(interval time.Duration) *requestLimiter {
	if interval <= 0 {
		return &requestLimiter{}
	}
	return &requestLimiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request may be sent or ctx is done.
func (l *requestLimiter) Wait(ctx context.Context) error {
	if l.limiter == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}
