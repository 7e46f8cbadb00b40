package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/jathurchan/seatlicense/testutil"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	policy := DefaultRetryPolicy()
	noJitter := &mockRand{value: 0}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 300 * time.Millisecond},
		{1, 300 * time.Millisecond},
		{2, 600 * time.Millisecond},
		{3, 1200 * time.Millisecond},
		{4, 2 * time.Second},
		{10, 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			testutil.AssertEqual(t, tt.want, policy.Backoff(tt.attempt, noJitter))
		})
	}
}

func TestRetryPolicy_BackoffZeroBase(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 0, MaxBackoff: time.Second}
	testutil.AssertEqual(t, time.Duration(0), policy.Backoff(3, &mockRand{value: 0.9}))
}

func TestRetryPolicy_BackoffJitter(t *testing.T) {
	policy := DefaultRetryPolicy()

	testutil.AssertEqual(t, 300*time.Millisecond, policy.Backoff(1, &mockRand{value: 0}))
	testutil.AssertEqual(t, 315*time.Millisecond, policy.Backoff(1, &mockRand{value: 0.5}))
	testutil.AssertEqual(t, 330*time.Millisecond, policy.Backoff(1, &mockRand{value: 1}))
	testutil.AssertEqual(t, 300*time.Millisecond, policy.Backoff(1, nil))

	policy.JitterFactor = 0
	testutil.AssertEqual(t, 300*time.Millisecond, policy.Backoff(1, &mockRand{value: 0.9}))
}

func TestRetryPolicy_BackoffNeverBelowBase(t *testing.T) {
	policy := DefaultRetryPolicy()
	for attempt := 1; attempt <= 5; attempt++ {
		floor := policy.Backoff(attempt, &mockRand{value: 0})
		for _, v := range []float64{0, 0.01, 0.3, 0.99} {
			got := policy.Backoff(attempt, &mockRand{value: v})
			testutil.AssertTrue(t, got >= floor, "attempt %d jitter %.2f gave %v below %v", attempt, v, got, floor)
			testutil.AssertTrue(t, got <= floor+floor/10, "attempt %d jitter %.2f gave %v", attempt, v, got)
		}
	}
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	policy := DefaultRetryPolicy()
	timeout := fmt.Errorf("%w: read", ErrTimeout)

	testutil.AssertTrue(t, policy.ShouldRetry(1, timeout))
	testutil.AssertFalse(t, policy.ShouldRetry(2, timeout), "attempt cap reached")
	testutil.AssertFalse(t, policy.ShouldRetry(1, ErrEmptyLicenseKey))
}

func TestRetryPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RetryPolicy)
		wantErr bool
	}{
		{"default", func(*RetryPolicy) {}, false},
		{"single attempt", func(p *RetryPolicy) { p.MaxAttempts = 1 }, false},
		{"zero attempts", func(p *RetryPolicy) { p.MaxAttempts = 0 }, true},
		{"negative base", func(p *RetryPolicy) { p.BaseDelay = -time.Millisecond }, true},
		{"cap below base", func(p *RetryPolicy) { p.MaxBackoff = 100 * time.Millisecond }, true},
		{"jitter above one", func(p *RetryPolicy) { p.JitterFactor = 1.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultRetryPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				testutil.AssertError(t, err)
			} else {
				testutil.AssertNoError(t, err)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout sentinel", fmt.Errorf("%w: connect", ErrTimeout), true},
		{"closed without response", ErrConnectionClosed, true},
		{"net timeout", &net.OpError{Op: "read", Err: timeoutError{}}, true},
		{"connection refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"cancelled", context.Canceled, false},
		{"caller deadline", context.DeadlineExceeded, false},
		{"usage error", ErrEmptyLicenseKey, false},
		{"invalid request", ErrInvalidRequest, false},
		{"response too large", ErrResponseTooLarge, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, tt.want, IsRetryable(tt.err))
		})
	}
}
