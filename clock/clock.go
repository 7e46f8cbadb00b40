// Package clock abstracts time and randomness so retry timing and rate limiting
// can be driven deterministically in tests.
package clock

import (
	"math/rand/v2"
	"time"
)

// Clock defines the time operations used by the client and server.
type Clock interface {
	// Now returns the current local time.
	Now() time.Time

	// Since returns the time elapsed since t (equivalent to Now().Sub(t)).
	Since(t time.Time) time.Duration

	// After waits for the duration to elapse and then sends the current time
	// on the returned channel.
	After(d time.Duration) <-chan time.Time
}

// Rand defines an interface for random number generation.
type Rand interface {
	// IntN returns a non-negative pseudo-random number in [0,n). It panics if n <= 0.
	IntN(n int) int

	// Float64 returns a pseudo-random number in [0.0,1.0).
	Float64() float64
}

type standardClock struct{}

// NewStandardClock returns a Clock backed by the time package.
func NewStandardClock() Clock {
	return standardClock{}
}

func (standardClock) Now() time.Time                         { return time.Now() }
func (standardClock) Since(t time.Time) time.Duration        { return time.Since(t) }
func (standardClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type standardRand struct{}

// NewStandardRand returns a Rand backed by math/rand/v2's global source.
func NewStandardRand() Rand {
	return standardRand{}
}

func (standardRand) IntN(n int) int   { return rand.IntN(n) }
func (standardRand) Float64() float64 { return rand.Float64() }
