package clock

import (
	"testing"
	"time"
)

func TestStandardClock(t *testing.T) {
	c := NewStandardClock()

	start := c.Now()
	select {
	case <-c.After(5 * time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("After did not fire")
	}
	if c.Since(start) < 5*time.Millisecond {
		t.Errorf("expected at least 5ms to elapse, got %v", c.Since(start))
	}
}

func TestStandardRand(t *testing.T) {
	r := NewStandardRand()
	for range 100 {
		if f := r.Float64(); f < 0 || f >= 1 {
			t.Fatalf("Float64 out of range: %v", f)
		}
		if n := r.IntN(3); n < 0 || n >= 3 {
			t.Fatalf("IntN out of range: %v", n)
		}
	}
}
