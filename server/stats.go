package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jathurchan/seatlicense/types"
)

// Stats holds the aggregate request counters of a server. Counters are
// updated atomically so readers never block request handling.
type Stats struct {
	total   atomic.Uint64
	valid   atomic.Uint64
	invalid atomic.Uint64
	running atomic.Bool

	mu        sync.RWMutex
	startTime time.Time
}

// record counts one finished request as valid or invalid.
func (s *Stats) record(valid bool) {
	s.total.Add(1)
	if valid {
		s.valid.Add(1)
	} else {
		s.invalid.Add(1)
	}
}

func (s *Stats) markStarted(now time.Time) {
	s.mu.Lock()
	s.startTime = now
	s.mu.Unlock()
	s.running.Store(true)
}

func (s *Stats) markStopped() {
	s.running.Store(false)
}

// Snapshot copies the counters. Uptime is measured against now and is zero
// while the server is not running.
func (s *Stats) Snapshot(now time.Time) types.StatsSnapshot {
	s.mu.RLock()
	start := s.startTime
	s.mu.RUnlock()

	snap := types.StatsSnapshot{
		TotalRequests:   s.total.Load(),
		ValidRequests:   s.valid.Load(),
		InvalidRequests: s.invalid.Load(),
		StartTime:       start,
		Running:         s.running.Load(),
	}
	if snap.Running && !start.IsZero() {
		snap.Uptime = now.Sub(start)
	}
	return snap
}
