package types

import "slices"

// String returns the result name used in logs.
func (r ClaimResult) String() string {
	switch r {
	case ClaimValid:
		return "Valid"
	case ClaimAlreadyBound:
		return "AlreadyBound"
	case ClaimNoCapacity:
		return "NoCapacity"
	case ClaimKeyNotFound:
		return "KeyNotFound"
	default:
		return "Unknown"
	}
}

// Granted reports whether the machine may use the license.
func (r ClaimResult) Granted() bool {
	return r == ClaimValid || r == ClaimAlreadyBound
}

// String returns the result name used in logs.
func (r ReleaseResult) String() string {
	switch r {
	case ReleaseReleased:
		return "Released"
	case ReleaseKeyNotFound:
		return "KeyNotFound"
	case ReleaseMacNotFound:
		return "MacNotFound"
	default:
		return "Unknown"
	}
}

// SuccessRate returns the share of valid requests in percent, or 0 before the first request.
func (s StatsSnapshot) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.ValidRequests) * 100 / float64(s.TotalRequests)
}

// String helps with making connection states readable in logs.
func (s ConnState) String() string {
	switch s {
	case ConnAccepted:
		return "Accepted"
	case ConnReading:
		return "Reading"
	case ConnDispatching:
		return "Dispatching"
	case ConnResponding:
		return "Responding"
	case ConnClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// connTransitions maps the valid state transitions of a served connection.
// Any state may jump to Closed on error.
var connTransitions = map[ConnState][]ConnState{
	ConnAccepted:    {ConnReading, ConnClosed},
	ConnReading:     {ConnDispatching, ConnClosed},
	ConnDispatching: {ConnResponding, ConnClosed},
	ConnResponding:  {ConnClosed},
}

// CanTransitionTo checks if a transition from the current state to target is valid.
func (s ConnState) CanTransitionTo(target ConnState) bool {
	validTargets, exists := connTransitions[s]
	if !exists {
		return false
	}
	return slices.Contains(validTargets, target)
}
