package types

import (
	"slices"
	"time"
)

// LicenseEntry is one provisioned license as stored in the license file.
// RedeemedUsers must satisfy 0 <= RedeemedUsers <= AllowedUsers.
type LicenseEntry struct {
	// Name is the owner or display name returned by getusername.
	Name string `json:"name"`

	// LicenseKey is an opaque exact-match token. It must not contain '-'.
	LicenseKey string `json:"licenseKey"`

	// AllowedUsers is the number of seats the license grants.
	AllowedUsers int `json:"allowedUsers"`

	// RedeemedUsers is the number of seats currently bound to machines.
	RedeemedUsers int `json:"redeemedUsers"`

	// AllowedMacs holds the machine ids bound to this license, compared case-insensitively.
	AllowedMacs []string `json:"allowedMacs"`
}

// Clone returns a deep copy so callers never alias store-owned slices.
func (e LicenseEntry) Clone() LicenseEntry {
	c := e
	c.AllowedMacs = slices.Clone(e.AllowedMacs)
	return c
}

// FreeSeats returns how many seats can still be claimed.
func (e LicenseEntry) FreeSeats() int {
	if free := e.AllowedUsers - e.RedeemedUsers; free > 0 {
		return free
	}
	return 0
}

// ClaimResult is the outcome of a seat claim.
type ClaimResult int

const (
	// ClaimValid means a new machine id was bound and one seat consumed.
	ClaimValid ClaimResult = iota
	// ClaimAlreadyBound means the machine id was already bound; nothing changed.
	ClaimAlreadyBound
	// ClaimNoCapacity means every seat is taken by other machines.
	ClaimNoCapacity
	// ClaimKeyNotFound means no license carries the key.
	ClaimKeyNotFound
)

// ReleaseResult is the outcome of a seat release.
type ReleaseResult int

const (
	// ReleaseReleased means the machine id was unbound and one seat freed.
	ReleaseReleased ReleaseResult = iota
	// ReleaseKeyNotFound means no license carries the key.
	ReleaseKeyNotFound
	// ReleaseMacNotFound means the machine id was not bound to the license.
	ReleaseMacNotFound
)

// StatsSnapshot is a point-in-time copy of the server request counters.
type StatsSnapshot struct {
	TotalRequests   uint64        `json:"totalRequests"`
	ValidRequests   uint64        `json:"validRequests"`
	InvalidRequests uint64        `json:"invalidRequests"`
	StartTime       time.Time     `json:"startTime"`
	Running         bool          `json:"running"`
	Uptime          time.Duration `json:"uptime"`
}

// StoreSummary aggregates the license store for monitoring.
type StoreSummary struct {
	Licenses      int `json:"licenses"`
	AllowedSeats  int `json:"allowedSeats"`
	RedeemedSeats int `json:"redeemedSeats"`
	BoundMachines int `json:"boundMachines"`
}

// ConnState is a stage in the life of one served connection.
type ConnState int

const (
	ConnAccepted ConnState = iota
	ConnReading
	ConnDispatching
	ConnResponding
	ConnClosed
)
