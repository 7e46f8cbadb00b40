package server

import (
	"context"
	"net"

	"github.com/jathurchan/seatlicense/types"
)

// LicenseStore is the seat allocation backend the server dispatches to.
// Implementations must serialize all calls internally.
type LicenseStore interface {
	// TryClaimSeat binds mac to the license key if capacity allows. The entry is
	// set when the result grants the license.
	TryClaimSeat(ctx context.Context, key, mac string) (types.ClaimResult, types.LicenseEntry, error)

	// ReleaseSeat unbinds mac from the license key.
	ReleaseSeat(ctx context.Context, key, mac string) (types.ReleaseResult, error)

	// Summary aggregates seat usage across all licenses.
	Summary() types.StoreSummary
}

// LicenseServer accepts one-shot TCP requests and answers them from a LicenseStore.
type LicenseServer interface {
	// Start binds the listener and runs the accept loop in the background.
	// Returns an error if the address cannot be bound or the server was already started.
	Start(ctx context.Context) error

	// Stop closes the listener and waits for in-flight connections to finish.
	// The provided context can set a deadline for shutdown.
	Stop(ctx context.Context) error

	// Addr returns the bound listener address, or nil before Start.
	Addr() net.Addr

	// Stats returns a snapshot of the request counters.
	Stats() types.StatsSnapshot

	// Summary returns the current store aggregate.
	Summary() types.StoreSummary
}
