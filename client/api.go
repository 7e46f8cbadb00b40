// Package client talks to the license server over its line protocol.
//
// Every call opens a fresh TCP connection, sends one command and reads one
// response. Only license validation is retried; all requests issued through
// one client share a minimum spacing.
package client

import "context"

// LicenseClient is the interface to a license server.
type LicenseClient interface {
	// GetVersion returns the version string the server reports.
	GetVersion(ctx context.Context) (string, error)

	// CheckVersion reports whether the server version equals expected.
	CheckVersion(ctx context.Context, expected string) (bool, error)

	// GetUserName returns the user the license key is issued to. On the server
	// this also claims a seat for the machine, exactly like validation.
	// Returns ErrUserNotFound when the key is unknown, has no free seat or no
	// user name.
	GetUserName(ctx context.Context, licenseKey string) (string, error)

	// IsValidLicense asks the server to claim a seat for this machine.
	// It returns false only when the server explicitly answered "false".
	// Transient failures are retried per the RetryPolicy; when retries run
	// out the error is classified as ErrNoConnectivity or ErrUnexpected.
	IsValidLicense(ctx context.Context, licenseKey string) (bool, error)

	// Activate is IsValidLicense that reports a denial as ErrInvalidLicense.
	Activate(ctx context.Context, licenseKey string) error

	// ClearMacAddress releases this machine's seat on the license.
	// It returns ErrLicenseNotFound, ErrMachineNotFound or ErrServerStore
	// for the corresponding server answers.
	ClearMacAddress(ctx context.Context, licenseKey string) error

	// Send issues one raw request line, which must decode as a known
	// command, and returns the raw response. It is not retried.
	Send(ctx context.Context, line string) (string, error)

	// MachineID returns the machine id sent with license requests.
	MachineID() string

	// Config returns the client configuration.
	Config() Config
}
