package client

import (
	"errors"
	"fmt"
)

// Usage errors are returned before any network activity and are never retried.
var (
	// ErrEmptyLicenseKey is returned when the license key is empty or blank.
	ErrEmptyLicenseKey = errors.New("license key must not be empty")

	// ErrEmptyMessage is returned when a request would carry an empty field.
	ErrEmptyMessage = errors.New("message must not be empty")

	// ErrInvalidRequest is returned when a request cannot be encoded on the wire.
	ErrInvalidRequest = errors.New("request cannot be encoded")
)

// Transport errors.
var (
	// ErrTimeout is returned when connecting, writing or reading exceeds its timeout.
	ErrTimeout = errors.New("operation timed out")

	// ErrConnectionClosed is returned when the server closes the connection without a response.
	ErrConnectionClosed = errors.New("connection closed without response")

	// ErrResponseTooLarge is returned when a response exceeds the configured size cap.
	ErrResponseTooLarge = errors.New("response exceeds maximum size")
)

// Terminal errors reported after retries are exhausted.
var (
	// ErrNoConnectivity is returned when the server is unreachable and the host is offline.
	ErrNoConnectivity = errors.New("no internet connection")

	// ErrUnexpected is returned when the server is unreachable although the host is online.
	ErrUnexpected = errors.New("unexpected error, contact support")
)

// Server answers that are not a success.
var (
	// ErrInvalidLicense is returned by Activate when the server denies the license.
	ErrInvalidLicense = errors.New("license is not valid")

	// ErrUserNotFound is returned when the server has no user name for the key.
	ErrUserNotFound = errors.New("user not found")

	// ErrLicenseNotFound is returned when the server does not know the license key.
	ErrLicenseNotFound = errors.New("license not found")

	// ErrMachineNotFound is returned when the machine id is not bound to the license.
	ErrMachineNotFound = errors.New("machine id not bound to license")

	// ErrServerStore is returned when the server could not load or save its licenses.
	ErrServerStore = errors.New("server failed to load licenses")

	// ErrUnexpectedResponse is returned when a response matches none of the known answers.
	ErrUnexpectedResponse = errors.New("unexpected response from server")
)

// ClientError wraps an error with the operation that produced it.
//
// Kind carries the classification (ErrNoConnectivity, ErrUnexpected, ...) and
// Err the underlying cause. errors.Is matches either.
type ClientError struct {
	Op   string // Operation that failed
	Kind error  // Classification
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("client %s failed: %v: %v", e.Op, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("client %s failed: %v", e.Op, e.Kind)
	default:
		return fmt.Sprintf("client %s failed: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// Is checks if the classification matches the target error.
func (e *ClientError) Is(target error) bool {
	return e.Kind != nil && errors.Is(e.Kind, target)
}

// NewClientError creates a new ClientError.
func NewClientError(op string, kind, err error) *ClientError {
	return &ClientError{Op: op, Kind: kind, Err: err}
}

// User-facing messages returned by UserMessage.
const (
	MessageEnterKey   = "Please enter a license key."
	MessageInvalidKey = "The license key is not valid."
	MessageOffline    = "No internet connection. Please check your connection."
	MessageUnexpected = "An unexpected error occurred. Please contact support."
)

// UserMessage maps an error returned by the client to a message suitable for
// an end user. It returns an empty string for a nil error.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyLicenseKey):
		return MessageEnterKey
	case errors.Is(err, ErrInvalidLicense), errors.Is(err, ErrLicenseNotFound):
		return MessageInvalidKey
	case errors.Is(err, ErrNoConnectivity):
		return MessageOffline
	default:
		return MessageUnexpected
	}
}
