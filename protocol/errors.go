package protocol

import "errors"

var (
	// ErrEmptyRequest indicates the peer sent nothing but whitespace.
	ErrEmptyRequest = errors.New("protocol: empty request")

	// ErrMalformedRequest indicates the line matches no known command.
	ErrMalformedRequest = errors.New("protocol: malformed request")

	// ErrFrameTooLarge indicates the peer sent more than the frame limit without a newline.
	ErrFrameTooLarge = errors.New("protocol: frame exceeds size limit")

	// ErrResponseTooLarge indicates a rendered response does not fit the client's buffer.
	ErrResponseTooLarge = errors.New("protocol: response exceeds maximum size")

	// ErrInvalidField indicates a key or machine id cannot be encoded on the wire.
	ErrInvalidField = errors.New("protocol: invalid field")
)
