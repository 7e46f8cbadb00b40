package protocol

import (
	"fmt"
	"strings"
)

const (
	// DefaultPort is the TCP port the license server listens on.
	DefaultPort = 4053

	// MaxResponseSize is the client's response buffer; no response may exceed it.
	MaxResponseSize = 4096

	// DefaultMaxRequestSize bounds one request frame on the server.
	DefaultMaxRequestSize = 256
)

// Sentinel responses. Validation answers are "true" and "false".
const (
	ResponseTrue               = "true"
	ResponseFalse              = "false"
	ResponseUserNotFound       = "USER_NOT_FOUND"
	ResponseLogoutSuccess      = "LOGOUT_SUCCESS"
	ResponseLicenseNotFound    = "LICENSE_NOT_FOUND"
	ResponseMacNotFound        = "MAC_NOT_FOUND"
	ResponseErrorLoadingStores = "ERROR_LOADING_LICENSES"
)

// Decode parses one request line into a Command.
//
// Command prefixes match case-insensitively and surrounding whitespace is
// ignored. The prefixed forms split the remainder at the first separator, so
// the machine id may itself contain '-'. The bare validation form must
// contain exactly one separator.
func Decode(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, ErrEmptyRequest
	}

	if strings.EqualFold(line, cmdGetVersion) {
		return GetVersion(), nil
	}

	if rest, ok := cutPrefixFold(line, prefixGetUserName); ok {
		key, mac, err := splitKeyMac(rest)
		if err != nil {
			return Command{}, fmt.Errorf("getusername: %w", err)
		}
		return GetUserName(key, mac), nil
	}

	if rest, ok := cutPrefixFold(line, prefixLogout); ok {
		key, mac, err := splitKeyMac(rest)
		if err != nil {
			return Command{}, fmt.Errorf("logout: %w", err)
		}
		return Logout(key, mac), nil
	}

	if strings.Count(line, Separator) != 1 {
		return Command{}, fmt.Errorf("%w: expected exactly one %q in %q", ErrMalformedRequest, Separator, line)
	}
	key, mac, err := splitKeyMac(line)
	if err != nil {
		return Command{}, err
	}
	return Validate(key, mac), nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

func splitKeyMac(s string) (string, string, error) {
	key, mac, found := strings.Cut(s, Separator)
	if !found {
		return "", "", fmt.Errorf("%w: missing %q between key and machine id", ErrMalformedRequest, Separator)
	}
	if key == "" || mac == "" {
		return "", "", fmt.Errorf("%w: empty key or machine id", ErrMalformedRequest)
	}
	return key, mac, nil
}

// EncodeRequest renders a command as a newline-terminated wire line.
func EncodeRequest(c Command) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return []byte(c.String() + "\n"), nil
}

// EncodeResponse renders response text as raw bytes, enforcing MaxResponseSize.
func EncodeResponse(text string) ([]byte, error) {
	if len(text) > MaxResponseSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrResponseTooLarge, len(text))
	}
	return []byte(text), nil
}

// ValidationResponse renders the claim answer.
func ValidationResponse(granted bool) string {
	if granted {
		return ResponseTrue
	}
	return ResponseFalse
}

// IsTrue reports whether a validation response grants the license. Comparison is case-insensitive.
func IsTrue(resp string) bool {
	return strings.EqualFold(strings.TrimSpace(resp), ResponseTrue)
}

// IsFalse reports whether a validation response explicitly denies the license.
func IsFalse(resp string) bool {
	return strings.EqualFold(strings.TrimSpace(resp), ResponseFalse)
}
