package client

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoSession is returned by Session.Load when no license key is cached.
var ErrNoSession = errors.New("no cached license key")

const sessionFileName = "license.txt"

// Session caches the license key of the local user in a file whose first
// line is the key.
type Session struct {
	path string
}

// NewSession returns a session stored at path.
func NewSession(path string) *Session {
	return &Session{path: path}
}

// DefaultSessionPath returns the per-user location of the session file.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("session: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "seatlicense", sessionFileName), nil
}

// Path returns the file backing the session.
func (s *Session) Path() string { return s.path }

// Load returns the cached license key, or ErrNoSession when the file is
// missing or its first line is blank.
func (s *Session) Load() (string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("session: open %s: %w", s.path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("session: read %s: %w", s.path, err)
		}
		return "", ErrNoSession
	}
	key := strings.TrimSpace(sc.Text())
	if key == "" {
		return "", ErrNoSession
	}
	return key, nil
}

// Save writes key as the cached license key, creating parent directories.
func (s *Session) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyLicenseKey
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: create dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", s.path, err)
	}
	return nil
}

// Clear removes the cached key. Clearing an absent session is not an error.
func (s *Session) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: remove %s: %w", s.path, err)
	}
	return nil
}
