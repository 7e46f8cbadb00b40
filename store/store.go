package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/jathurchan/seatlicense/logger"
	"github.com/jathurchan/seatlicense/types"
)

// Store is the in-memory license collection backed by a Persister.
//
// A single mutex guards every read and read-modify-write. Mutations are
// written through to the persister before the lock is released; if the
// write fails the mutation is undone and ErrPersist is returned.
type Store struct {
	mu sync.Mutex

	entries []types.LicenseEntry
	// index maps a license key to its position in entries.
	index map[string]int

	persister Persister
	fold      cases.Caser
	logger    logger.Logger
	closed    bool
}

// New returns an empty store bound to p. Call Reload to read the stored licenses.
func New(p Persister, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Store{
		index:     make(map[string]int),
		persister: p,
		fold:      cases.Fold(),
		logger:    log.WithComponent("store"),
	}
}

// Open creates a store and loads it. A backing store that does not exist yet
// opens as empty; any other load failure is returned.
func Open(ctx context.Context, p Persister, log logger.Logger) (*Store, error) {
	s := New(p, log)
	if err := s.Reload(ctx); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		s.logger.Warnw("License store not found, starting empty", "location", p.Location())
	}
	return s, nil
}

// Reload replaces the in-memory state with the persisted one. On failure the
// current state is kept.
func (s *Store) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	loaded, err := s.persister.Load()
	if err != nil {
		return fmt.Errorf("%w from %s: %w", ErrLoad, s.persister.Location(), err)
	}

	index, err := s.buildIndex(loaded)
	if err != nil {
		return fmt.Errorf("%w from %s: %w", ErrLoad, s.persister.Location(), err)
	}

	s.entries = loaded
	s.index = index
	s.logger.Infow("Licenses loaded", "location", s.persister.Location(), "count", len(loaded))
	return nil
}

func (s *Store) buildIndex(entries []types.LicenseEntry) (map[string]int, error) {
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.LicenseKey == "" {
			return nil, fmt.Errorf("%w: entry %d has no license key", ErrInvalidEntry, i)
		}
		if e.AllowedUsers < 0 || e.RedeemedUsers < 0 {
			return nil, fmt.Errorf("%w: %q has a negative seat count", ErrInvalidEntry, e.LicenseKey)
		}
		if _, dup := index[e.LicenseKey]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, e.LicenseKey)
		}
		if e.RedeemedUsers > e.AllowedUsers {
			s.logger.Warnw("License has more redeemed than allowed seats",
				"key", e.LicenseKey, "allowed", e.AllowedUsers, "redeemed", e.RedeemedUsers)
		}
		if strings.Contains(e.LicenseKey, "-") {
			s.logger.Warnw("License key contains a reserved separator and cannot be validated", "key", e.LicenseKey)
		}
		index[e.LicenseKey] = i
	}
	return index, nil
}

// FindByKey returns a copy of the entry with the given key. Matching is exact.
func (s *Store) FindByKey(key string) (types.LicenseEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[key]
	if !ok {
		return types.LicenseEntry{}, false
	}
	return s.entries[i].Clone(), true
}

// TryClaimSeat binds mac to the license if it is not bound yet and a seat is free.
//
// The returned entry reflects the license after the claim and is only set when
// the result is ClaimValid or ClaimAlreadyBound.
func (s *Store) TryClaimSeat(ctx context.Context, key, mac string) (types.ClaimResult, types.LicenseEntry, error) {
	if err := ctx.Err(); err != nil {
		return types.ClaimKeyNotFound, types.LicenseEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ClaimKeyNotFound, types.LicenseEntry{}, ErrClosed
	}

	i, ok := s.index[key]
	if !ok {
		return types.ClaimKeyNotFound, types.LicenseEntry{}, nil
	}
	entry := &s.entries[i]

	if s.macIndex(entry, mac) >= 0 {
		return types.ClaimAlreadyBound, entry.Clone(), nil
	}
	if entry.RedeemedUsers >= entry.AllowedUsers {
		return types.ClaimNoCapacity, types.LicenseEntry{}, nil
	}

	before := entry.Clone()
	entry.AllowedMacs = append(entry.AllowedMacs, mac)
	entry.RedeemedUsers++

	if err := s.persistLocked(); err != nil {
		s.entries[i] = before
		return types.ClaimKeyNotFound, types.LicenseEntry{}, err
	}

	s.logger.Infow("Seat claimed", "key", key, "mac", mac, "name", entry.Name,
		"redeemed", entry.RedeemedUsers, "allowed", entry.AllowedUsers)
	return types.ClaimValid, entry.Clone(), nil
}

// ReleaseSeat unbinds mac from the license and frees its seat. The redeemed
// count never drops below zero.
func (s *Store) ReleaseSeat(ctx context.Context, key, mac string) (types.ReleaseResult, error) {
	if err := ctx.Err(); err != nil {
		return types.ReleaseKeyNotFound, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ReleaseKeyNotFound, ErrClosed
	}

	i, ok := s.index[key]
	if !ok {
		return types.ReleaseKeyNotFound, nil
	}
	entry := &s.entries[i]

	before := entry.Clone()
	removed := 0
	entry.AllowedMacs = slices.DeleteFunc(entry.AllowedMacs, func(m string) bool {
		if s.sameMachine(m, mac) {
			removed++
			return true
		}
		return false
	})
	if removed == 0 {
		return types.ReleaseMacNotFound, nil
	}
	entry.RedeemedUsers = max(0, entry.RedeemedUsers-1)

	if err := s.persistLocked(); err != nil {
		s.entries[i] = before
		return types.ReleaseKeyNotFound, err
	}

	s.logger.Infow("Seat released", "key", key, "mac", mac,
		"redeemed", entry.RedeemedUsers, "allowed", entry.AllowedUsers)
	return types.ReleaseReleased, nil
}

// Entries returns a deep copy of every license in stored order.
func (s *Store) Entries() []types.LicenseEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.LicenseEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}

// Summary aggregates seat usage across all licenses.
func (s *Store) Summary() types.StoreSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := types.StoreSummary{Licenses: len(s.entries)}
	for _, e := range s.entries {
		sum.AllowedSeats += e.AllowedUsers
		sum.RedeemedSeats += e.RedeemedUsers
		sum.BoundMachines += len(e.AllowedMacs)
	}
	return sum
}

// Location reports where the store persists its data.
func (s *Store) Location() string { return s.persister.Location() }

// Close releases the persister. Later operations return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.persister.Close()
}

func (s *Store) persistLocked() error {
	if err := s.persister.Save(s.entries); err != nil {
		s.logger.Errorw("Failed to persist licenses", "location", s.persister.Location(), "error", err)
		return fmt.Errorf("%w to %s: %w", ErrPersist, s.persister.Location(), err)
	}
	return nil
}

func (s *Store) macIndex(e *types.LicenseEntry, mac string) int {
	return slices.IndexFunc(e.AllowedMacs, func(m string) bool { return s.sameMachine(m, mac) })
}

// sameMachine compares machine ids case-insensitively. Must be called with mu held.
func (s *Store) sameMachine(a, b string) bool {
	return s.fold.String(a) == s.fold.String(b)
}
