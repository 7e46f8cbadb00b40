package store

import "github.com/jathurchan/seatlicense/types"

// Persister reads and writes the full ordered license collection.
//
// Save must replace the previous contents entirely. Implementations are not
// required to be safe for concurrent use; Store serializes all calls.
type Persister interface {
	// Load returns every stored entry in order. A backing store that does not
	// exist yet yields an error wrapping os.ErrNotExist.
	Load() ([]types.LicenseEntry, error)

	// Save writes every entry, replacing what was stored before.
	Save(entries []types.LicenseEntry) error

	// Location describes where the data lives, for logs.
	Location() string

	// Close releases any resources held by the persister.
	Close() error
}
