package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jathurchan/seatlicense/types"
)

const (
	bucketLicenses = "licenses"

	boltOpenTimeout = 2 * time.Second
)

// BoltPersister stores each license as a JSON value in a bbolt bucket, keyed
// by its position so Load returns entries in their original order.
type BoltPersister struct {
	path string
	db   *bbolt.DB
}

// OpenBoltPersister opens or creates the database at path.
func OpenBoltPersister(path string) (*BoltPersister, error) {
	if err := os.MkdirAll(filepath.Dir(path), OwnRWXOthRX); err != nil {
		return nil, fmt.Errorf("create directory for %q: %w", path, err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt database %q: %w", path, err)
	}
	return &BoltPersister{path: path, db: db}, nil
}

func (p *BoltPersister) Location() string { return "bbolt:" + p.path }

func (p *BoltPersister) Close() error { return p.db.Close() }

// Load returns os.ErrNotExist until the first Save created the bucket.
func (p *BoltPersister) Load() ([]types.LicenseEntry, error) {
	var entries []types.LicenseEntry
	err := p.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketLicenses))
		if b == nil {
			return os.ErrNotExist
		}
		return b.ForEach(func(k, v []byte) error {
			var e types.LicenseEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode license at position %d: %w", binary.BigEndian.Uint64(k), err)
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Save replaces the bucket contents in a single transaction.
func (p *BoltPersister) Save(entries []types.LicenseEntry) error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(bucketLicenses)) != nil {
			if err := tx.DeleteBucket([]byte(bucketLicenses)); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket([]byte(bucketLicenses))
		if err != nil {
			return err
		}
		for i, e := range normalizeForWrite(entries) {
			buf, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("encode license %q: %w", e.LicenseKey, err)
			}
			if err := b.Put(positionKey(uint64(i)), buf); err != nil {
				return err
			}
		}
		return nil
	})
}

func positionKey(i uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, i)
	return k
}
