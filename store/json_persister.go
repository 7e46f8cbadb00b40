package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jathurchan/seatlicense/types"
)

const (
	// OwnRWOthR is the permission used for the license file.
	OwnRWOthR os.FileMode = 0o644

	// OwnRWXOthRX is the permission used for created parent directories.
	OwnRWXOthRX os.FileMode = 0o755
)

// JSONFilePersister stores licenses as a pretty-printed JSON array in one file.
type JSONFilePersister struct {
	path string
	perm os.FileMode
}

// NewJSONFilePersister returns a persister writing to path.
func NewJSONFilePersister(path string) *JSONFilePersister {
	return &JSONFilePersister{path: path, perm: OwnRWOthR}
}

func (p *JSONFilePersister) Location() string { return p.path }

func (p *JSONFilePersister) Close() error { return nil }

// Load reads and decodes the license file. An empty file decodes to no entries.
func (p *JSONFilePersister) Load() ([]types.LicenseEntry, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var entries []types.LicenseEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %q: %w", p.path, err)
	}
	return entries, nil
}

// Save rewrites the whole file through a temporary file and rename.
func (p *JSONFilePersister) Save(entries []types.LicenseEntry) error {
	if entries == nil {
		entries = []types.LicenseEntry{}
	}
	data, err := json.MarshalIndent(normalizeForWrite(entries), "", "  ")
	if err != nil {
		return fmt.Errorf("encode licenses: %w", err)
	}
	data = append(data, '\n')
	return atomicWriteFile(p.path, data, p.perm)
}

// normalizeForWrite replaces nil machine lists so they serialize as [] rather than null.
func normalizeForWrite(entries []types.LicenseEntry) []types.LicenseEntry {
	out := make([]types.LicenseEntry, len(entries))
	for i, e := range entries {
		out[i] = e
		if out[i].AllowedMacs == nil {
			out[i].AllowedMacs = []string{}
		}
	}
	return out
}

// atomicWriteFile writes data to a temporary file next to targetPath and then renames it.
func atomicWriteFile(targetPath string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, OwnRWXOthRX); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}

	tmpPath := targetPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return removeTempOnError(fmt.Errorf("write temporary file %q: %w", tmpPath, err), tmpPath)
	}
	if err := os.Rename(tmpPath, targetPath); err != nil {
		return removeTempOnError(fmt.Errorf("rename %q to %q: %w", tmpPath, targetPath, err), tmpPath)
	}
	return nil
}

func removeTempOnError(primaryErr error, tmpPath string) error {
	if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
		return fmt.Errorf("%w; additionally failed to clean up temp file: %v", primaryErr, rmErr)
	}
	return primaryErr
}
