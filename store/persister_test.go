package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jathurchan/seatlicense/testutil"
	"github.com/jathurchan/seatlicense/types"
)

func TestJSONFilePersister_MissingFile(t *testing.T) {
	p := NewJSONFilePersister(filepath.Join(t.TempDir(), "absent.json"))

	_, err := p.Load()
	testutil.AssertTrue(t, errors.Is(err, os.ErrNotExist))
}

func TestJSONFilePersister_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "licenses.json")
	testutil.RequireNoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	entries, err := NewJSONFilePersister(path).Load()
	testutil.RequireNoError(t, err)
	testutil.AssertLen(t, entries, 0)
}

func TestJSONFilePersister_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "licenses.json")
	testutil.RequireNoError(t, os.WriteFile(path, []byte("[{"), 0o644))

	_, err := NewJSONFilePersister(path).Load()
	testutil.AssertError(t, err)
	testutil.AssertContains(t, err.Error(), "decode")
}

func TestJSONFilePersister_WritesPrettyFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "licenses.json")
	p := NewJSONFilePersister(path)

	testutil.RequireNoError(t, p.Save([]types.LicenseEntry{{Name: "Acme", LicenseKey: "ABC", AllowedUsers: 1}}))

	data, err := os.ReadFile(path)
	testutil.RequireNoError(t, err)
	text := string(data)
	for _, field := range []string{`"name"`, `"licenseKey"`, `"allowedUsers"`, `"redeemedUsers"`, `"allowedMacs": []`} {
		testutil.AssertContains(t, text, field)
	}
	testutil.AssertTrue(t, strings.HasPrefix(text, "[\n  {"), "output is indented")

	_, err = os.Stat(path + ".tmp")
	testutil.AssertTrue(t, os.IsNotExist(err), "temporary file is renamed away")
}

func TestJSONFilePersister_SaveNilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "licenses.json")
	testutil.RequireNoError(t, NewJSONFilePersister(path).Save(nil))

	data, err := os.ReadFile(path)
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, "[]\n", string(data))
}

func TestBoltPersister_RoundTripKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "licenses.db")
	p, err := OpenBoltPersister(path)
	testutil.RequireNoError(t, err)

	_, err = p.Load()
	testutil.AssertTrue(t, errors.Is(err, os.ErrNotExist), "empty database reports not exist")

	want := []types.LicenseEntry{
		license("Z", 1, "m1"),
		license("A", 3),
		license("M", 2, "m2", "m3"),
	}
	testutil.RequireNoError(t, p.Save(want))
	testutil.RequireNoError(t, p.Save(want[:2]))
	testutil.RequireNoError(t, p.Close())

	p, err = OpenBoltPersister(path)
	testutil.RequireNoError(t, err)
	defer p.Close()

	got, err := p.Load()
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, want[:2], got, "second save replaces the first")
	testutil.AssertContains(t, p.Location(), "bbolt:")
}

func TestBoltPersister_BacksStore(t *testing.T) {
	p, err := OpenBoltPersister(filepath.Join(t.TempDir(), "licenses.db"))
	testutil.RequireNoError(t, err)
	testutil.RequireNoError(t, p.Save([]types.LicenseEntry{license("ABC", 1)}))

	s := openStore(t, p)
	defer s.Close()

	res, _, err := s.TryClaimSeat(context.Background(), "ABC", "m1")
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, types.ClaimValid, res)

	stored, err := p.Load()
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, []string{"m1"}, stored[0].AllowedMacs)
}
