package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jathurchan/seatlicense/client"
	"github.com/jathurchan/seatlicense/config"
	"github.com/jathurchan/seatlicense/logger"
	"github.com/jathurchan/seatlicense/store"
	"github.com/jathurchan/seatlicense/testutil"
	"github.com/jathurchan/seatlicense/types"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	testutil.RequireNoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func writeLicenses(t *testing.T, path string, entries ...types.LicenseEntry) {
	t.Helper()
	testutil.RequireNoError(t, store.NewJSONFilePersister(path).Save(entries))
}

func TestImportLicenses(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "licenses.json")
	to := filepath.Join(dir, "licenses.db")
	writeLicenses(t, from,
		types.LicenseEntry{Name: "A", LicenseKey: "K1", AllowedUsers: 1, AllowedMacs: []string{}},
		types.LicenseEntry{Name: "B", LicenseKey: "K2", AllowedUsers: 2, RedeemedUsers: 1, AllowedMacs: []string{"00:11:22:33:44:55"}},
	)

	n, err := importLicenses(context.Background(), from, to)
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, 2, n)

	p, err := store.OpenBoltPersister(to)
	testutil.RequireNoError(t, err)
	defer p.Close()
	got, err := p.Load()
	testutil.RequireNoError(t, err)
	testutil.AssertLen(t, got, 2)
	testutil.AssertEqual(t, "K2", got[1].LicenseKey)
	testutil.AssertEqual(t, []string{"00:11:22:33:44:55"}, got[1].AllowedMacs)
}

func TestImportLicenses_MissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := importLicenses(context.Background(), filepath.Join(dir, "nope.json"), filepath.Join(dir, "out.db"))
	testutil.AssertError(t, err)
}

func TestImportLicenses_RejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "licenses.json")
	writeLicenses(t, from,
		types.LicenseEntry{LicenseKey: "K1", AllowedUsers: 1},
		types.LicenseEntry{LicenseKey: "K1", AllowedUsers: 1},
	)
	_, err := importLicenses(context.Background(), from, filepath.Join(dir, "out.db"))
	testutil.AssertErrorIs(t, err, store.ErrLoad)
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	licenses := filepath.Join(dir, "licenses.json")
	writeLicenses(t, licenses, types.LicenseEntry{Name: "Acme", LicenseKey: "ABC", AllowedUsers: 1, AllowedMacs: []string{}})

	cfg := config.DefaultServerConfig()
	cfg.Version = "9.9.9"
	cfg.LicenseFilePath = licenses
	cfg.IpAddress = "127.0.0.1"
	cfg.Port = freePort(t)
	cfg.MonitorAddress = ""

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, &cfg, logger.NewNoOpLogger()) }()

	c, err := client.NewClientBuilder(cfg.ListenAddress()).
		WithMinRequestInterval(0).
		WithMachineID("00:11:22:33:44:55").
		Build()
	testutil.RequireNoError(t, err)

	testutil.Eventually(t, func() bool {
		ok, err := c.CheckVersion(context.Background(), "9.9.9")
		return err == nil && ok
	}, 3*time.Second, 20*time.Millisecond, "server did not come up")

	ok, err := c.IsValidLicense(context.Background(), "ABC")
	testutil.RequireNoError(t, err)
	testutil.AssertTrue(t, ok)

	cancel()
	select {
	case err := <-done:
		testutil.AssertNoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	data, err := os.ReadFile(licenses)
	testutil.RequireNoError(t, err)
	testutil.AssertContains(t, string(data), "00:11:22:33:44:55")
}

func TestOpenPersister(t *testing.T) {
	dir := t.TempDir()

	cfg := config.DefaultServerConfig()
	cfg.LicenseFilePath = filepath.Join(dir, "licenses.json")
	p, err := openPersister(&cfg)
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, cfg.LicenseFilePath, p.Location())

	cfg.StoreBackend = config.BackendBbolt
	cfg.LicenseFilePath = filepath.Join(dir, "licenses.db")
	p, err = openPersister(&cfg)
	testutil.RequireNoError(t, err)
	defer p.Close()
	testutil.AssertEqual(t, "bbolt:"+cfg.LicenseFilePath, p.Location())
}
