package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jathurchan/seatlicense/logger"
	"github.com/jathurchan/seatlicense/store"
	"github.com/jathurchan/seatlicense/testutil"
	"github.com/jathurchan/seatlicense/types"
)

type mockClock struct {
	mu      sync.RWMutex
	current time.Time
}

func newMockClock() *mockClock {
	return &mockClock{current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *mockClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }

func (c *mockClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now().Add(d)
	return ch
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

type recordedRequest struct {
	command string
	outcome Outcome
	valid   bool
}

type mockServerMetrics struct {
	mu                sync.Mutex
	requests          []recordedRequest
	storeErrors       map[string]int
	rejected          map[string]int
	activeConnections int
	maxActive         int
}

func newMockServerMetrics() *mockServerMetrics {
	return &mockServerMetrics{
		storeErrors: make(map[string]int),
		rejected:    make(map[string]int),
	}
}

func (m *mockServerMetrics) IncrRequest(command string, outcome Outcome, valid bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, recordedRequest{command, outcome, valid})
}

func (m *mockServerMetrics) ObserveRequestLatency(string, time.Duration) {}

func (m *mockServerMetrics) IncrStoreError(command string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeErrors[command]++
}

func (m *mockServerMetrics) IncrRejectedConnection(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *mockServerMetrics) SetActiveConnections(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeConnections = count
	m.maxActive = max(m.maxActive, count)
}

func (m *mockServerMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.storeErrors = make(map[string]int)
	m.rejected = make(map[string]int)
	m.activeConnections = 0
}

func (m *mockServerMetrics) outcomes() []Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Outcome, len(m.requests))
	for i, r := range m.requests {
		out[i] = r.outcome
	}
	return out
}

// fakeStore lets tests force store failures or panics.
type fakeStore struct {
	claimErr   error
	releaseErr error
	panicMsg   string
}

func (f *fakeStore) TryClaimSeat(context.Context, string, string) (types.ClaimResult, types.LicenseEntry, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.claimErr != nil {
		return types.ClaimKeyNotFound, types.LicenseEntry{}, f.claimErr
	}
	return types.ClaimValid, types.LicenseEntry{Name: "Fake"}, nil
}

func (f *fakeStore) ReleaseSeat(context.Context, string, string) (types.ReleaseResult, error) {
	if f.releaseErr != nil {
		return types.ReleaseKeyNotFound, f.releaseErr
	}
	return types.ReleaseReleased, nil
}

func (f *fakeStore) Summary() types.StoreSummary { return types.StoreSummary{} }

// newTestStore writes entries to a license file in a temp dir and opens it.
func newTestStore(t *testing.T, entries ...types.LicenseEntry) *store.Store {
	t.Helper()
	p := store.NewJSONFilePersister(filepath.Join(t.TempDir(), "licenses.json"))
	testutil.RequireNoError(t, p.Save(entries))
	s, err := store.Open(context.Background(), p, logger.NewNoOpLogger())
	testutil.RequireNoError(t, err)
	return s
}

func testLicense(key string, seats int, macs ...string) types.LicenseEntry {
	if macs == nil {
		macs = []string{}
	}
	return types.LicenseEntry{
		Name:          "Owner " + key,
		LicenseKey:    key,
		AllowedUsers:  seats,
		RedeemedUsers: len(macs),
		AllowedMacs:   macs,
	}
}

// startServer builds and starts a server on a loopback port. configure may
// adjust the builder before Build. The server is stopped at test cleanup.
func startServer(t *testing.T, ls LicenseStore, configure func(*Builder)) (*Server, *mockServerMetrics) {
	t.Helper()
	metrics := newMockServerMetrics()
	b := NewBuilder().
		WithStore(ls).
		WithListenAddress("127.0.0.1:0").
		WithVersion("2.4.1").
		WithMetrics(metrics).
		WithTimeouts(2*time.Second, -1, -1)
	if configure != nil {
		configure(b)
	}
	srv, err := b.Build()
	testutil.RequireNoError(t, err)
	testutil.RequireNoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		_ = srv.Stop(context.Background())
	})
	return srv, metrics
}

// roundTrip sends raw on a fresh connection, half-closes it and returns
// everything the server writes before closing. It waits until the server has
// counted the request so outcomes are observed in send order.
func roundTrip(t *testing.T, srv *Server, raw string) (string, error) {
	t.Helper()
	before := srv.Stats().TotalRequests

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	testutil.RequireNoError(t, err)
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(3 * time.Second))
	if _, err := io.WriteString(conn, raw); err != nil {
		return "", err
	}
	if hc, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = hc.CloseWrite()
	}
	data, err := io.ReadAll(conn)
	waitForTotal(t, srv, before+1)
	return string(data), err
}

func waitForTotal(t *testing.T, srv *Server, total uint64) {
	t.Helper()
	testutil.Eventually(t, func() bool {
		return srv.Stats().TotalRequests >= total
	}, 2*time.Second, 5*time.Millisecond, "expected %d requests to be counted", total)
}

// kvString renders logged key/value pairs as k=v words for substring checks.
func kvString(kvs []any) string {
	var b strings.Builder
	for i := 0; i+1 < len(kvs); i += 2 {
		fmt.Fprintf(&b, "%v=%v ", kvs[i], kvs[i+1])
	}
	return b.String()
}
