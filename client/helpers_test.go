package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jathurchan/seatlicense/protocol"
	"github.com/jathurchan/seatlicense/testutil"
)

const testMachineID = "AA:BB:CC:DD:EE:FF"

type mockClock struct {
	mu      sync.Mutex
	current time.Time
	waits   []time.Duration
}

func newMockClock() *mockClock {
	return &mockClock{current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *mockClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }

// After records the requested wait and fires immediately.
func (c *mockClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.current = c.current.Add(d)
	now := c.current
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *mockClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

type mockRand struct {
	value float64
}

func (r *mockRand) IntN(n int) int   { return 0 }
func (r *mockRand) Float64() float64 { return r.value }

type mockProber struct {
	online bool
	calls  atomic.Int32
}

func (p *mockProber) Online(context.Context) bool {
	p.calls.Add(1)
	return p.online
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// failingDialer fails every dial with err.
type failingDialer struct {
	err   error
	calls atomic.Int32
}

func (d *failingDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	d.calls.Add(1)
	return nil, d.err
}

func newTimeoutDialer() *failingDialer {
	return &failingDialer{err: &net.OpError{Op: "dial", Net: "tcp", Err: timeoutError{}}}
}

// fakeServer answers each connection with handler(line). An empty answer
// closes the connection without writing.
type fakeServer struct {
	ln      net.Listener
	handler func(line string) string

	mu    sync.Mutex
	lines []string
	wg    sync.WaitGroup
}

func newFakeServer(t *testing.T, handler func(line string) string) *fakeServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	testutil.RequireNoError(t, err)

	s := &fakeServer{ln: ln, handler: handler}
	s.wg.Add(1)
	go s.serve()

	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()

			line, err := protocol.ReadFrame(conn, protocol.DefaultMaxRequestSize)
			if err != nil {
				return
			}
			s.mu.Lock()
			s.lines = append(s.lines, string(line))
			s.mu.Unlock()

			if resp := s.handler(string(line)); resp != "" {
				_, _ = conn.Write([]byte(resp))
			}
		}()
	}
}

func (s *fakeServer) Addr() string { return s.ln.Addr().String() }

func (s *fakeServer) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func respondWith(resp string) func(string) string {
	return func(string) string { return resp }
}

// newTestClient builds a client without rate limiting, with a fixed machine
// id, a mock clock and neutral jitter.
func newTestClient(t *testing.T, address string, configure func(*ClientBuilder)) (LicenseClient, *mockClock) {
	t.Helper()

	clk := newMockClock()
	b := NewClientBuilder(address).
		WithTimeouts(time.Second, time.Second).
		WithMinRequestInterval(0).
		WithMachineID(testMachineID).
		WithClock(clk).
		WithRand(&mockRand{value: 0}).
		WithProber(&mockProber{online: true})
	if configure != nil {
		configure(b)
	}

	c, err := b.Build()
	testutil.RequireNoError(t, err)
	return c, clk
}

func requireClientError(t *testing.T, err error) *ClientError {
	t.Helper()
	var ce *ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ClientError, got %T: %v", err, err)
	}
	return ce
}
