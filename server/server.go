package server

import (
	"context"
	"errors"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/netutil"

	"github.com/jathurchan/seatlicense/clock"
	"github.com/jathurchan/seatlicense/logger"
	"github.com/jathurchan/seatlicense/protocol"
	"github.com/jathurchan/seatlicense/types"
)

var _ LicenseServer = (*Server)(nil)

type serverState int

const (
	stateIdle serverState = iota
	stateRunning
	stateStopped
)

// Server serves one request per TCP connection, one goroutine per connection.
type Server struct {
	config  Config
	store   LicenseStore
	logger  logger.Logger
	metrics ServerMetrics
	clock   clock.Clock
	limiter ConnectionLimiter
	conns   ConnectionManager
	stats   Stats

	mu         sync.Mutex
	state      serverState
	listener   net.Listener
	active     map[net.Conn]struct{}
	acceptDone chan struct{}

	// connCtx is passed to store operations and cancelled on forced shutdown.
	connCtx     context.Context
	cancelConns context.CancelFunc
	wg          sync.WaitGroup
}

func newServer(cfg Config, store LicenseStore) *Server {
	log := cfg.Logger.WithComponent("server")
	s := &Server{
		config:  cfg,
		store:   store,
		logger:  log,
		metrics: cfg.Metrics,
		clock:   cfg.Clock,
		conns:   NewConnectionManager(cfg.Metrics, log, cfg.Clock),
		active:  make(map[net.Conn]struct{}),
	}
	if cfg.EnableRateLimit {
		s.limiter = NewConnectionLimiter(cfg.RateLimit, cfg.RateLimitBurst, cfg.RateLimitWindow, log)
	}
	return s
}

// Start binds the configured address and runs the accept loop until Stop.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateRunning:
		return ErrServerAlreadyStarted
	case stateStopped:
		return ErrServerStopped
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.ListenAddress)
	if err != nil {
		return NewServerError("listen", err)
	}
	if s.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConnections)
	}

	s.listener = ln
	s.connCtx, s.cancelConns = context.WithCancel(context.Background())
	s.acceptDone = make(chan struct{})
	s.state = stateRunning
	s.stats.markStarted(s.clock.Now())

	s.logger.Infow("License server listening",
		"address", ln.Addr().String(),
		"version", s.config.Version,
		"max_connections", s.config.MaxConnections,
		"rate_limited", s.limiter != nil)

	go s.acceptLoop(ln, s.acceptDone)
	return nil
}

// Stop closes the listener and waits for in-flight connections. Connections
// still open when ctx or the shutdown timeout expires are closed and
// ErrShutdownTimeout is returned. Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case stateIdle:
		s.mu.Unlock()
		return ErrServerNotStarted
	case stateStopped:
		s.mu.Unlock()
		return nil
	}
	s.state = stateStopped
	ln, acceptDone := s.listener, s.acceptDone
	s.mu.Unlock()

	s.logger.Infow("Stopping license server")
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warnw("Failed to close listener", "error", err)
	}
	<-acceptDone

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		s.logger.Warnw("Shutdown deadline reached, closing remaining connections",
			"remaining", s.conns.GetActiveConnections())
		s.cancelConns()
		s.closeActive()
		<-drained
		err = ErrShutdownTimeout
	}
	s.cancelConns()
	s.stats.markStopped()

	snap := s.Stats()
	s.logger.Infow("License server stopped",
		"total_requests", snap.TotalRequests,
		"valid_requests", snap.ValidRequests,
		"invalid_requests", snap.InvalidRequests)
	return err
}

// Addr returns the listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stats returns a snapshot of the request counters.
func (s *Server) Stats() types.StatsSnapshot {
	return s.stats.Snapshot(s.clock.Now())
}

// Summary returns the current store aggregate.
func (s *Server) Summary() types.StoreSummary {
	return s.store.Summary()
}

// Connections returns the connections currently being served.
func (s *Server) Connections() map[string]ConnectionInfo {
	return s.conns.GetAllConnectionInfo()
}

// IsRunning reports whether the accept loop is active.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}

func (s *Server) acceptLoop(ln net.Listener, done chan struct{}) {
	defer close(done)

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !s.IsRunning() {
				return
			}
			backoff = min(max(2*backoff, acceptBackoffMin), acceptBackoffMax)
			s.logger.Warnw("Accept failed, retrying", "error", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		go s.serveConn(conn)
	}
}

// track registers conn as in flight. It refuses once Stop has begun so the
// WaitGroup is never incremented after shutdown started waiting on it.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateRunning {
		return false
	}
	s.active[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.active, conn)
	s.mu.Unlock()
}

func (s *Server) closeActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.active {
		_ = conn.Close()
	}
}

// serveConn runs one connection through its lifecycle. A panic is logged and
// the connection is closed without a response.
func (s *Server) serveConn(conn net.Conn) {
	start := s.clock.Now()
	id := uuid.NewString()
	remote := conn.RemoteAddr().String()
	log := s.logger.WithRequestID(id).With("remote_addr", remote)

	s.conns.OnConnect(id, remote)

	r := reply{command: "unknown", outcome: OutcomePanic}
	defer func() {
		if p := recover(); p != nil {
			log.Errorw("Panic while serving connection", "panic", p, "stack", string(debug.Stack()))
		}
		_ = conn.Close()
		s.conns.Transition(id, types.ConnClosed)
		s.conns.OnDisconnect(id)
		s.untrack(conn)
		s.finish(log, r, s.clock.Since(start))
		s.wg.Done()
	}()

	r = s.handle(conn, id)
}

func (s *Server) handle(conn net.Conn, id string) reply {
	if s.limiter != nil {
		if err := s.limiter.Admit(conn.RemoteAddr().String()); err != nil {
			s.metrics.IncrRejectedConnection("rate_limited")
			return reply{command: "unknown", outcome: OutcomeRateLimited, err: err}
		}
	}

	s.conns.Transition(id, types.ConnReading)
	var deadline time.Time
	if s.config.ReadTimeout > 0 {
		deadline = time.Now().Add(s.config.ReadTimeout)
		_ = conn.SetReadDeadline(deadline)
	}
	in := &idleReader{conn: conn, idle: s.config.FrameIdleTimeout, deadline: deadline}
	frame, err := protocol.ReadFrame(in, s.config.MaxRequestSize)
	if err != nil && !(isTimeout(err) && len(frame) > 0) {
		if errors.Is(err, protocol.ErrFrameTooLarge) {
			return reply{command: "unknown", outcome: OutcomeMalformed, err: err}
		}
		s.metrics.IncrRejectedConnection("read_error")
		return reply{command: "unknown", outcome: OutcomeReadError, err: err}
	}

	s.conns.Transition(id, types.ConnDispatching)
	r := s.dispatch(s.connCtx, string(frame))
	if !r.respond {
		return r
	}

	s.conns.Transition(id, types.ConnResponding)
	if err := s.writeResponse(conn, r.text); err != nil {
		r.err = err
	}
	return r
}

func (s *Server) writeResponse(conn net.Conn, text string) error {
	data, err := protocol.EncodeResponse(text)
	if err != nil {
		return err
	}
	if s.config.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	_, err = conn.Write(data)
	return err
}

// finish counts the request and logs how it ended.
func (s *Server) finish(log logger.Logger, r reply, elapsed time.Duration) {
	valid := r.outcome.Valid()
	s.metrics.IncrRequest(r.command, r.outcome, valid)
	s.metrics.ObserveRequestLatency(r.command, elapsed)

	kv := []any{
		"command", r.command,
		"outcome", r.outcome.String(),
		"valid", valid,
		"duration_ms", elapsed.Milliseconds(),
	}
	switch {
	case r.outcome == OutcomeStoreError || r.outcome == OutcomePanic:
		log.Errorw("Request failed", append(kv, "error", r.err)...)
	case r.err != nil:
		log.Warnw("Request handled with error", append(kv, "error", r.err)...)
	default:
		log.Infow("Request handled", kv...)
	}
	s.stats.record(valid)
}

// idleReader ends a frame that stops arriving without a newline. The first
// read waits for the connection deadline; once bytes have arrived, each
// further read must come within idle.
type idleReader struct {
	conn     net.Conn
	idle     time.Duration
	deadline time.Time
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.conn.Read(p)
	if n > 0 && r.idle > 0 {
		next := time.Now().Add(r.idle)
		if !r.deadline.IsZero() && r.deadline.Before(next) {
			next = r.deadline
		}
		_ = r.conn.SetReadDeadline(next)
	}
	return n, err
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
