package server

import (
	"sync"
	"time"

	"github.com/jathurchan/seatlicense/clock"
	"github.com/jathurchan/seatlicense/logger"
	"github.com/jathurchan/seatlicense/types"
)

// ConnectionInfo holds metadata about one served connection.
type ConnectionInfo struct {
	ID          string          // Request id assigned at accept
	RemoteAddr  string          // Client's remote address
	ConnectedAt time.Time       // Time the connection was accepted
	LastActive  time.Time       // Time of the last state change
	State       types.ConnState // Current stage
}

// ConnectionManager tracks served connections and their lifecycle stage.
type ConnectionManager interface {
	// Registers a new connection in ConnAccepted
	OnConnect(id, remoteAddr string)

	// Moves a connection to the next stage; invalid transitions are ignored
	Transition(id string, state types.ConnState) bool

	// Removes a connection
	OnDisconnect(id string)

	// Returns the number of active connections
	GetActiveConnections() int

	// Returns a snapshot of all connections keyed by id
	GetAllConnectionInfo() map[string]ConnectionInfo
}

// connectionManager is the default implementation of ConnectionManager.
type connectionManager struct {
	mu sync.RWMutex

	// Active connections keyed by request id
	connections map[string]*ConnectionInfo

	metrics ServerMetrics
	logger  logger.Logger
	clock   clock.Clock
}

// NewConnectionManager returns a new ConnectionManager.
// Falls back to the standard clock if none is given.
func NewConnectionManager(metrics ServerMetrics, log logger.Logger, c clock.Clock) ConnectionManager {
	if c == nil {
		c = clock.NewStandardClock()
	}
	if metrics == nil {
		metrics = NewNoOpServerMetrics()
	}
	return &connectionManager{
		connections: make(map[string]*ConnectionInfo),
		metrics:     metrics,
		logger:      log.WithComponent("connection-manager"),
		clock:       c,
	}
}

// OnConnect registers a newly accepted connection.
func (cm *connectionManager) OnConnect(id, remoteAddr string) {
	now := cm.clock.Now()

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.connections[id]; exists {
		cm.logger.Warnw("Connection already registered", "id", id, "remote_addr", remoteAddr)
		return
	}

	cm.connections[id] = &ConnectionInfo{
		ID:          id,
		RemoteAddr:  remoteAddr,
		ConnectedAt: now,
		LastActive:  now,
		State:       types.ConnAccepted,
	}
	total := len(cm.connections)
	cm.metrics.SetActiveConnections(total)
	cm.logger.Debugw("Connection accepted", "remote_addr", remoteAddr, "total_connections", total)
}

// Transition advances a connection to state. It reports false when the
// connection is unknown or the move is not a legal transition.
func (cm *connectionManager) Transition(id string, state types.ConnState) bool {
	now := cm.clock.Now()

	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn, exists := cm.connections[id]
	if !exists {
		cm.logger.Debugw("Transition for unknown connection", "id", id, "state", state.String())
		return false
	}
	if !conn.State.CanTransitionTo(state) {
		cm.logger.Warnw("Invalid connection state transition",
			"id", id, "from", conn.State.String(), "to", state.String())
		return false
	}

	conn.State = state
	conn.LastActive = now
	return true
}

// OnDisconnect unregisters a connection.
func (cm *connectionManager) OnDisconnect(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn, exists := cm.connections[id]; exists {
		delete(cm.connections, id)
		cm.metrics.SetActiveConnections(len(cm.connections))
		cm.logger.Debugw("Connection closed",
			"remote_addr", conn.RemoteAddr,
			"total_connections", len(cm.connections))
	}
}

// GetActiveConnections returns the current number of active connections.
func (cm *connectionManager) GetActiveConnections() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// GetAllConnectionInfo returns a copy of all current connection info.
func (cm *connectionManager) GetAllConnectionInfo() map[string]ConnectionInfo {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	infos := make(map[string]ConnectionInfo, len(cm.connections))
	for id, info := range cm.connections {
		infos[id] = *info
	}
	return infos
}
