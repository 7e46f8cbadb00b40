package server

import (
	"testing"
	"time"

	"github.com/jathurchan/seatlicense/logger"
	"github.com/jathurchan/seatlicense/testutil"
	"github.com/jathurchan/seatlicense/types"
)

func TestNewConnectionManager_NilDependencies(t *testing.T) {
	cm := NewConnectionManager(nil, logger.NewNoOpLogger(), nil)
	testutil.RequireNotNil(t, cm)
	testutil.AssertEqual(t, 0, cm.GetActiveConnections())
	testutil.AssertLen(t, cm.GetAllConnectionInfo(), 0)
}

func TestConnectionManager_Lifecycle(t *testing.T) {
	metrics := newMockServerMetrics()
	clock := newMockClock()
	cm := NewConnectionManager(metrics, logger.NewNoOpLogger(), clock)

	start := clock.Now()
	cm.OnConnect("req-1", "10.0.0.1:5000")
	cm.OnConnect("req-1", "10.0.0.1:5000")
	testutil.AssertEqual(t, 1, cm.GetActiveConnections(), "duplicate registration is ignored")
	testutil.AssertEqual(t, 1, metrics.activeConnections)

	info := cm.GetAllConnectionInfo()["req-1"]
	testutil.AssertEqual(t, types.ConnAccepted, info.State)
	testutil.AssertEqual(t, start, info.ConnectedAt)

	clock.Advance(10 * time.Millisecond)
	for _, st := range []types.ConnState{types.ConnReading, types.ConnDispatching, types.ConnResponding} {
		testutil.AssertTrue(t, cm.Transition("req-1", st), "transition to %s", st)
	}
	info = cm.GetAllConnectionInfo()["req-1"]
	testutil.AssertEqual(t, types.ConnResponding, info.State)
	testutil.AssertEqual(t, start.Add(10*time.Millisecond), info.LastActive)

	testutil.AssertFalse(t, cm.Transition("req-1", types.ConnReading), "cannot go back to reading")
	testutil.AssertTrue(t, cm.Transition("req-1", types.ConnClosed))

	cm.OnDisconnect("req-1")
	cm.OnDisconnect("req-1")
	testutil.AssertEqual(t, 0, cm.GetActiveConnections())
	testutil.AssertEqual(t, 0, metrics.activeConnections)
}

func TestConnectionManager_SkipStagesToClose(t *testing.T) {
	cm := NewConnectionManager(nil, logger.NewNoOpLogger(), newMockClock())
	cm.OnConnect("a", "1.1.1.1:1")

	testutil.AssertFalse(t, cm.Transition("a", types.ConnResponding), "accepted cannot jump to responding")
	testutil.AssertTrue(t, cm.Transition("a", types.ConnClosed), "any stage may close")
	testutil.AssertFalse(t, cm.Transition("missing", types.ConnReading))
}

func TestConnectionManager_SnapshotIsCopy(t *testing.T) {
	cm := NewConnectionManager(nil, logger.NewNoOpLogger(), newMockClock())
	cm.OnConnect("a", "1.1.1.1:1")

	infos := cm.GetAllConnectionInfo()
	info := infos["a"]
	info.State = types.ConnClosed
	infos["a"] = info

	testutil.AssertEqual(t, types.ConnAccepted, cm.GetAllConnectionInfo()["a"].State)
}
