package leaderelection

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/lib/pq"
)

type mockMetrics struct {
	acquired int32
	lost     int32
}

func (m *mockMetrics) LeaderStatusChanged(isLeader bool) {}
func (m *mockMetrics) LeaderAcquired()                   { atomic.AddInt32(&m.acquired, 1) }
func (m *mockMetrics) LeaderLost(reason string)          { atomic.AddInt32(&m.lost, 1) }

type mockDuties struct {
	started int32
	stopped int32
}

func (d *mockDuties) Start(ctx context.Context) { atomic.AddInt32(&d.started, 1) }
func (d *mockDuties) Stop()                     { atomic.AddInt32(&d.stopped, 1) }

// unreachableDB returns a pool whose connections are refused immediately.
func unreachableDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", "postgres://user@127.0.0.1:1/jobboard?sslmode=disable&connect_timeout=1")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_Defaults(t *testing.T) {
	e := New(nil, Config{LockKey: 7}, &mockDuties{})
	if e.config.RetryInterval != 5*time.Second {
		t.Errorf("RetryInterval = %v, want 5s", e.config.RetryInterval)
	}
	if e.config.HeartbeatInterval != 2*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 2s", e.config.HeartbeatInterval)
	}
	if e.IsLeader() {
		t.Error("a new elector must not be leader")
	}
}

func TestElector_RunReturnsOnCancelledContext(t *testing.T) {
	duties := &mockDuties{}
	e := New(nil, Config{LockKey: 1, RetryInterval: time.Millisecond, HeartbeatInterval: time.Millisecond}, duties)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for a cancelled context")
	}
	if atomic.LoadInt32(&duties.started) != 0 {
		t.Error("duties must not start")
	}
}

func TestElector_ConnectionFailureIsNotLeadership(t *testing.T) {
	duties := &mockDuties{}
	m := &mockMetrics{}
	e := New(unreachableDB(t), Config{LockKey: 42, RetryInterval: 10 * time.Millisecond, HeartbeatInterval: 10 * time.Millisecond}, duties).
		WithMetrics(m)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if reason := e.campaign(ctx); reason != "" {
		t.Errorf("campaign reason = %q, want empty when the lock was never taken", reason)
	}
	if atomic.LoadInt32(&duties.started) != 0 || atomic.LoadInt32(&duties.stopped) != 0 {
		t.Errorf("duties ran without leadership: started=%d stopped=%d", duties.started, duties.stopped)
	}
	if atomic.LoadInt32(&m.acquired) != 0 || atomic.LoadInt32(&m.lost) != 0 {
		t.Error("leadership metrics must not be recorded")
	}
	if e.IsLeader() {
		t.Error("IsLeader = true after a failed campaign")
	}
}

func TestElector_RunRetriesUntilCancelled(t *testing.T) {
	e := New(unreachableDB(t), Config{LockKey: 42, RetryInterval: 10 * time.Millisecond, HeartbeatInterval: 10 * time.Millisecond}, &mockDuties{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after the context deadline")
	}
}

func TestSetLeader_RecordsMetrics(t *testing.T) {
	m := &mockMetrics{}
	e := New(nil, Config{LockKey: 1}, &mockDuties{}).WithMetrics(m)

	e.setLeader(true)
	if !e.IsLeader() {
		t.Error("IsLeader = false after setLeader(true)")
	}
	if atomic.LoadInt32(&m.acquired) != 1 {
		t.Errorf("acquired = %d, want 1", m.acquired)
	}

	e.setLeader(false)
	if e.IsLeader() {
		t.Error("IsLeader = true after setLeader(false)")
	}
	if atomic.LoadInt32(&m.acquired) != 1 {
		t.Errorf("acquired = %d, want 1 (stepping down is not an acquisition)", m.acquired)
	}
}
