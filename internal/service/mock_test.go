package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"prodline/internal/cloudsync"
	"prodline/internal/production"
)

// ── Mock SnapshotRepository ──

type mockSnapshotRepo struct {
	mu        sync.Mutex
	snap      production.Snapshot
	lastShift string
	saves     int
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{snap: production.Snapshot{Partials: []production.Partial{}}}
}

func (m *mockSnapshotRepo) Save(s production.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = s
	m.saves++
}

func (m *mockSnapshotRepo) Load() production.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *mockSnapshotRepo) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = production.Snapshot{Partials: []production.Partial{}}
	m.saves++
}

func (m *mockSnapshotRepo) SaveLastShift(shift string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastShift = shift
}

func (m *mockSnapshotRepo) LastShift() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastShift
}

func (m *mockSnapshotRepo) ClearLastShift() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastShift = ""
}

// ── Mock RemoteMirror ──

type mockMirror struct {
	mu            sync.Mutex
	sink          cloudsync.Sink
	ops           []string
	following     string
	authoritative bool
	saveErr       error
}

func newMockMirror() *mockMirror { return &mockMirror{} }

func (m *mockMirror) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
}

func (m *mockMirror) opLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func (m *mockMirror) Bind(sink cloudsync.Sink) { m.sink = sink }

func (m *mockMirror) SaveRun(run production.Run) <-chan error {
	m.record("save_run " + run.ID)
	ch := make(chan error, 1)
	m.mu.Lock()
	ch <- m.saveErr
	m.mu.Unlock()
	return ch
}

func (m *mockMirror) AddPartial(runID string, p production.Partial) {
	m.record("add_partial " + runID + " " + p.ID)
}

func (m *mockMirror) DeletePartial(runID, partialID string) {
	m.record("delete_partial " + runID + " " + partialID)
}

func (m *mockMirror) ResetRun(runID string) {
	m.record("reset " + runID)
	m.mu.Lock()
	m.following = ""
	m.mu.Unlock()
}

func (m *mockMirror) Follow(runID string) {
	m.record("follow " + runID)
	m.mu.Lock()
	m.following = runID
	m.mu.Unlock()
}

func (m *mockMirror) Following() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.following
}

func (m *mockMirror) Authoritative() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authoritative
}

func (m *mockMirror) Status() cloudsync.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloudsync.Status{Authoritative: m.authoritative, Following: m.following}
}

// ── 测试时钟与标识 ──

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type seqID struct {
	mu sync.Mutex
	n  int
}

func (s *seqID) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return "p" + strconv.Itoa(s.n)
}

// startTracker 启动会话循环，测试结束时停止
func startTracker(t *testing.T, snapshots *mockSnapshotRepo, mirror *mockMirror) *trackerService {
	clock := &fakeClock{now: time.Date(2026, 10, 19, 8, 0, 0, 0, time.Local)}
	ids := &seqID{}
	svc := newTrackerService(snapshots, mirror, clock.Now, ids.Next, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = svc.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return svc
}
