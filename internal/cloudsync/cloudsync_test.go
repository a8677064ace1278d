package cloudsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"prodline/config"
	"prodline/internal/docstore"
	"prodline/internal/production"
	pkgerrors "prodline/pkg/errors"
	"prodline/pkg/jwt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const waitFor = 3 * time.Second

var t0 = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

// startOutbox 启动 worker，测试结束时停止并等待退出
func startOutbox(t *testing.T) *Outbox {
	t.Helper()
	ob := NewOutbox(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = ob.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	return ob
}

func next[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		t.Fatal("等待超时")
	}
	var zero T
	return zero
}

// ────────────────────── Outbox ──────────────────────

func TestOutbox_QueuesUntilOpenThenFIFO(t *testing.T) {
	ob := startOutbox(t)
	store := newFakeStore()

	ob.Submit("a", func(ctx context.Context, s docstore.Store) error { return s.SetPointer(ctx, "A") })
	ob.Submit("b", func(ctx context.Context, s docstore.Store) error { return s.SetPointer(ctx, "B") })
	ob.Submit("c", func(ctx context.Context, s docstore.Store) error { return s.SetPointer(ctx, "C") })

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, ob.Len(), "就绪前操作只入队")
	assert.Empty(t, store.opLog())

	ob.Open(store)
	require.NoError(t, ob.Flush(context.Background()))
	assert.Equal(t, []string{"pointer A", "pointer B", "pointer C"}, store.opLog())
	assert.Equal(t, 0, ob.Len())
}

func TestOutbox_FailureDoesNotBlockLaterOps(t *testing.T) {
	ob := startOutbox(t)
	store := newFakeStore()
	store.fail["add p2"] = errInjected
	ob.Open(store)

	for _, id := range []string{"p1", "p2", "p3"} {
		p := production.Partial{ID: id, Timestamp: t0}
		ob.Submit("add_partial", func(ctx context.Context, s docstore.Store) error { return s.AddPartial(ctx, "R1", p) })
	}
	require.NoError(t, ob.Flush(context.Background()))

	assert.Equal(t, []string{"add p1", "add p2", "add p3"}, store.opLog())
	err := ob.LastError()
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrRemoteUnavailable))
	assert.True(t, errors.Is(err, errInjected))
}

func TestOutbox_SubmitReturnsResult(t *testing.T) {
	ob := startOutbox(t)
	ob.Open(newFakeStore())

	done := ob.Submit("boom", func(context.Context, docstore.Store) error { return errInjected })
	err := next(t, done)
	assert.True(t, errors.Is(err, errInjected))
}

func TestOutbox_DropsPendingOnShutdown(t *testing.T) {
	ob := NewOutbox(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = ob.Run(ctx)
		close(stopped)
	}()

	done := ob.Submit("never", func(context.Context, docstore.Store) error { return nil })
	cancel()
	<-stopped

	assert.ErrorIs(t, next(t, done), ErrOutboxClosed)
	assert.Equal(t, 0, ob.Len())
}

// ────────────────────── Syncer ──────────────────────

type harness struct {
	store  *fakeStore
	outbox *Outbox
	syncer *Syncer
	sink   *recordingSink
	ctx    context.Context
}

func newHarness(t *testing.T, authoritative bool) *harness {
	t.Helper()
	h := &harness{
		store:  newFakeStore(),
		outbox: startOutbox(t),
		sink:   newRecordingSink(),
	}
	h.syncer = NewSyncer(h.outbox, true, authoritative, zap.NewNop())
	h.syncer.Bind(h.sink)

	ctx, cancel := context.WithCancel(context.Background())
	h.ctx = ctx
	t.Cleanup(func() {
		cancel()
		_ = h.syncer.Close()
	})
	return h
}

func (h *harness) attach(t *testing.T) {
	t.Helper()
	require.NoError(t, h.syncer.Attach(h.ctx, h.store, "dev-1"))
}

func TestSyncer_NotReadyIgnoresFollow(t *testing.T) {
	h := newHarness(t, false)

	h.syncer.Follow("R1")
	assert.Equal(t, "", h.syncer.Following())
	assert.False(t, h.syncer.Ready())
	assert.False(t, h.syncer.Authoritative())
}

func TestSyncer_AttachFlushesBeforeWatchingPointer(t *testing.T) {
	h := newHarness(t, false)
	h.store.pointer = "OLD"

	run := production.Run{ID: "R1", Flavor: "Cola", Format: "500ml", Target: 1000, CreatedAt: t0, UpdatedAt: t0}
	done := h.syncer.SaveRun(run)
	h.syncer.AddPartial("R1", production.Partial{ID: "p1", Produced: 60, Timestamp: t0})

	h.attach(t)
	require.NoError(t, next(t, done))

	// 指针订阅建立时离线操作已上传，首个推送即为本地批次
	assert.Equal(t, "R1", next(t, h.sink.pointers))
	assert.Equal(t, []string{"upsert R1", "pointer R1", "add p1"}, h.store.opLog())
	assert.True(t, h.syncer.Ready())
	assert.Equal(t, "R1", h.syncer.Following())
}

func TestSyncer_FollowReplacesSubscriptions(t *testing.T) {
	h := newHarness(t, false)
	h.attach(t)
	assert.Equal(t, "", next(t, h.sink.pointers))

	h.syncer.Follow("R1")
	assert.Equal(t, "R1", next(t, h.sink.runs).runID)
	assert.Equal(t, "R1", next(t, h.sink.partials).runID)

	h.syncer.Follow("R2")
	assert.Equal(t, "R2", next(t, h.sink.runs).runID)
	assert.Equal(t, "R2", next(t, h.sink.partials).runID)

	// 旧批次的变更不再推送
	require.NoError(t, h.store.AddPartial(context.Background(), "R1", production.Partial{ID: "x", Timestamp: t0}))
	require.NoError(t, h.store.AddPartial(context.Background(), "R2", production.Partial{ID: "y", Timestamp: t0}))
	ev := next(t, h.sink.partials)
	assert.Equal(t, "R2", ev.runID)
	require.Len(t, ev.partials, 1)
	assert.Equal(t, "y", ev.partials[0].ID)

	// 重复 Follow 同一批次不重建订阅
	h.syncer.Follow("R2")
	select {
	case ev := <-h.sink.runs:
		t.Fatalf("不应重新推送: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSyncer_ResetOrder(t *testing.T) {
	h := newHarness(t, false)
	h.attach(t)

	run := production.Run{ID: "R1", Flavor: "Cola", Format: "500ml", Target: 1000, CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, next(t, h.syncer.SaveRun(run)))
	h.syncer.AddPartial("R1", production.Partial{ID: "p1", Produced: 60, Timestamp: t0})

	h.syncer.ResetRun("R1")
	assert.Equal(t, "", h.syncer.Following(), "重置后立即取消批次订阅")
	require.NoError(t, h.outbox.Flush(context.Background()))

	assert.Equal(t, []string{
		"upsert R1", "pointer R1", "add p1",
		"delete_partials R1", "delete_run R1", "pointer ",
	}, h.store.opLog())
}

func TestSyncer_SaveRunAbortsOnUpsertFailure(t *testing.T) {
	h := newHarness(t, true)
	h.attach(t)
	h.store.fail["upsert R1"] = errInjected

	assert.True(t, h.syncer.Authoritative())
	err := next(t, h.syncer.SaveRun(production.Run{ID: "R1", Target: 1}))
	assert.ErrorIs(t, err, pkgerrors.ErrRemoteUnavailable)
	assert.Equal(t, []string{"upsert R1"}, h.store.opLog(), "批次写入失败时不应移动指针")
	assert.Equal(t, "", h.syncer.Following())

	st := h.syncer.Status()
	assert.True(t, st.Ready)
	assert.NotEmpty(t, st.LastError)
}

func TestSyncer_RemoteRunDeletionReachesSink(t *testing.T) {
	h := newHarness(t, false)
	h.attach(t)
	require.NoError(t, next(t, h.syncer.SaveRun(production.Run{ID: "R1", Target: 10})))

	// 订阅建立后的首个推送为已存在的批次
	first := next(t, h.sink.runs)
	require.NotNil(t, first.run)

	require.NoError(t, h.store.DeleteRun(context.Background(), "R1"))
	ev := next(t, h.sink.runs)
	assert.Equal(t, "R1", ev.runID)
	assert.Nil(t, ev.run)
}

// ────────────────────── Connector ──────────────────────

func TestConnector_RetriesUntilReady(t *testing.T) {
	ob := startOutbox(t)
	syncer := NewSyncer(ob, true, false, zap.NewNop())
	syncer.Bind(newRecordingSink())
	tokens := jwt.NewManager(&config.AuthConfig{JWTSecret: "test-secret-key-1234567890", DeviceTokenTTL: time.Hour})

	store := newFakeStore()
	var mu sync.Mutex
	attempts := 0
	var dialedAs string
	dial := func(_ context.Context, deviceID string) (docstore.Store, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return nil, errInjected
		}
		dialedAs = deviceID
		return store, nil
	}

	conn := NewConnector(dial, syncer, tokens, "", 10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, conn.Run(ctx))
	assert.True(t, syncer.Ready())

	mu.Lock()
	assert.Equal(t, 3, attempts)
	assert.NotEmpty(t, dialedAs, "应以匿名设备标识拨号")
	mu.Unlock()
	assert.Equal(t, dialedAs, syncer.Status().DeviceID)

	cancel()
	require.NoError(t, syncer.Close())
}

func TestConnector_StopsOnCancel(t *testing.T) {
	syncer := NewSyncer(NewOutbox(zap.NewNop()), true, false, zap.NewNop())
	tokens := jwt.NewManager(&config.AuthConfig{JWTSecret: "test-secret-key-1234567890"})
	dial := func(context.Context, string) (docstore.Store, error) { return nil, errInjected }

	ctx, cancel := context.WithCancel(context.Background())
	conn := NewConnector(dial, syncer, tokens, "dev-1", time.Hour, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- conn.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.NoError(t, next(t, done))
	assert.False(t, syncer.Ready())
}
