package docstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"prodline/internal/model"
	"prodline/internal/production"
	"prodline/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memBus 进程内广播总线
type memBus struct {
	mu   sync.Mutex
	next int
	subs map[int]chan []byte
}

func newMemBus() *memBus { return &memBus{subs: map[int]chan []byte{}} }

func (b *memBus) Publish(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *memBus) Subscribe(ctx context.Context, _ string) (<-chan []byte, error) {
	out := make(chan []byte, 64)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = out
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(out)
		b.mu.Unlock()
	}()
	return out, nil
}

func newTestStore(t *testing.T) Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "docs.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Run{}, &model.Partial{}, &model.RunPointer{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return New(repository.NewRepository(db), newMemBus(), "test", "dev-1", zap.NewNop(), sqlDB.Close)
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("等待推送超时")
	}
	var zero T
	return zero
}

var now = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func TestWatchPointer_InitialAndChanges(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan string, 8)
	store.WatchPointer(ctx, func(runID string) { got <- runID })

	assert.Equal(t, "", recv(t, got), "首次推送应为空指针")

	require.NoError(t, store.SetPointer(context.Background(), "R1"))
	assert.Equal(t, "R1", recv(t, got))

	require.NoError(t, store.SetPointer(context.Background(), ""))
	assert.Equal(t, "", recv(t, got))

	cancel()
	require.NoError(t, store.Close())
}

func TestWatchRun_UpdatesAndDeletion(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan *production.Run, 8)
	store.WatchRun(ctx, "R1", func(run *production.Run) { got <- run })

	assert.Nil(t, recv(t, got), "批次尚不存在")

	run := production.Run{ID: "R1", Flavor: "Cola", Format: "500ml", Target: 1000, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.UpsertRun(context.Background(), run))
	doc := recv(t, got)
	require.NotNil(t, doc)
	assert.Equal(t, int64(1000), doc.Target)

	// 其他批次的变更不应触发推送
	require.NoError(t, store.UpsertRun(context.Background(), production.Run{ID: "R2", Flavor: "X", Format: "300", Target: 1, CreatedAt: now, UpdatedAt: now}))

	require.NoError(t, store.DeleteRun(context.Background(), "R1"))
	assert.Nil(t, recv(t, got), "删除后应推送 nil")

	cancel()
	require.NoError(t, store.Close())
}

func TestWatchPartials_FullSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	bg := context.Background()

	got := make(chan []production.Partial, 8)
	store.WatchPartials(ctx, "R1", func(ps []production.Partial) { got <- ps })
	assert.Empty(t, recv(t, got))

	require.NoError(t, store.UpsertRun(bg, production.Run{ID: "R1", Flavor: "Cola", Format: "500ml", Target: 1000, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, store.AddPartial(bg, "R1", production.Partial{ID: "p2", Shift: "B", Operator: "Bo", ShiftTarget: 5, Produced: 30, Timestamp: now.Add(2 * time.Minute)}))
	first := recv(t, got)
	require.Len(t, first, 1)

	require.NoError(t, store.AddPartial(bg, "R1", production.Partial{ID: "p1", Shift: "A", Operator: "Ana", ShiftTarget: 5, Produced: 60, Timestamp: now.Add(time.Minute)}))
	second := recv(t, got)
	require.Len(t, second, 2)
	assert.Equal(t, "p1", second[0].ID, "应按时间升序")
	assert.Equal(t, "p2", second[1].ID)

	require.NoError(t, store.DeletePartial(bg, "R1", "p2"))
	third := recv(t, got)
	require.Len(t, third, 1)
	assert.Equal(t, "p1", third[0].ID)

	require.NoError(t, store.DeletePartials(bg, "R1"))
	assert.Empty(t, recv(t, got))

	cancel()
	require.NoError(t, store.Close())
}

func TestAddPartial_TouchesRun(t *testing.T) {
	store := newTestStore(t)
	bg := context.Background()

	require.NoError(t, store.UpsertRun(bg, production.Run{ID: "R1", Flavor: "Cola", Format: "500ml", Target: 1000, CreatedAt: now, UpdatedAt: now}))
	later := now.Add(time.Hour)
	require.NoError(t, store.AddPartial(bg, "R1", production.Partial{ID: "p1", Shift: "A", Operator: "Ana", ShiftTarget: 5, Produced: 60, Timestamp: later}))

	ctx, cancel := context.WithCancel(bg)
	got := make(chan *production.Run, 1)
	store.WatchRun(ctx, "R1", func(run *production.Run) {
		select {
		case got <- run:
		default:
		}
	})
	run := recv(t, got)
	require.NotNil(t, run)
	assert.True(t, run.UpdatedAt.Equal(later), "批次更新时间应随班次写入刷新")
	assert.True(t, run.CreatedAt.Equal(now))

	cancel()
	require.NoError(t, store.Close())
}
