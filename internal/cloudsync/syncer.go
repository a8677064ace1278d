package cloudsync

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"prodline/internal/docstore"
	"prodline/internal/production"
)

// Sink 接收远端变更（由会话控制器实现）。
// 回调在订阅 goroutine 中执行，实现方不得阻塞。
type Sink interface {
	OnPointer(runID string)
	OnRun(runID string, run *production.Run)
	OnPartials(runID string, partials []production.Partial)
}

// Subscription 可取消的订阅句柄
type Subscription struct {
	cancel context.CancelFunc
}

// Cancel 取消订阅；可重复调用，nil 句柄安全
func (s *Subscription) Cancel() {
	if s != nil {
		s.cancel()
	}
}

// Status 同步状态快照
type Status struct {
	Enabled       bool   `json:"enabled"`
	Ready         bool   `json:"ready"`
	Authoritative bool   `json:"authoritative"`
	DeviceID      string `json:"device_id,omitempty"`
	Following     string `json:"following,omitempty"`
	Pending       int    `json:"pending"`
	LastError     string `json:"last_error,omitempty"`
}

// Syncer 持有订阅并把本地变更镜像到远端
type Syncer struct {
	mu            sync.Mutex
	ctx           context.Context
	store         docstore.Store
	sink          Sink
	deviceID      string
	following     string
	pointerSub    *Subscription
	runSub        *Subscription
	partialsSub   *Subscription
	closed        bool
	enabled       bool
	authoritative bool

	outbox *Outbox
	logger *zap.Logger
}

// NewSyncer 创建同步器；enabled 为 false 时只用于上报状态
func NewSyncer(outbox *Outbox, enabled, authoritative bool, logger *zap.Logger) *Syncer {
	return &Syncer{
		outbox:        outbox,
		enabled:       enabled,
		authoritative: authoritative,
		logger:        logger,
	}
}

// Bind 设置远端变更的接收方，须在 Attach 之前调用
func (s *Syncer) Bind(sink Sink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

// Attach 远端就绪：先按顺序补发离线期间的操作，再订阅当前批次指针。
// 先补发可避免尚未上传的本地批次被旧指针清掉。
func (s *Syncer) Attach(ctx context.Context, store docstore.Store, deviceID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return store.Close()
	}
	s.ctx = ctx
	s.store = store
	s.deviceID = deviceID
	s.mu.Unlock()

	s.outbox.Open(store)
	if err := s.outbox.Flush(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.pointerSub = s.subscribe(func(ctx context.Context) {
		store.WatchPointer(ctx, func(runID string) {
			s.sinkOf().OnPointer(runID)
		})
	})
	s.logger.Info("远端同步已就绪",
		zap.String("device_id", deviceID),
		zap.Int("pending", s.outbox.Len()),
	)
	return nil
}

func (s *Syncer) sinkOf() Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

// subscribe 在根 ctx 下派生可取消的订阅，调用方持有 s.mu
func (s *Syncer) subscribe(start func(ctx context.Context)) *Subscription {
	ctx, cancel := context.WithCancel(s.ctx)
	start(ctx)
	return &Subscription{cancel: cancel}
}

// Ready 远端是否已就绪
func (s *Syncer) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store != nil && !s.closed
}

// Authoritative 远端就绪且被声明为权威时，批次保存需等待远端结果
func (s *Syncer) Authoritative() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authoritative && s.store != nil && !s.closed
}

// Following 当前已订阅的批次标识（未就绪时为空）
func (s *Syncer) Following() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.following
}

// Follow 切换批次订阅：先取消旧的批次文档与班次订阅，再订阅 runID；空串表示只取消。
// 远端未就绪时忽略，就绪后由指针推送驱动。
func (s *Syncer) Follow(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil || s.closed {
		return
	}
	if runID == s.following && (runID == "" || s.runSub != nil) {
		return
	}

	s.runSub.Cancel()
	s.partialsSub.Cancel()
	s.runSub, s.partialsSub = nil, nil
	s.following = runID

	if runID == "" {
		s.logger.Debug("已取消批次订阅")
		return
	}

	store := s.store
	s.runSub = s.subscribe(func(ctx context.Context) {
		store.WatchRun(ctx, runID, func(run *production.Run) {
			s.sinkOf().OnRun(runID, run)
		})
	})
	s.partialsSub = s.subscribe(func(ctx context.Context) {
		store.WatchPartials(ctx, runID, func(partials []production.Partial) {
			s.sinkOf().OnPartials(runID, partials)
		})
	})
	s.logger.Debug("已订阅批次", zap.String("run_id", runID))
}

// ────────────────────── 出站镜像 ──────────────────────

// SaveRun 镜像批次保存：写批次文档 → 更新指针 → 订阅该批次。
// 任一步失败即中止，返回的通道收到结果。
func (s *Syncer) SaveRun(run production.Run) <-chan error {
	return s.outbox.Submit("save_run", func(ctx context.Context, store docstore.Store) error {
		if err := store.UpsertRun(ctx, run); err != nil {
			return err
		}
		if err := store.SetPointer(ctx, run.ID); err != nil {
			return err
		}
		s.Follow(run.ID)
		return nil
	})
}

// AddPartial 镜像班次录入（同一标识与时间戳）
func (s *Syncer) AddPartial(runID string, p production.Partial) {
	s.outbox.Submit("add_partial", func(ctx context.Context, store docstore.Store) error {
		return store.AddPartial(ctx, runID, p)
	})
}

// DeletePartial 镜像班次删除
func (s *Syncer) DeletePartial(runID, partialID string) {
	s.outbox.Submit("delete_partial", func(ctx context.Context, store docstore.Store) error {
		return store.DeletePartial(ctx, runID, partialID)
	})
}

// ResetRun 镜像批次重置：立即取消批次订阅，随后依次删除班次、批次文档并清空指针
func (s *Syncer) ResetRun(runID string) {
	s.Follow("")
	if runID == "" {
		return
	}
	s.outbox.Submit("reset_partials", func(ctx context.Context, store docstore.Store) error {
		return store.DeletePartials(ctx, runID)
	})
	s.outbox.Submit("reset_run", func(ctx context.Context, store docstore.Store) error {
		return store.DeleteRun(ctx, runID)
	})
	s.outbox.Submit("reset_pointer", func(ctx context.Context, store docstore.Store) error {
		return store.SetPointer(ctx, "")
	})
}

// Status 当前同步状态
func (s *Syncer) Status() Status {
	s.mu.Lock()
	st := Status{
		Enabled:       s.enabled,
		Ready:         s.store != nil && !s.closed,
		Authoritative: s.authoritative,
		DeviceID:      s.deviceID,
		Following:     s.following,
	}
	s.mu.Unlock()

	st.Pending = s.outbox.Len()
	if err := s.outbox.LastError(); err != nil {
		st.LastError = err.Error()
	}
	return st
}

// Close 取消全部订阅并关闭远端连接；可重复调用
func (s *Syncer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.pointerSub.Cancel()
	s.runSub.Cancel()
	s.partialsSub.Cancel()
	store := s.store
	s.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Close()
}
