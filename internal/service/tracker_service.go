package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prodline/internal/cloudsync"
	"prodline/internal/dto"
	"prodline/internal/production"
	"prodline/internal/repository"
)

// ── 批次模块业务错误 ──

var (
	ErrPartialNotFound = errors.New("班次记录不存在")
	ErrTrackerStopped  = errors.New("会话已停止")
)

// RemoteMirror 远端镜像（cloudsync.Syncer 实现）
// 所有方法立即返回；SaveRun 的结果通道只在权威模式下被等待
type RemoteMirror interface {
	Bind(sink cloudsync.Sink)
	SaveRun(run production.Run) <-chan error
	AddPartial(runID string, p production.Partial)
	DeletePartial(runID, partialID string)
	ResetRun(runID string)
	Follow(runID string)
	Following() string
	Authoritative() bool
	Status() cloudsync.Status
}

// TrackerService 批次会话业务接口
//
// 设计说明：
//   - 聚合只由 Run 启动的会话 goroutine 修改，接口方法把操作投递进循环并等待完成
//   - 每次本地变更后先同步写本地槽位，再提交远端镜像，最后返回
//   - 远端推送（cloudsync.Sink）同样投递进循环，按到达顺序对账
type TrackerService interface {
	// Run 会话循环，ctx 取消后返回
	Run(ctx context.Context) error

	State(ctx context.Context) (*dto.RunStateResponse, error)
	Summary(ctx context.Context) (*dto.SummaryResponse, error)
	Partials(ctx context.Context) ([]dto.PartialResponse, error)
	Snapshot(ctx context.Context) (production.Snapshot, error)
	LastShift(ctx context.Context) string
	SyncStatus() cloudsync.Status

	SaveRun(ctx context.Context, req *dto.SaveRunRequest) (*dto.RunStateResponse, error)
	AddPartial(ctx context.Context, req *dto.AddPartialRequest) (*dto.PartialResponse, error)
	DeletePartial(ctx context.Context, partialID string) error
	Reset(ctx context.Context) error
}

type trackerService struct {
	agg       production.Aggregate
	snapshots repository.SnapshotRepository
	mirror    RemoteMirror

	ops     chan func()
	stopped chan struct{}

	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

// NewTrackerService 创建 TrackerService 实例，并从本地槽位恢复上次会话
func NewTrackerService(snapshots repository.SnapshotRepository, mirror RemoteMirror, logger *zap.Logger) TrackerService {
	return newTrackerService(snapshots, mirror, time.Now, uuid.NewString, logger)
}

func newTrackerService(
	snapshots repository.SnapshotRepository,
	mirror RemoteMirror,
	now func() time.Time,
	newID func() string,
	logger *zap.Logger,
) *trackerService {
	t := &trackerService{
		agg:       production.FromSnapshot(snapshots.Load()),
		snapshots: snapshots,
		mirror:    mirror,
		ops:       make(chan func()),
		stopped:   make(chan struct{}),
		now:       now,
		newID:     newID,
		logger:    logger,
	}
	mirror.Bind(t)

	if id := t.agg.ActiveID(); id != "" {
		logger.Info("已恢复本地批次", zap.String("run_id", id), zap.Int("partials", t.agg.Len()))
	}
	return t
}

// ────────────────────── 会话循环 ──────────────────────

func (t *trackerService) Run(ctx context.Context) error {
	defer close(t.stopped)
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-t.ops:
			fn()
		}
	}
}

// do 投递操作并等待执行完毕
func (t *trackerService) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	op := func() {
		defer close(done)
		fn()
	}
	select {
	case t.ops <- op:
	case <-t.stopped:
		return ErrTrackerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// post 投递操作但不等待执行（远端推送使用）
func (t *trackerService) post(fn func()) {
	select {
	case t.ops <- fn:
	case <-t.stopped:
	}
}

// persist 写本地槽位，调用方位于会话循环内
func (t *trackerService) persist() {
	t.snapshots.Save(t.agg.Snapshot())
}

// current 取聚合的深拷贝
func (t *trackerService) current(ctx context.Context) (production.Aggregate, error) {
	var agg production.Aggregate
	err := t.do(ctx, func() { agg = t.agg.Clone() })
	return agg, err
}

// ────────────────────── 读取 ──────────────────────

func (t *trackerService) State(ctx context.Context) (*dto.RunStateResponse, error) {
	agg, err := t.current(ctx)
	if err != nil {
		return nil, err
	}
	return t.stateOf(ctx, &agg), nil
}

func (t *trackerService) stateOf(ctx context.Context, agg *production.Aggregate) *dto.RunStateResponse {
	resp := &dto.RunStateResponse{
		Summary:   toSummaryResponse(agg.Summary()),
		Partials:  toPartialResponses(agg),
		LastShift: t.LastShift(ctx),
		Sync:      t.mirror.Status(),
	}
	if run, ok := agg.Run(); ok {
		resp.Run = toRunResponse(run)
	}
	return resp
}

func (t *trackerService) Summary(ctx context.Context) (*dto.SummaryResponse, error) {
	agg, err := t.current(ctx)
	if err != nil {
		return nil, err
	}
	s := toSummaryResponse(agg.Summary())
	return &s, nil
}

func (t *trackerService) Partials(ctx context.Context) ([]dto.PartialResponse, error) {
	agg, err := t.current(ctx)
	if err != nil {
		return nil, err
	}
	return toPartialResponses(&agg), nil
}

func (t *trackerService) Snapshot(ctx context.Context) (production.Snapshot, error) {
	agg, err := t.current(ctx)
	if err != nil {
		return production.Snapshot{}, err
	}
	return agg.Snapshot(), nil
}

func (t *trackerService) LastShift(_ context.Context) string {
	return t.snapshots.LastShift()
}

func (t *trackerService) SyncStatus() cloudsync.Status {
	return t.mirror.Status()
}

// ────────────────────── SaveRun ──────────────────────

// SaveRun 保存批次目标。
// 权威模式下等待远端写入结果；远端失败时本地状态保留，错误返回给调用方。
func (t *trackerService) SaveRun(ctx context.Context, req *dto.SaveRunRequest) (*dto.RunStateResponse, error) {
	var (
		opErr         error
		agg           production.Aggregate
		result        <-chan error
		authoritative bool
	)
	err := t.do(ctx, func() {
		if _, opErr = t.agg.CreateOrUpdateRun(req.Flavor, req.Format, req.Target, t.now()); opErr != nil {
			return
		}
		t.persist()
		run, _ := t.agg.Run()
		result = t.mirror.SaveRun(run)
		authoritative = t.mirror.Authoritative()
		agg = t.agg.Clone()
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}

	t.logger.Info("批次已保存",
		zap.String("run_id", agg.ActiveID()),
		zap.Int64("target", req.Target),
	)

	if authoritative {
		select {
		case remoteErr := <-result:
			if remoteErr != nil {
				t.logger.Warn("远端保存批次失败，本地状态已保留",
					zap.String("run_id", agg.ActiveID()),
					zap.Error(remoteErr),
				)
				return nil, remoteErr
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return t.stateOf(ctx, &agg), nil
}

// ────────────────────── AddPartial ──────────────────────

func (t *trackerService) AddPartial(ctx context.Context, req *dto.AddPartialRequest) (*dto.PartialResponse, error) {
	var produced int64
	if req.Produced != nil {
		produced = *req.Produced
	}

	var (
		opErr  error
		p      production.Partial
		format string
		runID  string
	)
	err := t.do(ctx, func() {
		p, opErr = t.agg.AddPartial(req.Shift, req.Operator, req.ShiftTarget, produced, t.newID(), t.now())
		if opErr != nil {
			return
		}
		t.persist()
		t.snapshots.SaveLastShift(p.Shift)

		run, _ := t.agg.Run()
		runID, format = run.ID, run.Format
		t.mirror.AddPartial(runID, p)
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}

	t.logger.Info("班次产量已录入",
		zap.String("run_id", runID),
		zap.String("partial_id", p.ID),
		zap.String("shift", p.Shift),
		zap.Int64("produced", p.Produced),
	)
	resp := toPartialResponse(p, format)
	return &resp, nil
}

// ────────────────────── DeletePartial ──────────────────────

func (t *trackerService) DeletePartial(ctx context.Context, partialID string) error {
	found := false
	err := t.do(ctx, func() {
		if !t.agg.DeletePartial(partialID) {
			return
		}
		found = true
		t.persist()
		t.mirror.DeletePartial(t.agg.ActiveID(), partialID)
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrPartialNotFound
	}
	t.logger.Info("班次记录已删除", zap.String("partial_id", partialID))
	return nil
}

// ────────────────────── Reset ──────────────────────

// Reset 清空本地批次与偏好，并按序删除远端文档
func (t *trackerService) Reset(ctx context.Context) error {
	var runID string
	err := t.do(ctx, func() {
		runID = t.agg.ActiveID()
		t.agg.Reset()
		t.snapshots.Clear()
		t.snapshots.ClearLastShift()
		t.mirror.ResetRun(runID)
	})
	if err != nil {
		return err
	}
	t.logger.Info("批次已重置", zap.String("run_id", runID))
	return nil
}

// ────────────────────── 远端推送（cloudsync.Sink） ──────────────────────

// OnPointer 当前批次指针变更：切换本地批次并跟随订阅
func (t *trackerService) OnPointer(runID string) {
	t.post(func() {
		if runID != t.agg.ActiveID() {
			t.logger.Info("远端切换当前批次",
				zap.String("from", t.agg.ActiveID()),
				zap.String("to", runID),
			)
			t.agg = production.ReconcilePointer(t.agg, runID)
			t.persist()
		}
		if t.mirror.Following() != runID {
			t.mirror.Follow(runID)
		}
	})
}

// OnRun 批次文档变更；文档被删除时清空本地批次
func (t *trackerService) OnRun(runID string, run *production.Run) {
	t.post(func() {
		if runID == "" || runID != t.agg.ActiveID() {
			return
		}
		t.agg = production.ReconcileRun(t.agg, runID, run)
		t.persist()
		if !t.agg.Active() {
			t.logger.Info("远端批次已删除，本地随之清空", zap.String("run_id", runID))
			t.snapshots.ClearLastShift()
			t.mirror.Follow("")
		}
	})
}

// OnPartials 班次列表变更：整体替换本地列表
func (t *trackerService) OnPartials(runID string, partials []production.Partial) {
	t.post(func() {
		if runID == "" || runID != t.agg.ActiveID() {
			return
		}
		t.agg = production.ReconcilePartials(t.agg, runID, partials)
		t.persist()
	})
}

// ────────────────────── DTO 转换 ──────────────────────

func toRunResponse(run production.Run) *dto.RunResponse {
	return &dto.RunResponse{
		RunID:     run.ID,
		Flavor:    run.Flavor,
		Format:    run.Format,
		Target:    run.Target,
		CreatedAt: run.CreatedAt.UnixMilli(),
		UpdatedAt: run.UpdatedAt.UnixMilli(),
	}
}

func toSummaryResponse(s production.Summary) dto.SummaryResponse {
	return dto.SummaryResponse{
		Target:          s.Target,
		Accumulated:     s.Accumulated,
		Remaining:       s.Remaining,
		ProgressPercent: s.ProgressPercent,
	}
}

func toPartialResponse(p production.Partial, format string) dto.PartialResponse {
	pct := production.ShiftCompletion(p, format)
	return dto.PartialResponse{
		PartialID:     p.ID,
		Ts:            p.Timestamp.UnixMilli(),
		Shift:         p.Shift,
		Operator:      p.Operator,
		ShiftTarget:   p.ShiftTarget,
		Produced:      p.Produced,
		Cases:         production.CasesCompleted(p.Produced, format),
		CompletionPct: pct,
		OnTrack:       production.ShiftOnTrack(pct),
	}
}

// toPartialResponses 按时间升序
func toPartialResponses(agg *production.Aggregate) []dto.PartialResponse {
	run, _ := agg.Run()
	ordered := agg.OrderedPartials()
	out := make([]dto.PartialResponse, 0, len(ordered))
	for _, p := range ordered {
		out = append(out, toPartialResponse(p, run.Format))
	}
	return out
}
