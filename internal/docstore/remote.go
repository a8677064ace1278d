package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"prodline/internal/model"
	"prodline/internal/production"
	"prodline/internal/repository"
)

// resubscribeDelay 订阅断开后的重试间隔
const resubscribeDelay = 2 * time.Second

type remoteStore struct {
	repo     *repository.Repository
	bus      Bus
	channel  string
	deviceID string
	logger   *zap.Logger
	closers  []func() error

	wg sync.WaitGroup
}

// New 基于仓储与变更总线创建 Store；closers 在 Close 时依次调用
func New(repo *repository.Repository, bus Bus, channel, deviceID string, logger *zap.Logger, closers ...func() error) Store {
	return &remoteStore{
		repo:     repo,
		bus:      bus,
		channel:  channel,
		deviceID: deviceID,
		logger:   logger,
		closers:  closers,
	}
}

func (s *remoteStore) by() *string {
	if s.deviceID == "" {
		return nil
	}
	id := s.deviceID
	return &id
}

// publish 广播变更；失败只告警，数据已落库
func (s *remoteStore) publish(ctx context.Context, kind, runID string) {
	raw, err := json.Marshal(Event{Kind: kind, RunID: runID})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, s.channel, raw); err != nil {
		s.logger.Warn("广播变更失败",
			zap.String("kind", kind),
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}
}

// ────────────────────── 写操作 ──────────────────────

func (s *remoteStore) UpsertRun(ctx context.Context, run production.Run) error {
	doc := model.NewRun(run)
	doc.Stamp(s.deviceID, true)
	if err := s.repo.Run.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("保存批次文档失败: %w", err)
	}
	s.publish(ctx, KindRun, run.ID)
	return nil
}

func (s *remoteStore) DeleteRun(ctx context.Context, runID string) error {
	if err := s.repo.Run.Delete(ctx, runID); err != nil {
		return fmt.Errorf("删除批次文档失败: %w", err)
	}
	s.publish(ctx, KindRun, runID)
	return nil
}

func (s *remoteStore) SetPointer(ctx context.Context, runID string) error {
	if err := s.repo.Pointer.Set(ctx, runID, time.Now(), s.by()); err != nil {
		return fmt.Errorf("更新当前批次指针失败: %w", err)
	}
	s.publish(ctx, KindPointer, runID)
	return nil
}

func (s *remoteStore) AddPartial(ctx context.Context, runID string, p production.Partial) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		doc := model.NewPartial(runID, p)
		doc.Stamp(s.deviceID, true)
		if err := tx.Partial.Create(ctx, doc); err != nil {
			return err
		}
		return tx.Run.Touch(ctx, runID, p.Timestamp, s.by())
	})
	if err != nil {
		return fmt.Errorf("写入班次记录失败: %w", err)
	}
	s.publish(ctx, KindPartials, runID)
	return nil
}

func (s *remoteStore) DeletePartial(ctx context.Context, runID, partialID string) error {
	if err := s.repo.Partial.Delete(ctx, runID, partialID); err != nil {
		return fmt.Errorf("删除班次记录失败: %w", err)
	}
	s.publish(ctx, KindPartials, runID)
	return nil
}

func (s *remoteStore) DeletePartials(ctx context.Context, runID string) error {
	n, err := s.repo.Partial.DeleteByRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("删除批次班次记录失败: %w", err)
	}
	s.logger.Debug("已删除批次班次记录", zap.String("run_id", runID), zap.Int64("count", n))
	s.publish(ctx, KindPartials, runID)
	return nil
}

// ────────────────────── 订阅 ──────────────────────

func (s *remoteStore) WatchPointer(ctx context.Context, fn func(runID string)) {
	s.watch(ctx, "pointer", func(ev Event) bool {
		return ev.Kind == KindPointer
	}, func(ctx context.Context) error {
		p, err := s.repo.Pointer.Get(ctx)
		if err != nil {
			return err
		}
		if ctx.Err() == nil {
			fn(p.RunID)
		}
		return nil
	})
}

func (s *remoteStore) WatchRun(ctx context.Context, runID string, fn func(run *production.Run)) {
	s.watch(ctx, "run:"+runID, func(ev Event) bool {
		return ev.Kind == KindRun && ev.RunID == runID
	}, func(ctx context.Context) error {
		doc, err := s.repo.Run.GetByID(ctx, runID)
		if err != nil {
			return err
		}
		var run *production.Run
		if doc != nil {
			r := doc.Domain()
			run = &r
		}
		if ctx.Err() == nil {
			fn(run)
		}
		return nil
	})
}

func (s *remoteStore) WatchPartials(ctx context.Context, runID string, fn func(partials []production.Partial)) {
	s.watch(ctx, "partials:"+runID, func(ev Event) bool {
		return ev.Kind == KindPartials && ev.RunID == runID
	}, func(ctx context.Context) error {
		docs, err := s.repo.Partial.ListByRun(ctx, runID)
		if err != nil {
			return err
		}
		partials := make([]production.Partial, 0, len(docs))
		for i := range docs {
			partials = append(partials, docs[i].Domain())
		}
		if ctx.Err() == nil {
			fn(partials)
		}
		return nil
	})
}

// watch 订阅总线 → 首次读取 → 每个匹配事件重新读取；订阅断开后自动重连并重新读取
func (s *remoteStore) watch(ctx context.Context, name string, match func(Event) bool, deliver func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		log := s.logger.With(zap.String("watch", name))
		for ctx.Err() == nil {
			events, err := s.bus.Subscribe(ctx, s.channel)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Warn("订阅变更失败，稍后重试", zap.Error(err))
				}
				if !sleepCtx(ctx, resubscribeDelay) {
					return
				}
				continue
			}

			if err := deliver(ctx); err != nil && ctx.Err() == nil {
				log.Warn("读取远端文档失败", zap.Error(err))
			}

			for raw := range events {
				var ev Event
				if err := json.Unmarshal(raw, &ev); err != nil {
					log.Warn("无法解析变更事件", zap.Error(err))
					continue
				}
				if !match(ev) {
					continue
				}
				if err := deliver(ctx); err != nil && ctx.Err() == nil {
					log.Warn("读取远端文档失败", zap.Error(err))
				}
			}

			if ctx.Err() == nil {
				log.Info("变更订阅已断开，准备重连")
				if !sleepCtx(ctx, resubscribeDelay) {
					return
				}
			}
		}
	}()
}

func (s *remoteStore) Close() error {
	s.wg.Wait()
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sleepCtx 等待 d；ctx 先取消时返回 false
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
