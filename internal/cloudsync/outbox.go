// Package cloudsync 本地批次与远端共享文档之间的同步策略。
//
// 出站操作经 Outbox 串行执行；入站变更由 Syncer 的订阅转交给 Sink，
// 由会话循环用纯函数对账。远端从未就绪时一切照常在本地运行。
package cloudsync

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"prodline/internal/docstore"
	pkgerrors "prodline/pkg/errors"
)

// ErrOutboxClosed 进程退出时仍未执行的操作返回此错误
var ErrOutboxClosed = errors.New("同步队列已关闭")

// OpFunc 一个出站操作
type OpFunc func(ctx context.Context, store docstore.Store) error

type op struct {
	name string
	fn   OpFunc
	done chan error // 容量 1，可能无人接收
}

// Outbox 出站操作 FIFO 队列。
// 远端就绪前操作只入队；Open 之后由单个 worker 按提交顺序逐个执行，
// 单个操作失败只记录日志，不影响后续操作。
type Outbox struct {
	mu      sync.Mutex
	queue   []op
	store   docstore.Store
	lastErr error

	wake   chan struct{}
	logger *zap.Logger
}

// NewOutbox 创建出站队列，需另行调用 Run 启动 worker
func NewOutbox(logger *zap.Logger) *Outbox {
	return &Outbox{
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Submit 提交操作；返回的通道在操作执行后收到其结果
func (o *Outbox) Submit(name string, fn OpFunc) <-chan error {
	done := make(chan error, 1)
	o.mu.Lock()
	o.queue = append(o.queue, op{name: name, fn: fn, done: done})
	o.mu.Unlock()
	o.signal()
	return done
}

// Open 远端就绪：绑定 store 并开始排空队列
func (o *Outbox) Open(store docstore.Store) {
	o.mu.Lock()
	o.store = store
	o.mu.Unlock()
	o.signal()
}

// Flush 等待此前提交的所有操作执行完毕
func (o *Outbox) Flush(ctx context.Context) error {
	done := o.Submit("flush", func(context.Context, docstore.Store) error { return nil })
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len 待执行操作数
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// LastError 最近一次失败的操作错误
func (o *Outbox) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// next 取出队首操作；远端未就绪或队列为空时返回 false
func (o *Outbox) next() (op, docstore.Store, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.store == nil || len(o.queue) == 0 {
		return op{}, nil, false
	}
	head := o.queue[0]
	o.queue[0] = op{}
	o.queue = o.queue[1:]
	return head, o.store, true
}

// Run worker 主循环，ctx 取消时丢弃剩余操作并返回
func (o *Outbox) Run(ctx context.Context) error {
	for {
		for {
			next, store, ok := o.next()
			if !ok {
				break
			}
			o.exec(ctx, next, store)
			if ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			o.drop()
			return nil
		case <-o.wake:
		}
	}
}

func (o *Outbox) exec(ctx context.Context, next op, store docstore.Store) {
	err := next.fn(ctx, store)
	if err != nil {
		err = pkgerrors.Remote(next.name, err)
		o.mu.Lock()
		o.lastErr = err
		o.mu.Unlock()
		o.logger.Warn("远端同步操作失败", zap.String("op", next.name), zap.Error(err))
	}
	next.done <- err
}

func (o *Outbox) drop() {
	o.mu.Lock()
	pending := o.queue
	o.queue = nil
	o.mu.Unlock()

	if len(pending) > 0 {
		o.logger.Warn("进程退出，丢弃未同步的操作", zap.Int("count", len(pending)))
	}
	for _, p := range pending {
		p.done <- ErrOutboxClosed
	}
}
