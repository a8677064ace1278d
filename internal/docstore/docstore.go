// Package docstore 远端共享文档：批次、班次记录与当前批次指针。
//
// 写操作落库后在总线上广播变更事件；Watch 系列在订阅生效后先推送一次
// 完整内容，此后每收到相关事件就重新读取并推送，直到 ctx 取消。
package docstore

import (
	"context"

	"prodline/internal/production"
)

// 变更事件类型
const (
	KindPointer  = "pointer"
	KindRun      = "run"
	KindPartials = "partials"
)

// Event 总线上的变更通知
type Event struct {
	Kind  string `json:"kind"`
	RunID string `json:"run_id"`
}

// Store 远端文档存储
type Store interface {
	// UpsertRun 创建或覆盖批次属性（保留首次创建时间）
	UpsertRun(ctx context.Context, run production.Run) error
	DeleteRun(ctx context.Context, runID string) error
	// SetPointer 设置当前批次指针，空字符串表示没有批次
	SetPointer(ctx context.Context, runID string) error

	// AddPartial 写入班次记录并刷新批次更新时间
	AddPartial(ctx context.Context, runID string, p production.Partial) error
	DeletePartial(ctx context.Context, runID, partialID string) error
	DeletePartials(ctx context.Context, runID string) error

	// Watch 系列立即返回，回调在内部 goroutine 中执行
	WatchPointer(ctx context.Context, fn func(runID string))
	WatchRun(ctx context.Context, runID string, fn func(run *production.Run))
	WatchPartials(ctx context.Context, runID string, fn func(partials []production.Partial))

	// Close 等待所有 Watch goroutine 退出后释放连接
	Close() error
}

// Bus 变更通知总线（pkg/redis 实现）
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Dialer 建立远端连接；deviceID 写入文档的创建人/更新人
type Dialer func(ctx context.Context, deviceID string) (Store, error)
