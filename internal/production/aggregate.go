// Package production 批次（Run）与班次产量（Partial）聚合及其派生指标。
//
// Aggregate 只在会话循环内被修改，本身不加锁。
package production

import (
	"sort"
	"strings"
	"time"

	pkgerrors "prodline/pkg/errors"
)

// Run 一次生产批次
type Run struct {
	ID        string    `json:"id"`
	Flavor    string    `json:"flavor"`
	Format    string    `json:"format"`
	Target    int64     `json:"target"` // 瓶
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Partial 一个班次录入的产量
type Partial struct {
	ID          string    `json:"id"`
	Shift       string    `json:"shift"`
	Operator    string    `json:"operator"`
	ShiftTarget int64     `json:"shift_target"` // 箱
	Produced    int64     `json:"produced"`     // 瓶
	Timestamp   time.Time `json:"ts"`
}

// Summary 批次汇总（实时计算，不落库）
type Summary struct {
	Target          int64 `json:"target"`
	Accumulated     int64 `json:"accumulated"`
	Remaining       int64 `json:"remaining"`
	ProgressPercent int   `json:"progress_percent"`
}

// Aggregate 当前会话的活动批次及其班次记录（按插入顺序）
type Aggregate struct {
	run      *Run
	partials []Partial
}

// Active 是否存在活动批次
func (a *Aggregate) Active() bool { return a.run != nil }

// ActiveID 活动批次标识，无活动批次时为空
func (a *Aggregate) ActiveID() string {
	if a.run == nil {
		return ""
	}
	return a.run.ID
}

// Run 返回活动批次副本
func (a *Aggregate) Run() (Run, bool) {
	if a.run == nil {
		return Run{}, false
	}
	return *a.run, true
}

// ────────────────────── CreateOrUpdateRun ──────────────────────

// CreateOrUpdateRun 保存批次目标。
// 标识与当前批次一致时更新属性，否则以空班次列表开启新批次。
func (a *Aggregate) CreateOrUpdateRun(flavor, format string, target int64, now time.Time) (string, error) {
	flavor = strings.TrimSpace(flavor)
	format = strings.TrimSpace(format)

	if flavor == "" {
		return "", pkgerrors.NewValidation("flavor", "口味不能为空")
	}
	if format == "" {
		return "", pkgerrors.NewValidation("format", "规格不能为空")
	}
	if target <= 0 {
		return "", pkgerrors.NewValidation("target", "总目标必须大于 0")
	}

	id := RunKey(flavor, format, now)

	if a.run != nil && a.run.ID == id {
		a.run.Flavor = flavor
		a.run.Format = format
		a.run.Target = target
		a.run.UpdatedAt = now
		return id, nil
	}

	a.run = &Run{
		ID:        id,
		Flavor:    flavor,
		Format:    format,
		Target:    target,
		CreatedAt: now,
		UpdatedAt: now,
	}
	a.partials = nil
	return id, nil
}

// ────────────────────── AddPartial ──────────────────────

// AddPartial 追加班次记录，id 由调用方生成
func (a *Aggregate) AddPartial(shift, operator string, shiftTarget, produced int64, id string, now time.Time) (Partial, error) {
	if a.run == nil {
		return Partial{}, &pkgerrors.PreconditionError{Message: "请先保存批次目标"}
	}

	shift = strings.TrimSpace(shift)
	operator = strings.TrimSpace(operator)

	if shift == "" {
		return Partial{}, pkgerrors.NewValidation("shift", "班次不能为空")
	}
	if operator == "" {
		return Partial{}, pkgerrors.NewValidation("operator", "操作员不能为空")
	}
	if shiftTarget <= 0 {
		return Partial{}, pkgerrors.NewValidation("shift_target", "班次目标必须大于 0")
	}
	if produced < 0 {
		return Partial{}, pkgerrors.NewValidation("produced", "产量不能为负数")
	}

	p := Partial{
		ID:          id,
		Shift:       shift,
		Operator:    operator,
		ShiftTarget: shiftTarget,
		Produced:    produced,
		Timestamp:   now,
	}
	a.partials = append(a.partials, p)
	a.run.UpdatedAt = now
	return p, nil
}

// ────────────────────── DeletePartial ──────────────────────

// DeletePartial 删除指定班次记录，不存在时返回 false
func (a *Aggregate) DeletePartial(id string) bool {
	for i := range a.partials {
		if a.partials[i].ID == id {
			a.partials = append(a.partials[:i:i], a.partials[i+1:]...)
			return true
		}
	}
	return false
}

// ────────────────────── Reset ──────────────────────

// Reset 清空活动批次及全部班次记录
func (a *Aggregate) Reset() {
	a.run = nil
	a.partials = nil
}

// ────────────────────── 读取 ──────────────────────

// Summary 汇总目标、累计、剩余与进度
func (a *Aggregate) Summary() Summary {
	var target int64
	if a.run != nil {
		target = a.run.Target
	}

	var accumulated int64
	for _, p := range a.partials {
		accumulated += p.Produced
	}

	remaining := target - accumulated
	if remaining < 0 {
		remaining = 0
	}

	return Summary{
		Target:          target,
		Accumulated:     accumulated,
		Remaining:       remaining,
		ProgressPercent: ProgressPercent(accumulated, target),
	}
}

// OrderedPartials 按时间升序返回班次记录，时间相同保持插入顺序
func (a *Aggregate) OrderedPartials() []Partial {
	out := make([]Partial, len(a.partials))
	copy(out, a.partials)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Len 班次记录数
func (a *Aggregate) Len() int { return len(a.partials) }

// Clone 深拷贝
func (a *Aggregate) Clone() Aggregate {
	var c Aggregate
	if a.run != nil {
		r := *a.run
		c.run = &r
	}
	if a.partials != nil {
		c.partials = make([]Partial, len(a.partials))
		copy(c.partials, a.partials)
	}
	return c
}
