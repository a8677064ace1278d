package model

import (
	"time"

	"prodline/internal/production"
)

// Partial 班次产量记录表，对应 partials
// ts_ms 为毫秒时间戳，用于排序与展示
type Partial struct {
	PartialID   string `gorm:"type:varchar(64);primaryKey"                                      json:"partial_id"`
	RunID       string `gorm:"type:varchar(200);not null;index:idx_partials_run_ts,priority:1"  json:"run_id"`
	Shift       string `gorm:"type:varchar(50);not null"                                        json:"shift"`
	Operator    string `gorm:"type:varchar(100);not null"                                       json:"operator"`
	ShiftTarget int64  `gorm:"not null"                                                         json:"shift_target"`
	Produced    int64  `gorm:"not null;default:0"                                               json:"produced"`
	TsMs        int64  `gorm:"column:ts_ms;not null;index:idx_partials_run_ts,priority:2"       json:"ts_ms"`
	BaseModel
}

// TableName 指定表名
func (Partial) TableName() string { return "partials" }

// NewPartial 由领域对象构建远端文档
func NewPartial(runID string, p production.Partial) *Partial {
	return &Partial{
		PartialID:   p.ID,
		RunID:       runID,
		Shift:       p.Shift,
		Operator:    p.Operator,
		ShiftTarget: p.ShiftTarget,
		Produced:    p.Produced,
		TsMs:        p.Timestamp.UnixMilli(),
		BaseModel: BaseModel{
			CreatedAt: p.Timestamp,
			UpdatedAt: p.Timestamp,
		},
	}
}

// Domain 转换为领域对象
func (m *Partial) Domain() production.Partial {
	return production.Partial{
		ID:          m.PartialID,
		Shift:       m.Shift,
		Operator:    m.Operator,
		ShiftTarget: m.ShiftTarget,
		Produced:    m.Produced,
		Timestamp:   time.UnixMilli(m.TsMs),
	}
}
