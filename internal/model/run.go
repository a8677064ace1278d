package model

import (
	"time"

	"prodline/internal/production"
)

// Run 生产批次表，对应 runs
// run_id 为业务键：<口味>_<规格>_<YYYY-MM-DD>
type Run struct {
	RunID  string `gorm:"type:varchar(200);primaryKey" json:"run_id"`
	Flavor string `gorm:"type:varchar(100);not null"   json:"flavor"`
	Format string `gorm:"type:varchar(50);not null"    json:"format"`
	Target int64  `gorm:"not null"                     json:"target"`
	BaseModel
}

// TableName 指定表名
func (Run) TableName() string { return "runs" }

// NewRun 由领域对象构建远端文档
func NewRun(r production.Run) *Run {
	return &Run{
		RunID:  r.ID,
		Flavor: r.Flavor,
		Format: r.Format,
		Target: r.Target,
		BaseModel: BaseModel{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
	}
}

// Domain 转换为领域对象
func (m *Run) Domain() production.Run {
	return production.Run{
		ID:        m.RunID,
		Flavor:    m.Flavor,
		Format:    m.Format,
		Target:    m.Target,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// RunPointer 当前批次指针，对应 current_run_pointer（单行）
// RunID 为空表示当前没有批次
type RunPointer struct {
	Singleton bool      `gorm:"primaryKey;default:true"              json:"-"`
	RunID     string    `gorm:"type:varchar(200);not null;default:''" json:"run_id"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"        json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(64)"                     json:"updated_by,omitempty"`
}

// TableName 指定表名
func (RunPointer) TableName() string { return "current_run_pointer" }
