package model

import "time"

// BaseModel 通用审计字段（所有远端文档嵌入）
// 时间戳由业务层写入，关闭 GORM 自动填充以保留本地创建/更新时间
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false" json:"created_at"`
	CreatedBy *string   `gorm:"type:varchar(64)"              json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(64)"              json:"updated_by,omitempty"`
}

// Stamp 以设备标识填充审计人字段；deviceID 为空时保持 NULL
func (b *BaseModel) Stamp(deviceID string, created bool) {
	if deviceID == "" {
		return
	}
	by := deviceID
	if created {
		b.CreatedBy = &by
	}
	b.UpdatedBy = &by
}
