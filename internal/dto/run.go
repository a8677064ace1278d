package dto

// ── 批次与班次 DTO ──

// SaveRunRequest 保存批次目标
type SaveRunRequest struct {
	Flavor string `json:"flavor" binding:"required,max=100"`
	Format string `json:"format" binding:"required,max=50"`
	Target int64  `json:"target" binding:"required,gt=0"` // 瓶
}

// AddPartialRequest 录入班次产量
type AddPartialRequest struct {
	Shift       string `json:"shift"        binding:"required,max=50"`
	Operator    string `json:"operator"     binding:"required,max=100"`
	ShiftTarget int64  `json:"shift_target" binding:"required,gt=0"` // 箱
	Produced    *int64 `json:"produced"     binding:"required,gte=0"` // 瓶，允许 0
}
