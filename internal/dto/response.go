package dto

import "prodline/internal/cloudsync"

// ── 认证响应 ──

// TokenResponse 设备令牌响应
type TokenResponse struct {
	Token     string `json:"token"`
	DeviceID  string `json:"device_id"`
	ExpiresIn int    `json:"expires_in"` // 秒
}

// ── 批次响应 ──

// RunResponse 批次信息
type RunResponse struct {
	RunID     string `json:"run_id"`
	Flavor    string `json:"flavor"`
	Format    string `json:"format"`
	Target    int64  `json:"target"`
	CreatedAt int64  `json:"created_at"` // 毫秒
	UpdatedAt int64  `json:"updated_at"`
}

// SummaryResponse 批次汇总
type SummaryResponse struct {
	Target          int64 `json:"target"`
	Accumulated     int64 `json:"accumulated"`
	Remaining       int64 `json:"remaining"`
	ProgressPercent int   `json:"progress_percent"`
}

// PartialResponse 班次记录（含派生指标）
type PartialResponse struct {
	PartialID     string  `json:"partial_id"`
	Ts            int64   `json:"ts"` // 毫秒
	Shift         string  `json:"shift"`
	Operator      string  `json:"operator"`
	ShiftTarget   int64   `json:"shift_target"`
	Produced      int64   `json:"produced"`
	Cases         float64 `json:"cases"`
	CompletionPct int     `json:"completion_pct"`
	OnTrack       bool    `json:"on_track"`
}

// RunStateResponse 当前会话完整状态
type RunStateResponse struct {
	Run       *RunResponse      `json:"run"`
	Summary   SummaryResponse   `json:"summary"`
	Partials  []PartialResponse `json:"partials"`
	LastShift string            `json:"last_shift,omitempty"`
	Sync      cloudsync.Status  `json:"sync"`
}

// LastShiftResponse 上次使用的班次
type LastShiftResponse struct {
	Shift string `json:"shift"`
}
