package dto

// ── 设备认证 DTO ──

// AnonymousLoginRequest 匿名登录请求
// DeviceID 为空时服务端生成新的设备标识
type AnonymousLoginRequest struct {
	DeviceID string `json:"device_id" binding:"omitempty,max=64"`
}
