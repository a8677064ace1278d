package handler

import (
	"github.com/gin-gonic/gin"

	"prodline/internal/api/middleware"
	"prodline/pkg/jwt"
	"prodline/pkg/response"
)

// MustGetClaims 从 Gin 上下文中安全提取设备令牌声明。
// 如果认证中间件未注入声明，返回 false 并写入 401 响应，调用方应直接 return。
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(middleware.ContextClaims)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil || claims.DeviceID == "" {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}

// requireConfirm 破坏性操作须携带 confirm=true
func requireConfirm(c *gin.Context) bool {
	if c.Query("confirm") != "true" {
		response.BadRequest(c, 20002, "该操作需要确认（confirm=true）")
		return false
	}
	return true
}
