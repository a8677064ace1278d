package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"prodline/pkg/jwt"
	"prodline/pkg/response"
)

// 注入 gin.Context 的键
const (
	ContextDeviceID = "device_id"
	ContextClaims   = "claims"
)

// TokenChecker 令牌吊销查询（pkg/redis 实现）
type TokenChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// DeviceAuth 设备令牌认证中间件
// 从 Authorization: Bearer <token> 中提取并验证设备令牌；
// checker 为 nil 或 Redis 出错时跳过吊销检查（降级放行）
func DeviceAuth(jwtMgr *jwt.Manager, checker TokenChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if checker != nil {
			revoked, err := checker.IsBlacklisted(c.Request.Context(), claims.ID)
			if err == nil && revoked {
				response.Unauthorized(c, 10002, "Token 已注销")
				c.Abort()
				return
			}
		}

		c.Set(ContextDeviceID, claims.DeviceID)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}
