package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prodline/config"
	"prodline/internal/api/handler"
	"prodline/internal/api/middleware"
	"prodline/pkg/jwt"
	"prodline/pkg/redis"
)

const (
	maxBodyBytes = 64 << 10

	// 每个设备每分钟的写请求上限；一条产线的录入频率远低于此
	writeLimit  = 60
	writeWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时跳过令牌吊销检查与限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	var (
		checker middleware.TokenChecker
		limiter middleware.Limiter
	)
	if rdb != nil {
		checker, limiter = rdb, rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", h.Sync.Health)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		v1.POST("/auth/anonymous", middleware.RateLimit(limiter, writeLimit, writeWindow), h.Auth.AnonymousLogin)

		// 只读接口
		v1.GET("/run", h.Run.GetState)
		v1.GET("/run/summary", h.Run.GetSummary)
		v1.GET("/partials", h.Partial.ListPartials)
		v1.GET("/preferences/last-shift", h.Run.GetLastShift)
		v1.GET("/sync/status", h.Sync.GetStatus)

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/pdf", h.Export.ExportPDF)
			export.GET("/xlsx", h.Export.ExportXLSX)
		}

		// 需要设备令牌的写接口
		authorized := v1.Group("")
		authorized.Use(middleware.DeviceAuth(jwtMgr, checker))
		authorized.Use(middleware.RateLimit(limiter, writeLimit, writeWindow))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)

			authorized.PUT("/run", h.Run.SaveRun)
			authorized.DELETE("/run", h.Run.ResetRun)

			authorized.POST("/partials", h.Partial.AddPartial)
			authorized.DELETE("/partials/:id", h.Partial.DeletePartial)
		}
	}

	return r
}
