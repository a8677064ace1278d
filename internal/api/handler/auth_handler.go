package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"prodline/internal/dto"
	"prodline/internal/service"
	"prodline/pkg/response"
)

// AuthHandler 设备认证 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// AnonymousLogin 设备匿名登录，请求体可为空
// POST /api/v1/auth/anonymous
func (h *AuthHandler) AnonymousLogin(c *gin.Context) {
	var req dto.AnonymousLoginRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	result, err := h.authSvc.AnonymousLogin(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// Logout 注销当前设备令牌
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), claims); err != nil {
		if errors.Is(err, service.ErrTokenRevokeFail) {
			response.ServiceUnavailable(c, 11002, "令牌吊销失败，请稍后重试")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}
