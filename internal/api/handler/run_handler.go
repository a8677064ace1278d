package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"prodline/internal/dto"
	"prodline/internal/service"
	pkgerrors "prodline/pkg/errors"
	"prodline/pkg/response"
)

// RunHandler 批次模块 HTTP 处理器
type RunHandler struct {
	trackerSvc service.TrackerService
}

// NewRunHandler 创建 RunHandler
func NewRunHandler(trackerSvc service.TrackerService) *RunHandler {
	return &RunHandler{trackerSvc: trackerSvc}
}

// GetState 获取当前批次、汇总、班次列表与同步状态
// GET /api/v1/run
func (h *RunHandler) GetState(c *gin.Context) {
	state, err := h.trackerSvc.State(c.Request.Context())
	if err != nil {
		handleTrackerError(c, err)
		return
	}

	response.OK(c, state)
}

// SaveRun 创建或更新批次目标
// PUT /api/v1/run
func (h *RunHandler) SaveRun(c *gin.Context) {
	var req dto.SaveRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	state, err := h.trackerSvc.SaveRun(c.Request.Context(), &req)
	if err != nil {
		handleTrackerError(c, err)
		return
	}

	response.OK(c, state)
}

// ResetRun 重置批次（清空目标与全部班次记录）
// DELETE /api/v1/run?confirm=true
func (h *RunHandler) ResetRun(c *gin.Context) {
	if !requireConfirm(c) {
		return
	}

	if err := h.trackerSvc.Reset(c.Request.Context()); err != nil {
		handleTrackerError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetSummary 获取批次汇总
// GET /api/v1/run/summary
func (h *RunHandler) GetSummary(c *gin.Context) {
	summary, err := h.trackerSvc.Summary(c.Request.Context())
	if err != nil {
		handleTrackerError(c, err)
		return
	}

	response.OK(c, summary)
}

// GetLastShift 获取上次使用的班次
// GET /api/v1/preferences/last-shift
func (h *RunHandler) GetLastShift(c *gin.Context) {
	response.OK(c, dto.LastShiftResponse{Shift: h.trackerSvc.LastShift(c.Request.Context())})
}

// handleTrackerError 批次与班次操作的错误映射
func handleTrackerError(c *gin.Context, err error) {
	var ve *pkgerrors.ValidationError
	switch {
	case errors.As(err, &ve):
		response.BadRequest(c, 10001, ve.Error())
	case errors.Is(err, pkgerrors.ErrPrecondition):
		response.Conflict(c, 20001, err.Error())
	case errors.Is(err, service.ErrPartialNotFound):
		response.NotFound(c, 20004, "班次记录不存在")
	case errors.Is(err, pkgerrors.ErrRemoteUnavailable):
		response.BadGateway(c, 20003, "远端保存失败，本地数据已保留", err.Error())
	case errors.Is(err, service.ErrTrackerStopped):
		response.ServiceUnavailable(c, 50001, "服务正在关闭")
	default:
		response.InternalError(c)
	}
}
