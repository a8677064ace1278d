package handler

import (
	"github.com/gin-gonic/gin"

	"prodline/internal/dto"
	"prodline/internal/service"
	"prodline/pkg/response"
)

// PartialHandler 班次产量 HTTP 处理器
type PartialHandler struct {
	trackerSvc service.TrackerService
}

// NewPartialHandler 创建 PartialHandler
func NewPartialHandler(trackerSvc service.TrackerService) *PartialHandler {
	return &PartialHandler{trackerSvc: trackerSvc}
}

// ListPartials 班次记录（按时间升序，含派生指标）
// GET /api/v1/partials
func (h *PartialHandler) ListPartials(c *gin.Context) {
	partials, err := h.trackerSvc.Partials(c.Request.Context())
	if err != nil {
		handleTrackerError(c, err)
		return
	}

	response.OK(c, gin.H{"list": partials})
}

// AddPartial 录入班次产量
// POST /api/v1/partials
func (h *PartialHandler) AddPartial(c *gin.Context) {
	var req dto.AddPartialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	partial, err := h.trackerSvc.AddPartial(c.Request.Context(), &req)
	if err != nil {
		handleTrackerError(c, err)
		return
	}

	response.Created(c, partial)
}

// DeletePartial 删除班次记录
// DELETE /api/v1/partials/:id?confirm=true
func (h *PartialHandler) DeletePartial(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "班次记录ID不能为空")
		return
	}
	if !requireConfirm(c) {
		return
	}

	if err := h.trackerSvc.DeletePartial(c.Request.Context(), id); err != nil {
		handleTrackerError(c, err)
		return
	}

	response.OK(c, nil)
}
