package handler

import (
	"github.com/gin-gonic/gin"

	"prodline/internal/service"
	"prodline/pkg/response"
)

// SyncHandler 同步状态与健康检查
type SyncHandler struct {
	trackerSvc service.TrackerService
}

// NewSyncHandler 创建 SyncHandler
func NewSyncHandler(trackerSvc service.TrackerService) *SyncHandler {
	return &SyncHandler{trackerSvc: trackerSvc}
}

// GetStatus 远端同步状态
// GET /api/v1/sync/status
func (h *SyncHandler) GetStatus(c *gin.Context) {
	response.OK(c, h.trackerSvc.SyncStatus())
}

// Health 健康检查；远端未就绪不影响本地可用性
// GET /health
func (h *SyncHandler) Health(c *gin.Context) {
	st := h.trackerSvc.SyncStatus()
	response.OK(c, gin.H{
		"status":     "ok",
		"sync_ready": st.Ready,
		"pending":    st.Pending,
	})
}
