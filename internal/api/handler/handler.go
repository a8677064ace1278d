package handler

import "prodline/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth    *AuthHandler
	Run     *RunHandler
	Partial *PartialHandler
	Export  *ExportHandler
	Sync    *SyncHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(svc.Auth),
		Run:     NewRunHandler(svc.Tracker),
		Partial: NewPartialHandler(svc.Tracker),
		Export:  NewExportHandler(svc.Report),
		Sync:    NewSyncHandler(svc.Tracker),
	}
}
