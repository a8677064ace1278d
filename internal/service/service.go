package service

import (
	"go.uber.org/zap"

	"prodline/config"
	"prodline/internal/repository"
	"prodline/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Tracker TrackerService
	Report  ReportService
	Auth    AuthService
}

// NewService 创建 Service 聚合；blacklist 可为 nil
func NewService(
	cfg *config.Config,
	snapshots repository.SnapshotRepository,
	mirror RemoteMirror,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	tracker := NewTrackerService(snapshots, mirror, logger.Named("tracker"))
	return &Service{
		Tracker: tracker,
		Report:  NewReportService(tracker, &cfg.Report, logger.Named("report")),
		Auth:    NewAuthService(jwtMgr, blacklist, logger.Named("auth")),
	}
}
