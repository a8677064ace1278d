package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"prodline/config"
	"prodline/internal/production"
	"prodline/internal/report"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成报表失败")

// SnapshotSource 报表数据来源（TrackerService 或本地槽位）
type SnapshotSource interface {
	Snapshot(ctx context.Context) (production.Snapshot, error)
}

// ReportService 导出业务接口
//
// 设计说明：
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置下载响应头
//   - logo 缺失只记录告警，报表照常生成；图表或文档生成失败则整体失败
type ReportService interface {
	// ExportPDF 导出 A4 生产报表
	ExportPDF(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportXLSX 导出班次明细 Excel
	ExportXLSX(ctx context.Context) (*bytes.Buffer, string, error)
}

type reportService struct {
	source SnapshotSource
	cfg    *config.ReportConfig
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewReportService 创建 ReportService 实例
func NewReportService(source SnapshotSource, cfg *config.ReportConfig, logger *zap.Logger) ReportService {
	return &reportService{
		source: source,
		cfg:    cfg,
		loc:    time.Local,
		now:    time.Now,
		logger: logger,
	}
}

func (s *reportService) document(ctx context.Context) (report.Document, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return report.Document{}, err
	}
	return report.Build(snap), nil
}

func (s *reportService) ExportPDF(ctx context.Context) (*bytes.Buffer, string, error) {
	doc, err := s.document(ctx)
	if err != nil {
		return nil, "", err
	}

	opts := report.Options{
		Title:    s.cfg.Title,
		Footer:   s.cfg.Footer,
		Location: s.loc,
		Now:      s.now(),
	}
	if s.cfg.LogoPath != "" {
		logo, err := report.LoadLogo(s.cfg.LogoPath)
		if err != nil {
			s.logger.Warn("报表 logo 不可用，继续生成", zap.Error(err))
		} else {
			opts.Logo = logo
		}
	}

	var buf bytes.Buffer
	if err := report.RenderPDF(&buf, doc, opts); err != nil {
		s.logger.Error("生成 PDF 失败", zap.String("run_id", doc.RunID), zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}

	s.logger.Info("PDF 报表已生成",
		zap.String("run_id", doc.RunID),
		zap.Int("rows", len(doc.Rows)),
		zap.Int("bytes", buf.Len()),
	)
	return &buf, report.FileName(doc.RunID, "pdf"), nil
}

func (s *reportService) ExportXLSX(ctx context.Context) (*bytes.Buffer, string, error) {
	doc, err := s.document(ctx)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := report.RenderXLSX(&buf, doc, s.cfg.Title, s.loc); err != nil {
		s.logger.Error("生成 Excel 失败", zap.String("run_id", doc.RunID), zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}

	s.logger.Info("Excel 报表已生成",
		zap.String("run_id", doc.RunID),
		zap.Int("rows", len(doc.Rows)),
	)
	return &buf, report.FileName(doc.RunID, "xlsx"), nil
}
