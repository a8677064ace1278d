package repository

import (
	"context"

	"gorm.io/gorm"

	"prodline/internal/model"
)

// PartialRepository 班次记录数据访问接口
type PartialRepository interface {
	Create(ctx context.Context, partial *model.Partial) error
	// ListByRun 按 ts_ms 升序返回批次下全部记录
	ListByRun(ctx context.Context, runID string) ([]model.Partial, error)
	Delete(ctx context.Context, runID, partialID string) error
	DeleteByRun(ctx context.Context, runID string) (int64, error)
}

type partialRepo struct {
	db *gorm.DB
}

// NewPartialRepo 创建 PartialRepository 实例
func NewPartialRepo(db *gorm.DB) PartialRepository {
	return &partialRepo{db: db}
}

func (r *partialRepo) Create(ctx context.Context, partial *model.Partial) error {
	return r.db.WithContext(ctx).Create(partial).Error
}

func (r *partialRepo) ListByRun(ctx context.Context, runID string) ([]model.Partial, error) {
	var partials []model.Partial
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("ts_ms ASC").
		Order("created_at ASC").
		Find(&partials).Error
	return partials, err
}

func (r *partialRepo) Delete(ctx context.Context, runID, partialID string) error {
	return r.db.WithContext(ctx).
		Where("run_id = ? AND partial_id = ?", runID, partialID).
		Delete(&model.Partial{}).Error
}

func (r *partialRepo) DeleteByRun(ctx context.Context, runID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Delete(&model.Partial{})
	return result.RowsAffected, result.Error
}
