package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prodline/internal/model"
)

// RunRepository 批次文档数据访问接口
type RunRepository interface {
	// GetByID 查询批次；不存在时返回 (nil, nil)
	GetByID(ctx context.Context, runID string) (*model.Run, error)
	// Upsert 不存在则创建，存在则覆盖属性与更新时间（保留创建信息）
	Upsert(ctx context.Context, run *model.Run) error
	Touch(ctx context.Context, runID string, at time.Time, by *string) error
	Delete(ctx context.Context, runID string) error
}

type runRepo struct {
	db *gorm.DB
}

// NewRunRepo 创建 RunRepository 实例
func NewRunRepo(db *gorm.DB) RunRepository {
	return &runRepo{db: db}
}

func (r *runRepo) GetByID(ctx context.Context, runID string) (*model.Run, error) {
	var run model.Run
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *runRepo) Upsert(ctx context.Context, run *model.Run) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"flavor", "format", "target", "updated_at", "updated_by"}),
		}).
		Create(run).Error
}

func (r *runRepo) Touch(ctx context.Context, runID string, at time.Time, by *string) error {
	return r.db.WithContext(ctx).
		Model(&model.Run{}).
		Where("run_id = ?", runID).
		Updates(map[string]interface{}{
			"updated_at": at,
			"updated_by": by,
		}).Error
}

func (r *runRepo) Delete(ctx context.Context, runID string) error {
	return r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Delete(&model.Run{}).Error
}
