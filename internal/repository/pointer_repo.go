package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prodline/internal/model"
)

// PointerRepository 当前批次指针数据访问接口（单行）
type PointerRepository interface {
	// Get 读取指针；尚未写入过时返回空指针
	Get(ctx context.Context) (*model.RunPointer, error)
	Set(ctx context.Context, runID string, at time.Time, by *string) error
}

type pointerRepo struct {
	db *gorm.DB
}

// NewPointerRepo 创建 PointerRepository 实例
func NewPointerRepo(db *gorm.DB) PointerRepository {
	return &pointerRepo{db: db}
}

func (r *pointerRepo) Get(ctx context.Context) (*model.RunPointer, error) {
	var p model.RunPointer
	err := r.db.WithContext(ctx).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.RunPointer{Singleton: true}, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *pointerRepo) Set(ctx context.Context, runID string, at time.Time, by *string) error {
	p := model.RunPointer{
		Singleton: true,
		RunID:     runID,
		UpdatedAt: at,
		UpdatedBy: by,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "singleton"}},
			DoUpdates: clause.AssignmentColumns([]string{"run_id", "updated_at", "updated_by"}),
		}).
		Create(&p).Error
}
