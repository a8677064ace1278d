package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 远端文档仓储的聚合入口
type Repository struct {
	db      *gorm.DB
	Run     RunRepository
	Partial PartialRepository
	Pointer PointerRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:      db,
		Run:     NewRunRepo(db),
		Partial: NewPartialRepo(db),
		Pointer: NewPointerRepo(db),
	}
}

// Transaction 在同一事务内执行 fn，fn 返回错误时回滚
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
