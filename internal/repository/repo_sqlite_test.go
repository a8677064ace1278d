package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"prodline/internal/model"
	"prodline/internal/production"
)

// newTestRepo 每个测试使用独立的内存 SQLite
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开 SQLite 失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Run{}, &model.Partial{}, &model.RunPointer{}); err != nil {
		t.Fatalf("AutoMigrate 失败: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewRepository(db)
}

var t0 = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func TestRunRepo_UpsertKeepsCreatedAt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run := model.NewRun(production.Run{
		ID: "Cola_500ml_2026-10-19", Flavor: "Cola", Format: "500ml", Target: 1000,
		CreatedAt: t0, UpdatedAt: t0,
	})
	run.Stamp("dev-a", true)
	if err := repo.Run.Upsert(ctx, run); err != nil {
		t.Fatalf("Upsert 创建失败: %v", err)
	}

	later := t0.Add(time.Hour)
	upd := model.NewRun(production.Run{
		ID: "Cola_500ml_2026-10-19", Flavor: "Cola", Format: "500 ml", Target: 2000,
		CreatedAt: later, UpdatedAt: later,
	})
	upd.Stamp("dev-b", false)
	if err := repo.Run.Upsert(ctx, upd); err != nil {
		t.Fatalf("Upsert 更新失败: %v", err)
	}

	got, err := repo.Run.GetByID(ctx, "Cola_500ml_2026-10-19")
	if err != nil || got == nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if got.Target != 2000 || got.Format != "500 ml" {
		t.Errorf("属性未更新: %+v", got)
	}
	if !got.CreatedAt.Equal(t0) {
		t.Errorf("创建时间不应被覆盖，期望 %v，实际 %v", t0, got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("更新时间不符，期望 %v，实际 %v", later, got.UpdatedAt)
	}
	if got.CreatedBy == nil || *got.CreatedBy != "dev-a" {
		t.Errorf("创建人应保留为 dev-a")
	}
	if got.UpdatedBy == nil || *got.UpdatedBy != "dev-b" {
		t.Errorf("更新人应为 dev-b")
	}
}

func TestRunRepo_GetMissingReturnsNil(t *testing.T) {
	repo := newTestRepo(t)
	got, err := repo.Run.GetByID(context.Background(), "nope")
	if err != nil || got != nil {
		t.Errorf("不存在的批次应返回 (nil, nil)，实际 %+v, %v", got, err)
	}
}

func TestPartialRepo_ListOrderedAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	runID := "R1"

	for i, ts := range []time.Time{t0.Add(2 * time.Hour), t0, t0.Add(time.Hour)} {
		p := model.NewPartial(runID, production.Partial{
			ID: fmt.Sprintf("p%d", i), Shift: "A", Operator: "Ana",
			ShiftTarget: 10, Produced: int64(100 * (i + 1)), Timestamp: ts,
		})
		if err := repo.Partial.Create(ctx, p); err != nil {
			t.Fatalf("Create 失败: %v", err)
		}
	}
	other := model.NewPartial("R2", production.Partial{ID: "x", Shift: "B", Operator: "Bo", ShiftTarget: 1, Timestamp: t0})
	if err := repo.Partial.Create(ctx, other); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}

	list, err := repo.Partial.ListByRun(ctx, runID)
	if err != nil {
		t.Fatalf("ListByRun 失败: %v", err)
	}
	want := []string{"p1", "p2", "p0"}
	if len(list) != len(want) {
		t.Fatalf("期望 %d 条，实际 %d 条", len(want), len(list))
	}
	for i := range want {
		if list[i].PartialID != want[i] {
			t.Errorf("位置 %d 期望 %s，实际 %s", i, want[i], list[i].PartialID)
		}
	}
	if !list[0].Domain().Timestamp.Equal(t0) {
		t.Errorf("毫秒时间戳转换不符: %v", list[0].Domain().Timestamp)
	}

	if err := repo.Partial.Delete(ctx, runID, "p1"); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	n, err := repo.Partial.DeleteByRun(ctx, runID)
	if err != nil || n != 2 {
		t.Errorf("DeleteByRun 期望删除 2 条，实际 %d, %v", n, err)
	}
	rest, _ := repo.Partial.ListByRun(ctx, "R2")
	if len(rest) != 1 {
		t.Error("其他批次的记录不应被删除")
	}
}

func TestPointerRepo_SetAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p, err := repo.Pointer.Get(ctx)
	if err != nil || p.RunID != "" {
		t.Fatalf("初始指针应为空，实际 %+v, %v", p, err)
	}

	if err := repo.Pointer.Set(ctx, "R1", t0, nil); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}
	if err := repo.Pointer.Set(ctx, "R2", t0.Add(time.Minute), nil); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}
	p, err = repo.Pointer.Get(ctx)
	if err != nil || p.RunID != "R2" {
		t.Errorf("指针应为 R2，实际 %+v, %v", p, err)
	}

	if err := repo.Pointer.Set(ctx, "", t0.Add(2*time.Minute), nil); err != nil {
		t.Fatalf("清空指针失败: %v", err)
	}
	p, _ = repo.Pointer.Get(ctx)
	if p.RunID != "" {
		t.Errorf("指针应被清空，实际 %s", p.RunID)
	}
}

func TestRepository_TransactionRollback(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.Transaction(ctx, func(tx *Repository) error {
		p := model.NewPartial("R1", production.Partial{ID: "p1", Shift: "A", Operator: "Ana", ShiftTarget: 1, Timestamp: t0})
		if err := tx.Partial.Create(ctx, p); err != nil {
			return err
		}
		return fmt.Errorf("中止")
	})
	if err == nil {
		t.Fatal("期望事务返回错误")
	}

	list, _ := repo.Partial.ListByRun(ctx, "R1")
	if len(list) != 0 {
		t.Error("回滚后不应留下记录")
	}
}
