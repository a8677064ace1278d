package docstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"prodline/config"
	"prodline/internal/repository"
	"prodline/pkg/database"
	"prodline/pkg/redis"
)

// NewDialer 返回连接 PostgreSQL + Redis 的 Dialer
// 每次拨号都会执行迁移；任一步失败都会释放已建立的连接
func NewDialer(cfg *config.Config, logger *zap.Logger) Dialer {
	return func(ctx context.Context, deviceID string) (Store, error) {
		db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			return nil, err
		}

		sqlDB, err := db.DB()
		if err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			_ = database.Close(db)
			return nil, err
		}

		rdb, err := redis.NewClient(ctx, &cfg.Redis, logger)
		if err != nil {
			_ = database.Close(db)
			return nil, err
		}

		store := New(
			repository.NewRepository(db),
			rdb,
			cfg.Sync.Channel,
			deviceID,
			logger.Named("docstore"),
			rdb.Close,
			func() error { return database.Close(db) },
		)
		return store, nil
	}
}
