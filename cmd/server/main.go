package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prodline/config"
	"prodline/internal/api/handler"
	"prodline/internal/api/router"
	"prodline/internal/cloudsync"
	"prodline/internal/docstore"
	"prodline/internal/repository"
	"prodline/internal/service"
	"prodline/pkg/jwt"
	applogger "prodline/pkg/logger"
	"prodline/pkg/redis"
	"prodline/pkg/slotstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("PRODLINE_CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, cfg.Auth.DeviceID)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()

	// 3. 打开本地槽位（最后关闭）
	slots, err := slotstore.Open(&cfg.Local, logger.Named("slotstore"))
	if err != nil {
		return err
	}
	defer func() {
		if err := slots.Close(); err != nil {
			logger.Error("关闭本地存储失败", zap.Error(err))
		}
	}()

	// 3.1 设备标识：配置优先，否则沿用本地保存的标识
	deviceID := cfg.Auth.DeviceID
	if deviceID == "" {
		deviceID, err = repository.DeviceID(slots, uuid.NewString)
		if err != nil {
			return fmt.Errorf("读取设备标识失败: %w", err)
		}
		logger = logger.With(zap.String("device_id", deviceID))
	}

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("sync_enabled", cfg.Sync.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. 连接 Redis（可选：失败时降级运行，令牌吊销与限流不可用）
	var (
		rdb       *redis.Client
		blacklist service.TokenBlacklist
	)
	rdb, err = redis.NewClient(ctx, &cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，令牌吊销与限流将不可用", zap.Error(err))
		rdb = nil
	} else {
		blacklist = rdb
		defer rdb.Close()
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: 本地存储 → 同步器 → Service → Handler
	snapshots := repository.NewSnapshotRepo(slots, logger.Named("local"))
	outbox := cloudsync.NewOutbox(logger.Named("outbox"))
	syncer := cloudsync.NewSyncer(outbox, cfg.Sync.Enabled, cfg.Sync.Authoritative, logger.Named("sync"))
	svc := service.NewService(cfg, snapshots, syncer, jwtMgr, blacklist, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger.Named("http"))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // PDF 导出含图表渲染
		IdleTimeout:  60 * time.Second,
	}

	// 8. 启动会话循环、出站队列、远端连接器与 HTTP 服务器
	// 会话循环与出站队列在 HTTP 服务器关闭后才停止，保证进行中的请求能完成
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return svc.Tracker.Run(loopCtx) })
	g.Go(func() error { return outbox.Run(loopCtx) })

	if cfg.Sync.Enabled {
		connector := cloudsync.NewConnector(
			docstore.NewDialer(cfg, logger.Named("docstore")),
			syncer,
			jwtMgr,
			deviceID,
			cfg.Sync.RetryInterval,
			logger.Named("connector"),
		)
		g.Go(func() error { return connector.Run(gctx) })
	} else {
		logger.Info("远端同步未启用，仅使用本地存储")
	}

	g.Go(func() error {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 服务器异常: %w", err)
		}
		return nil
	})

	// 9. 收到信号后优雅关闭
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("收到关闭信号，开始优雅关闭...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("服务器关闭异常", zap.Error(err))
		}
		stopLoop()
		return nil
	})

	err = g.Wait()

	// 取消订阅并关闭远端连接
	if cerr := syncer.Close(); cerr != nil {
		logger.Warn("关闭远端连接失败", zap.Error(cerr))
	}

	logger.Info("服务器已关闭")
	return err
}
