package cloudsync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"prodline/internal/docstore"
	"prodline/pkg/jwt"
)

// Connector 在后台建立远端连接，失败按固定间隔重试，从不阻塞本地路径
type Connector struct {
	dial     docstore.Dialer
	syncer   *Syncer
	tokens   *jwt.Manager
	deviceID string
	retry    time.Duration
	logger   *zap.Logger
}

// NewConnector 创建连接器；deviceID 为空时由匿名登录生成
func NewConnector(dial docstore.Dialer, syncer *Syncer, tokens *jwt.Manager, deviceID string, retry time.Duration, logger *zap.Logger) *Connector {
	if retry <= 0 {
		retry = 15 * time.Second
	}
	return &Connector{
		dial:     dial,
		syncer:   syncer,
		tokens:   tokens,
		deviceID: deviceID,
		retry:    retry,
		logger:   logger,
	}
}

// Run 重试直到连接成功并完成 Attach，或 ctx 取消
func (c *Connector) Run(ctx context.Context) error {
	attempt := 0
	for {
		attempt++
		err := c.connect(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		c.logger.Warn("远端暂不可用，继续本地运行",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", c.retry),
			zap.Error(err),
		)

		t := time.NewTimer(c.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// connect 确认设备会话 → 拨号 → Attach
func (c *Connector) connect(ctx context.Context) error {
	deviceID, err := c.confirmSession()
	if err != nil {
		return err
	}

	store, err := c.dial(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("连接远端失败: %w", err)
	}

	if err := c.syncer.Attach(ctx, store, deviceID); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("同步器就绪失败: %w", err)
		}
		return err
	}
	return nil
}

// confirmSession 签发并校验匿名设备令牌，确认后沿用同一设备标识
func (c *Connector) confirmSession() (string, error) {
	token, _, err := c.tokens.IssueDeviceToken(c.deviceID)
	if err != nil {
		return "", fmt.Errorf("签发设备令牌失败: %w", err)
	}
	claims, err := c.tokens.ParseToken(token)
	if err != nil {
		return "", fmt.Errorf("设备会话确认失败: %w", err)
	}
	c.deviceID = claims.DeviceID
	return claims.DeviceID, nil
}
