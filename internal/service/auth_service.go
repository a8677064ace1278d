package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"prodline/internal/dto"
	"prodline/pkg/jwt"
)

var ErrTokenRevokeFail = errors.New("令牌吊销失败")

// TokenBlacklist 令牌吊销存储（pkg/redis 实现，可为 nil）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService 设备认证业务接口
//
// 设计说明：
//   - 设备匿名登录，不存在账号与密码
//   - 未配置 Redis 时注销只让客户端丢弃令牌，服务端不做吊销
type AuthService interface {
	AnonymousLogin(ctx context.Context, req *dto.AnonymousLoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, claims *jwt.Claims) error
}

type authService struct {
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(jwtMgr *jwt.Manager, blacklist TokenBlacklist, logger *zap.Logger) AuthService {
	return &authService{
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *authService) AnonymousLogin(_ context.Context, req *dto.AnonymousLoginRequest) (*dto.TokenResponse, error) {
	token, claims, err := s.jwtMgr.IssueDeviceToken(req.DeviceID)
	if err != nil {
		s.logger.Error("签发设备令牌失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("设备匿名登录", zap.String("device_id", claims.DeviceID))

	return &dto.TokenResponse{
		Token:     token,
		DeviceID:  claims.DeviceID,
		ExpiresIn: int(s.jwtMgr.TTL().Seconds()),
	}, nil
}

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist == nil || claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("吊销设备令牌失败", zap.String("device_id", claims.DeviceID), zap.Error(err))
		return ErrTokenRevokeFail
	}
	s.logger.Info("设备令牌已吊销", zap.String("device_id", claims.DeviceID))
	return nil
}
