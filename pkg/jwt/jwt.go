package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"prodline/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

const (
	issuer          = "prodline"
	tokenTypeDevice = "device"
)

// Claims 匿名设备令牌声明
type Claims struct {
	DeviceID  string `json:"device_id"`
	TokenType string `json:"token_type"` // 目前只有 "device"
	jwtv5.RegisteredClaims
}

// Manager 设备令牌管理器
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager 创建令牌管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	ttl := cfg.DeviceTokenTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
	}
}

// TTL 令牌有效期
func (m *Manager) TTL() time.Duration { return m.ttl }

// IssueDeviceToken 为设备签发匿名令牌；deviceID 为空时生成新的设备标识
func (m *Manager) IssueDeviceToken(deviceID string) (string, *Claims, error) {
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	now := time.Now()
	claims := &Claims{
		DeviceID:  deviceID,
		TokenType: tokenTypeDevice,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   deviceID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.ttl)),
			Issuer:    issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseToken 解析并验证设备令牌
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwtv5.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenTypeDevice || claims.DeviceID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
