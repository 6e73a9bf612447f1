package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrInvalidToken 令牌无效或已过期
	ErrInvalidToken = errors.New("invalid token")
	// ErrRevokedToken 令牌已注销
	ErrRevokedToken = errors.New("token revoked")
)

const (
	revokedKeyPrefix     = "auth:revoked:"
	revokedUserKeyPrefix = "auth:revoked_user:"
)

// Config 令牌签发配置
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims 访问令牌声明
type Claims struct {
	UserID    int64  `json:"uid"`
	Role      string `json:"role"`
	CompanyID *int64 `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// Manager 签发、解析与注销JWT
type Manager struct {
	cfg         Config
	redisClient *redis.Client
	now         func() time.Time
}

// NewManager 创建令牌管理器
func NewManager(cfg Config, redisClient *redis.Client) *Manager {
	return &Manager{cfg: cfg, redisClient: redisClient, now: time.Now}
}

// Issue 为用户签发令牌，返回令牌和过期时间
func (m *Manager) Issue(userID int64, role string, companyID *int64) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.cfg.TTL)
	claims := Claims{
		UserID:    userID,
		Role:      role,
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.cfg.Issuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse 校验签名、有效期与注销状态
func (m *Manager) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(m.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	revoked, err := m.redisClient.Exists(ctx, revokedKeyPrefix+claims.ID).Result()
	if err != nil {
		return nil, fmt.Errorf("查询令牌注销状态失败: %w", err)
	}
	if revoked > 0 {
		return nil, ErrRevokedToken
	}

	// 用户级注销：早于注销时间签发的令牌全部失效
	since, err := m.redisClient.Get(ctx, fmt.Sprintf("%s%d", revokedUserKeyPrefix, claims.UserID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("查询令牌注销状态失败: %w", err)
	}
	if err == nil && claims.IssuedAt != nil && claims.IssuedAt.Unix() < since {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Revoke 注销令牌，记录保留到令牌原本的过期时间
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(m.now())
	}
	if ttl <= 0 {
		return nil
	}
	return m.redisClient.Set(ctx, revokedKeyPrefix+claims.ID, 1, ttl).Err()
}

// RevokeUser 注销用户在此之前签发的所有令牌
func (m *Manager) RevokeUser(ctx context.Context, userID int64) error {
	key := fmt.Sprintf("%s%d", revokedUserKeyPrefix, userID)
	return m.redisClient.Set(ctx, key, m.now().Unix(), m.cfg.TTL).Err()
}
