// Package token 提供了用于生成和验证 JSON Web Tokens (JWT) 的功能。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSecret 表示签名密钥未配置，属于服务端配置错误而非凭证问题。
var ErrMissingSecret = errors.New("jwt secret is not configured")

// JWTManager 负责管理 JWT 的生成和验证。
// access token 与 refresh token 使用独立的密钥，刷新令牌无法冒充访问令牌。
type JWTManager struct {
	secretKey       []byte        // 用于签名和验证 access token 的密钥
	refreshKey      []byte        // 用于签名和验证 refresh token 的密钥
	accessTokenDur  time.Duration // access token 的有效期
	refreshTokenDur time.Duration // refresh token 的有效期
}

// CustomClaims 定义了我们想要在 JWT 中存储的自定义数据。
// 它嵌入了 jwt.RegisteredClaims 以包含标准的 JWT 声明（如过期时间）。
type CustomClaims struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
func NewJWTManager(secret, refreshSecret string, accessTokenExpireHours, refreshTokenExpireDays int) *JWTManager {
	return &JWTManager{
		secretKey:       []byte(secret),
		refreshKey:      []byte(refreshSecret),
		accessTokenDur:  time.Hour * time.Duration(accessTokenExpireHours),
		refreshTokenDur: time.Duration(refreshTokenExpireDays) * 24 * time.Hour,
	}
}

// GenerateToken 根据给定的用户信息生成一个新的 access token。
func (m *JWTManager) GenerateToken(userID uint, email, role string) (string, error) {
	if len(m.secretKey) == 0 {
		return "", ErrMissingSecret
	}
	return m.sign(userID, email, role, m.secretKey, m.accessTokenDur)
}

// GenerateRefreshToken 根据给定的用户信息生成一个新的 refresh token。
// 它的工作方式与 GenerateToken 类似，但使用独立密钥和更长的过期时间。
func (m *JWTManager) GenerateRefreshToken(userID uint, email, role string) (string, error) {
	if len(m.refreshKey) == 0 {
		return "", ErrMissingSecret
	}
	return m.sign(userID, email, role, m.refreshKey, m.refreshTokenDur)
}

func (m *JWTManager) sign(userID uint, email, role string, key []byte, dur time.Duration) (string, error) {
	claims := CustomClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(dur)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// VerifyToken 验证给定的 access token 字符串。
// 过期返回的 error 可用 errors.Is(err, jwt.ErrTokenExpired) 区分，
// 调用方据此向客户端返回不同的提示（重新登录 vs 刷新）。
func (m *JWTManager) VerifyToken(tokenString string) (*CustomClaims, error) {
	if len(m.secretKey) == 0 {
		return nil, ErrMissingSecret
	}
	return verify(tokenString, m.secretKey)
}

// VerifyRefreshToken 验证给定的 refresh token 字符串。
func (m *JWTManager) VerifyRefreshToken(tokenString string) (*CustomClaims, error) {
	if len(m.refreshKey) == 0 {
		return nil, ErrMissingSecret
	}
	return verify(tokenString, m.refreshKey)
}

func verify(tokenString string, key []byte) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
