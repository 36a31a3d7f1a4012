// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"time"

	"unimate-go/internal/model"
	"unimate-go/internal/repository"
	"unimate-go/pkg/apperr"
	"unimate-go/pkg/hash"
	"unimate-go/pkg/token"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// AuthService 接口定义了所有与认证和用户身份相关的业务操作。
type AuthService interface {
	Register(ctx context.Context, email, password string) (*model.User, string, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, string, error)
	Refresh(ctx context.Context, refreshToken string) (string, string, error)
	GetUserByID(userID uint) (*model.User, error)
	Logout(ctx context.Context, tokenString string) error
	IsTokenRevoked(ctx context.Context, tokenString string) (bool, error)
}

// authService 是 AuthService 接口的实现。
type authService struct {
	userRepo   repository.UserRepository
	jwtManager *token.JWTManager
	rdb        *redis.Client
}

// NewAuthService 创建一个新的 AuthService 实例。
func NewAuthService(userRepo repository.UserRepository, jwtManager *token.JWTManager, rdb *redis.Client) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		rdb:        rdb,
	}
}

// Register 处理用户注册：校验输入、哈希密码、创建用户并签发令牌对。
func (s *authService) Register(_ context.Context, email, password string) (*model.User, string, string, error) {
	email = sanitizeEmail(email)
	if !validEmail(email) {
		return nil, "", "", apperr.New(apperr.KindInvalidInput, "Invalid email format")
	}
	if !validPassword(password) {
		return nil, "", "", apperr.New(apperr.KindInvalidInput,
			"Password must be at least 8 characters with at least one uppercase letter, one lowercase letter, and one number")
	}

	// 先查重，给出友好的冲突提示
	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, "", "", apperr.New(apperr.KindConflict, "User with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", apperr.Wrap(apperr.KindInternal, "Registration failed", err)
	}

	hashed, err := hash.HashPassword(password)
	if err != nil {
		return nil, "", "", apperr.Wrap(apperr.KindInternal, "Registration failed", err)
	}

	user := &model.User{
		Email:    email,
		Password: hashed,
		Role:     model.RoleStudent,
		Preferences: model.UserPreferences{
			Language: "en",
		},
	}
	if err := s.userRepo.Create(user); err != nil {
		// 并发注册同一邮箱时唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", "", apperr.New(apperr.KindConflict, "User with this email already exists")
		}
		return nil, "", "", apperr.Wrap(apperr.KindInternal, "Registration failed", err)
	}

	accessToken, refreshToken, err := s.issueTokens(user)
	if err != nil {
		return nil, "", "", err
	}
	return user, accessToken, refreshToken, nil
}

// Login 处理用户登录。
// 未知邮箱和密码错误返回同一条消息，不暴露账户是否存在。
func (s *authService) Login(_ context.Context, email, password string) (*model.User, string, string, error) {
	email = sanitizeEmail(email)

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", apperr.New(apperr.KindUnauthorized, "Invalid email or password")
		}
		return nil, "", "", apperr.Wrap(apperr.KindInternal, "Login failed", err)
	}

	if !hash.CheckPasswordHash(password, user.Password) {
		return nil, "", "", apperr.New(apperr.KindUnauthorized, "Invalid email or password")
	}

	accessToken, refreshToken, err := s.issueTokens(user)
	if err != nil {
		return nil, "", "", err
	}
	return user, accessToken, refreshToken, nil
}

// Refresh 验证 refresh token 并轮换出一对新令牌。
func (s *authService) Refresh(_ context.Context, refreshToken string) (string, string, error) {
	claims, err := s.jwtManager.VerifyRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, token.ErrMissingSecret) {
			return "", "", apperr.Wrap(apperr.KindInternal, "Server configuration error", err)
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", apperr.New(apperr.KindUnauthorized, "Refresh token expired")
		}
		return "", "", apperr.New(apperr.KindUnauthorized, "Invalid refresh token")
	}

	// 确认用户仍然存在
	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return "", "", apperr.New(apperr.KindUnauthorized, "User not found")
	}

	return s.issueTokens(user)
}

// GetUserByID 根据 ID 获取用户。
func (s *authService) GetUserByID(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindUnauthorized, "User not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to get user profile", err)
	}
	return user, nil
}

// Logout 将 access token 加入 Redis 黑名单，剩余有效期作为过期时间。
func (s *authService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return apperr.New(apperr.KindUnauthorized, "Invalid token")
	}
	expiration := time.Until(claims.ExpiresAt.Time)
	if expiration <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, "blacklist:"+tokenString, "true", expiration).Err(); err != nil {
		return apperr.Wrap(apperr.KindInternal, "Logout failed", err)
	}
	return nil
}

// IsTokenRevoked 查询 access token 是否已被登出。
func (s *authService) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	n, err := s.rdb.Exists(ctx, "blacklist:"+tokenString).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *authService) issueTokens(user *model.User) (string, string, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindInternal, "Server configuration error", err)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindInternal, "Server configuration error", err)
	}
	return accessToken, refreshToken, nil
}
