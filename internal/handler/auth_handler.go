// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strings"

	"unimate-go/internal/service"
	"unimate-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AuthHandler 负责处理注册、登录、刷新与用户信息相关的 API 请求。
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// CredentialsRequest 定义了注册和登录 API 共用的请求体结构。
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register 处理用户注册请求。
func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		failBadRequest(c, "Email and password are required")
		return
	}

	user, accessToken, refreshToken, err := h.authService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.Warnf("Register: registration failed for '%s': %v", req.Email, err)
		fail(c, err)
		return
	}

	log.Infof("User '%s' registered successfully", user.Email)
	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"message":      "User created successfully",
		"token":        accessToken,
		"refreshToken": refreshToken,
		"user":         user,
	})
}

// Login 处理用户登录请求。
func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		failBadRequest(c, "Email and password are required")
		return
	}

	user, accessToken, refreshToken, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.Warnf("Login: authentication failed for '%s': %v", req.Email, err)
		fail(c, err)
		return
	}

	log.Infof("User '%s' logged in successfully", user.Email)
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Login successful",
		"token":        accessToken,
		"refreshToken": refreshToken,
		"user":         user,
	})
}

// RefreshRequest 定义了刷新 token API 的请求体结构。
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh 处理刷新 token 的请求。
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		failBadRequest(c, "Refresh token is required")
		return
	}

	accessToken, refreshToken, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		log.Warnf("Refresh: failed to refresh token: %v", err)
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"token":        accessToken,
		"refreshToken": refreshToken,
	})
}

// Me 返回当前登录用户的个人信息，用户已由 AuthMiddleware 注入上下文。
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    mustUser(c),
	})
}

// Logout 将当前 access token 加入黑名单。
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	if err := h.authService.Logout(c.Request.Context(), tokenString); err != nil {
		log.Error("Logout: failed to revoke token", err)
		fail(c, err)
		return
	}

	log.Infof("User '%s' logged out successfully", mustUser(c).Email)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}
