// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"unimate-go/internal/service"
	"unimate-go/pkg/log"
	"unimate-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它会从请求头中提取 token，验证其有效性，并将完整的 User 对象存入 Gin 的上下文中。
// 过期与其它无效情况返回不同的提示：前者应刷新令牌，后者需要重新登录。
func AuthMiddleware(jwtManager *token.JWTManager, authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "No authorization header provided")
			return
		}

		// Token 通常以 "Bearer <token>" 的形式提供；兼容直接传裸 token 的旧客户端
		tokenString := authHeader
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if tokenString == "" {
			abortUnauthorized(c, "No token provided")
			return
		}

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			if errors.Is(err, token.ErrMissingSecret) {
				// 服务端配置缺失，不是调用方的凭证问题
				log.Error("AuthMiddleware: JWT secret is not configured", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Server configuration error",
				})
				return
			}
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortUnauthorized(c, "Token expired")
				return
			}
			abortUnauthorized(c, "Invalid token")
			return
		}

		// 已登出的 token 在黑名单中
		if revoked, err := authService.IsTokenRevoked(c.Request.Context(), tokenString); err != nil {
			log.Warnf("AuthMiddleware: blacklist lookup failed: %v", err)
		} else if revoked {
			abortUnauthorized(c, "Invalid token")
			return
		}

		// 使用 claims 中的用户 ID 获取完整的用户信息（仅此一次存储查询）
		user, err := authService.GetUserByID(claims.UserID)
		if err != nil {
			// 根据 token 中的用户信息无法找到用户，说明该用户可能已被删除
			abortUnauthorized(c, "User not found")
			return
		}

		// 将完整的 User 对象存储在 context 中，供后续处理函数使用
		c.Set("user", user)
		c.Set("claims", claims)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
	})
}
