// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"net/http"
	"time"

	"unimate-go/internal/config"
	"unimate-go/internal/model"
	"unimate-go/internal/ratelimit"
	"unimate-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// 限流拒绝时返回的提示文案
const (
	globalLimitMessage = "Too many requests. Please try again later."
	authLimitMessage   = "Too many authentication attempts. Please try again later."
	chatLimitMessage   = "Too many chat requests. Please try again later."
)

// GlobalRateLimit 按客户端 IP 对所有请求计数（100 次 / 15 分钟）。
func GlobalRateLimit(store ratelimit.CounterStore, cfg config.WindowConfig) gin.HandlerFunc {
	return rateLimit(store, cfg, globalLimitMessage, func(c *gin.Context) string {
		return "global:" + c.ClientIP()
	}, nil)
}

// AuthRateLimit 按 IP + User-Agent 哈希对认证端点计数（5 次 / 15 分钟）。
// 加入 UA 哈希是为了抬高纯换 IP 的绕过成本，并非完整的设备指纹。
func AuthRateLimit(store ratelimit.CounterStore, cfg config.WindowConfig) gin.HandlerFunc {
	return rateLimit(store, cfg, authLimitMessage, func(c *gin.Context) string {
		return "auth:" + c.ClientIP() + ":" + userAgentHash(c)
	}, nil)
}

// ChatRateLimit 按认证用户 ID 对聊天端点计数（30 次 / 60 秒），
// 无法取到用户身份时退回 IP + UA 哈希；管理员跳过此限流（全局限流仍然生效）。
// 必须在 AuthMiddleware 之后挂载。
func ChatRateLimit(store ratelimit.CounterStore, cfg config.WindowConfig) gin.HandlerFunc {
	keyFn := func(c *gin.Context) string {
		if user := currentUser(c); user != nil {
			return fmt.Sprintf("user:%d", user.ID)
		}
		return "ip:" + c.ClientIP() + ":" + userAgentHash(c)
	}
	skipFn := func(c *gin.Context) bool {
		user := currentUser(c)
		return user != nil && user.IsAdmin()
	}
	return rateLimit(store, cfg, chatLimitMessage, keyFn, skipFn)
}

// rateLimit 构造一个固定窗口限流中间件。
// 计数器存储故障时放行请求并记录告警，限流不应成为可用性瓶颈。
func rateLimit(store ratelimit.CounterStore, cfg config.WindowConfig, message string,
	keyFn func(*gin.Context) string, skipFn func(*gin.Context) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipFn != nil && skipFn(c) {
			c.Next()
			return
		}

		result, err := store.Incr(c.Request.Context(), keyFn(c), cfg.Window(), cfg.Max)
		if err != nil {
			log.Warnf("RateLimit: counter store failed, allowing request: %v", err)
			c.Next()
			return
		}

		if !result.Allowed {
			retryAfter := int(math.Ceil(time.Until(result.ResetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": message,
			})
			return
		}

		c.Next()
	}
}

// userAgentHash 返回 User-Agent 的 md5 前 8 位。
func userAgentHash(c *gin.Context) string {
	ua := c.GetHeader("User-Agent")
	if ua == "" {
		ua = "unknown"
	}
	sum := md5.Sum([]byte(ua))
	return hex.EncodeToString(sum[:])[:8]
}

// currentUser 从上下文中取出 AuthMiddleware 注入的用户，不存在时返回 nil。
func currentUser(c *gin.Context) *model.User {
	value, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, ok := value.(*model.User)
	if !ok {
		return nil
	}
	return user
}
