// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"strings"
	"time"

	"unimate-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// RequestLogger 是一个 Gin 中间件，用于记录请求日志。
// 不记录请求体：认证端点携带明文密码，聊天端点的内容也不应进日志。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", latency.String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
	}
}

// CleanPath 清理 URL 中经转义混入的换行符（%0A/%0D），避免路径匹配被绕过。
func CleanPath() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.ContainsAny(path, "\n\r") {
			cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(path)
			c.Request.URL.Path = strings.TrimSpace(cleaned)
		}
		c.Next()
	}
}
