// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// HealthHandler 提供服务自身与依赖的健康状态。
type HealthHandler struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewHealthHandler 创建一个新的 HealthHandler 实例。
func NewHealthHandler(db *gorm.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

// Root 返回服务的基本信息。
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "UniMate API Server",
		"status":    "running",
		"version":   "1.0.0",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Health 检查数据库和 Redis 的可达性。
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	dbState := "connected"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		dbState = "disconnected"
	}

	redisState := "connected"
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		redisState = "disconnected"
	}

	status := "healthy"
	if dbState != "connected" || redisState != "connected" {
		status = "unhealthy"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"database":  dbState,
		"redis":     redisState,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
