// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"unimate-go/internal/model"
	"unimate-go/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// fail 把业务层错误转换为统一的错误响应 {success:false, message}。
// 非 release 模式下附带底层错误文本，便于排查；生产环境只输出归一化消息。
func fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	body := gin.H{
		"success": false,
		"message": apperr.MessageOf(err),
	}
	if gin.Mode() != gin.ReleaseMode && kind == apperr.KindInternal {
		body["error"] = err.Error()
	}
	c.JSON(apperr.HTTPStatus(kind), body)
}

// failBadRequest 返回一个 400 错误响应。
func failBadRequest(c *gin.Context, message string) {
	c.JSON(400, gin.H{
		"success": false,
		"message": message,
	})
}

// mustUser 从上下文中取出 AuthMiddleware 注入的用户。
func mustUser(c *gin.Context) *model.User {
	return c.MustGet("user").(*model.User)
}
