// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strconv"

	"unimate-go/internal/service"
	"unimate-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ChatHandler 负责处理聊天发送、历史查询与会话删除的 API 请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// SendRequest 定义了发送消息 API 的请求体结构。
type SendRequest struct {
	Message string               `json:"message"`
	Context *service.SendContext `json:"context"`
}

// Send 处理发送消息请求：校验、转发上游并持久化会话。
func (h *ChatHandler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBadRequest(c, "Message is required and must be a non-empty string")
		return
	}

	user := mustUser(c)
	result, err := h.chatService.Send(c.Request.Context(), user, req.Message, req.Context)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": result.Reply,
		"sources": result.Sources,
		"context": result.Context,
	})
}

// History 分页返回当前用户的会话历史。
func (h *ChatHandler) History(c *gin.Context) {
	user := mustUser(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.chatService.History(c.Request.Context(), user.ID, page, limit)
	if err != nil {
		log.Error("History: failed to get chat history", err)
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"conversations": result.Conversations,
		"pagination":    result.Pagination,
	})
}

// Delete 删除当前用户名下的一个会话。
func (h *ChatHandler) Delete(c *gin.Context) {
	user := mustUser(c)
	conversationID := c.Param("id")

	if err := h.chatService.Delete(c.Request.Context(), user.ID, conversationID); err != nil {
		fail(c, err)
		return
	}

	log.Infof("[Chat] Deleted conversation %s for user %s", conversationID, user.Email)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Conversation deleted successfully",
	})
}
