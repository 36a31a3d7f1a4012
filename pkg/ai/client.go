// Package ai 提供访问上游 AI 服务的客户端。
// 每次用户发送只发起一次调用，不做重试；失败在此处完成归一化分类，
// 上游的原始错误文本不会穿透到调用方。
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"unimate-go/internal/config"
	"unimate-go/pkg/apperr"
)

// DefaultReply 上游返回空内容时使用的兜底回复。
const DefaultReply = "No response received"

// Client 定义了上游 AI 服务客户端的接口。
type Client interface {
	// Chat 发起一次带超时的聊天调用；失败时返回已分类的 apperr。
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// HistoryMessage 是传给上游的历史消息，只保留角色与内容。
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RequestContext 是传给上游的会话上下文。
type RequestContext struct {
	University          string            `json:"university"`
	Stage               string            `json:"stage"`
	Preferences         map[string]string `json:"preferences"`
	ConversationHistory []HistoryMessage  `json:"conversation_history"`
}

// ChatRequest 是 POST {base_url}/ai/chat 的请求体。
type ChatRequest struct {
	Message   string         `json:"message"`
	Context   RequestContext `json:"context"`
	UserID    string         `json:"userId"`
	SessionID string         `json:"sessionId"`
}

// ChatResponse 是上游返回的响应体。
// 不同版本的上游用过 message / response / content 三种字段名，这里全部兼容。
type ChatResponse struct {
	Message  string                 `json:"message"`
	Response string                 `json:"response"`
	Content  string                 `json:"content"`
	Sources  []string               `json:"sources"`
	Context  map[string]interface{} `json:"context"`
}

// Reply 返回 message/response/content 中第一个非空的字段，全空时返回兜底文案。
func (r *ChatResponse) Reply() string {
	switch {
	case r.Message != "":
		return r.Message
	case r.Response != "":
		return r.Response
	case r.Content != "":
		return r.Content
	default:
		return DefaultReply
	}
}

type httpClient struct {
	cfg    config.AIConfig
	client *http.Client
}

// NewClient 创建一个上游 AI 服务客户端。
func NewClient(cfg config.AIConfig) Client {
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

// Chat 调用上游的 /ai/chat 接口。
// 超时由客户端自身施加（默认 30 秒），调用方无需再包装超时。
func (c *httpClient) Chat(ctx context.Context, chatReq *ChatRequest) (*ChatResponse, error) {
	reqBytes, err := json.Marshal(chatReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to process message", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/ai/chat", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to process message", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// 读掉响应体便于连接复用；内容不向调用方暴露
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, classifyStatus(resp.StatusCode)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable,
			"AI service is temporarily unavailable. Please try again later.", err)
	}
	return &chatResp, nil
}

// classifyTransportError 将传输层错误归一化为 apperr。
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindTimeout,
			"AI service request timed out. Please try again.", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.Wrap(apperr.KindTimeout,
			"AI service request timed out. Please try again.", err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return apperr.Wrap(apperr.KindUnavailable,
			"AI service is not available. Please try again later.", err)
	}
	// 其它传输错误统一按不可用处理，不泄露原始错误文本
	return apperr.Wrap(apperr.KindUnavailable,
		"AI service is temporarily unavailable. Please try again later.", err)
}

// classifyStatus 将上游的非 200 状态码归一化为 apperr。
func classifyStatus(status int) error {
	cause := fmt.Errorf("ai service returned status %d", status)
	switch {
	case status == http.StatusBadRequest:
		return apperr.Wrap(apperr.KindInvalidInput,
			"Invalid request to AI service. Please check your message.", cause)
	case status == http.StatusTooManyRequests:
		return apperr.Wrap(apperr.KindRateLimited,
			"AI service is rate limited. Please try again in a moment.", cause)
	case status >= 500:
		return apperr.Wrap(apperr.KindUnavailable,
			"AI service is experiencing issues. Please try again later.", cause)
	default:
		return apperr.Wrap(apperr.KindUnavailable,
			"AI service is temporarily unavailable. Please try again later.", cause)
	}
}
