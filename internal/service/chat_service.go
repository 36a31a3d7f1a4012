// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"unimate-go/internal/model"
	"unimate-go/internal/repository"
	"unimate-go/pkg/ai"
	"unimate-go/pkg/apperr"
	"unimate-go/pkg/log"

	"gorm.io/gorm"
)

// historyWindow 传给上游的历史消息条数上限。
// 固定值，用于约束上游请求体大小与成本，不开放配置。
const historyWindow = 10

// 分页参数的钳制范围
const (
	defaultPageLimit = 20
	maxPageLimit     = 50
)

// SendContext 是一次发送请求携带的上下文字段，均为可选。
type SendContext struct {
	SessionID   string            `json:"sessionId"`
	University  string            `json:"university"`
	Stage       string            `json:"stage"`
	Preferences map[string]string `json:"preferences"`
}

// SendResult 是一次发送的响应内容。
type SendResult struct {
	Reply   string
	Sources []string
	Context interface{}
}

// Pagination 描述分页结果的元信息。
type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int64 `json:"pages"`
	HasMore bool  `json:"hasMore"`
}

// HistoryPage 是一页会话历史。
type HistoryPage struct {
	Conversations []model.Conversation
	Pagination    Pagination
}

// ChatService 编排聊天消息管线：会话解析、上游调用、消息持久化与错误归一化。
type ChatService interface {
	Send(ctx context.Context, user *model.User, message string, sendCtx *SendContext) (*SendResult, error)
	History(ctx context.Context, userID uint, page, limit int) (*HistoryPage, error)
	Delete(ctx context.Context, userID uint, conversationID string) error
}

type chatService struct {
	conversationRepo repository.ConversationRepository
	aiClient         ai.Client
	// legacyFallback 打开时，未携带 sessionId 的请求复用该用户最近的会话（旧版兼容行为）。
	legacyFallback bool

	// 按 (userID, sessionID) 串行化两段式追加写入
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(conversationRepo repository.ConversationRepository, aiClient ai.Client, legacyFallback bool) ChatService {
	return &chatService{
		conversationRepo: conversationRepo,
		aiClient:         aiClient,
		legacyFallback:   legacyFallback,
		locks:            make(map[string]*sync.Mutex),
	}
}

// Send 处理一次用户发送：
//  1. 校验消息非空
//  2. 解析或新建会话
//  3. 合并出站上下文（请求字段非空时覆盖存储值）
//  4. 取最近 10 条历史
//  5. 调用上游 AI 服务（30 秒超时，单次尝试）
//  6. 成功后先持久化用户消息、再持久化助手回复
//
// 上游调用返回之前不发生任何写入；调用失败时会话保持原样。
func (s *chatService) Send(ctx context.Context, user *model.User, message string, sendCtx *SendContext) (*SendResult, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "Message is required and must be a non-empty string")
	}
	if sendCtx == nil {
		sendCtx = &SendContext{}
	}

	start := time.Now()
	conv, err := s.resolveConversation(user.ID, sendCtx)
	if err != nil {
		return nil, err
	}

	// 出站上下文：存储值打底，请求里的非空字段覆盖
	outUniversity := conv.Context.University
	if sendCtx.University != "" {
		outUniversity = sendCtx.University
	}
	outStage := conv.Context.Stage
	if sendCtx.Stage != "" {
		outStage = sendCtx.Stage
	}
	outPrefs := mergePreferences(conv.Context.Preferences, sendCtx.Preferences)

	history := make([]ai.HistoryMessage, 0, historyWindow)
	for _, m := range conv.LastMessages(historyWindow) {
		history = append(history, ai.HistoryMessage{Role: m.Role, Content: m.Content})
	}

	aiResp, err := s.aiClient.Chat(ctx, &ai.ChatRequest{
		Message: trimmed,
		Context: ai.RequestContext{
			University:          outUniversity,
			Stage:               outStage,
			Preferences:         outPrefs,
			ConversationHistory: history,
		},
		UserID:    strconv.FormatUint(uint64(user.ID), 10),
		SessionID: conv.SessionID,
	})
	if err != nil {
		// 错误已在客户端边界完成分类，这里只补充日志
		log.Warnf("[Chat] AI service call failed for user %s after %s: %v", user.Email, time.Since(start), err)
		return nil, err
	}
	log.Infof("[Chat] AI service responded for user %s in %s", user.Email, time.Since(start))

	// 同一 (userID, sessionID) 的两段式写入串行执行
	lock := s.sessionLock(user.ID, conv.SessionID)
	lock.Lock()
	defer lock.Unlock()

	// 先保存用户消息：即使后续写入失败，用户发言也已落库
	conv.Messages = append(conv.Messages, model.ChatMessage{
		Role:      "user",
		Content:   trimmed,
		Timestamp: time.Now(),
		Sources:   []string{},
	})
	applyContext(&conv.Context, sendCtx)
	if err := s.conversationRepo.Save(conv); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to process message", err)
	}

	reply := aiResp.Reply()
	sources := aiResp.Sources
	if sources == nil {
		sources = []string{}
	}
	conv.Messages = append(conv.Messages, model.ChatMessage{
		Role:      "assistant",
		Content:   reply,
		Timestamp: time.Now(),
		Sources:   sources,
	})
	if err := s.conversationRepo.Save(conv); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to process message", err)
	}

	var respCtx interface{} = conv.Context
	if aiResp.Context != nil {
		respCtx = aiResp.Context
	}
	return &SendResult{Reply: reply, Sources: sources, Context: respCtx}, nil
}

// History 分页返回用户的会话历史，page 与 limit 在此处钳制。
func (s *chatService) History(_ context.Context, userID uint, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	offset := (page - 1) * limit
	conversations, total, err := s.conversationRepo.FindWithPagination(userID, offset, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to get chat history", err)
	}
	if conversations == nil {
		conversations = []model.Conversation{}
	}

	pages := (total + int64(limit) - 1) / int64(limit)
	return &HistoryPage{
		Conversations: conversations,
		Pagination: Pagination{
			Page:    page,
			Limit:   limit,
			Total:   total,
			Pages:   pages,
			HasMore: int64(page)*int64(limit) < total,
		},
	}, nil
}

// Delete 删除用户名下的一个会话。
// 会话被删除后其 sessionId 随之失效：之后的发送会开启全新的会话与上下文。
func (s *chatService) Delete(_ context.Context, userID uint, conversationID string) error {
	id, err := strconv.ParseUint(conversationID, 10, 64)
	if err != nil || id == 0 {
		return apperr.New(apperr.KindInvalidInput, "Invalid conversation ID")
	}

	if err := s.conversationRepo.DeleteOwned(uint(id), userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 不存在与归属他人给出同一条消息
			return apperr.New(apperr.KindNotFound, "Conversation not found or you do not have permission to delete it")
		}
		return apperr.Wrap(apperr.KindInternal, "Failed to delete conversation", err)
	}
	return nil
}

// resolveConversation 解析本次发送归属的会话。
// 有 sessionId 按 (userID, sessionID) 查找；没有且开启旧版回退时取该用户最近的会话；
// 都未命中则构造一个新会话（此时尚未落库，上游成功后才会随首条消息一起保存）。
func (s *chatService) resolveConversation(userID uint, sendCtx *SendContext) (*model.Conversation, error) {
	var conv *model.Conversation
	var err error

	if sendCtx.SessionID != "" {
		conv, err = s.conversationRepo.FindByUserAndSession(userID, sendCtx.SessionID)
	} else if s.legacyFallback {
		conv, err = s.conversationRepo.FindLatestByUser(userID)
	} else {
		err = gorm.ErrRecordNotFound
	}
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindInternal, "Failed to process message", err)
		}
		sessionID := sendCtx.SessionID
		if sessionID == "" {
			sessionID = fmt.Sprintf("session_%d_%d", userID, time.Now().UnixMilli())
		}
		prefs := sendCtx.Preferences
		if prefs == nil {
			prefs = map[string]string{}
		}
		conv = &model.Conversation{
			UserID:    userID,
			SessionID: sessionID,
			Messages:  []model.ChatMessage{},
			Context: model.ConversationContext{
				University:  sendCtx.University,
				Stage:       sendCtx.Stage,
				Preferences: prefs,
			},
		}
	}
	return conv, nil
}

// applyContext 把请求中的非空上下文字段合并进存储的会话上下文。
// 空字段不会清除已存储的值；preferences 逐键合并。
func applyContext(stored *model.ConversationContext, sendCtx *SendContext) {
	if sendCtx.University != "" {
		stored.University = sendCtx.University
	}
	if sendCtx.Stage != "" {
		stored.Stage = sendCtx.Stage
	}
	if len(sendCtx.Preferences) > 0 {
		if stored.Preferences == nil {
			stored.Preferences = map[string]string{}
		}
		for k, v := range sendCtx.Preferences {
			stored.Preferences[k] = v
		}
	}
}

// mergePreferences 返回存储偏好与请求偏好的合并副本，请求值优先。
func mergePreferences(stored, incoming map[string]string) map[string]string {
	merged := make(map[string]string, len(stored)+len(incoming))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return merged
}

// sessionLock 返回 (userID, sessionID) 对应的互斥锁，不存在时创建。
func (s *chatService) sessionLock(userID uint, sessionID string) *sync.Mutex {
	key := fmt.Sprintf("%d:%s", userID, sessionID)
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}
