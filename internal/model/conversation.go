// Package model 包含了应用的数据模型定义。
package model

import "time"

// ChatMessage 代表会话中的单条消息，追加后不可变。
type ChatMessage struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// Sources 仅 assistant 消息携带，保持上游返回的引用顺序。
	Sources []string `json:"sources"`
}

// ConversationContext 是附加在会话上的可变上下文，逐次合并而非整体覆盖。
type ConversationContext struct {
	University  string            `json:"university"`
	Stage       string            `json:"stage"`
	Preferences map[string]string `json:"preferences"`
}

// Conversation 代表一个用户在某个 session 下的完整聊天记录。
// 消息按插入顺序追加，整体以 JSON 序列化存储在单列中。
type Conversation struct {
	ID        uint                `gorm:"primaryKey" json:"id"`
	UserID    uint                `gorm:"index:idx_user_session;not null" json:"userId"`
	SessionID string              `gorm:"index:idx_user_session;size:128;not null" json:"sessionId"`
	Messages  []ChatMessage       `gorm:"type:longtext;serializer:json" json:"messages"`
	Context   ConversationContext `gorm:"type:text;serializer:json" json:"context"`
	CreatedAt time.Time           `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time           `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// LastMessages 返回最近 n 条消息（保持旧到新的顺序）。
func (c *Conversation) LastMessages(n int) []ChatMessage {
	if len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}
