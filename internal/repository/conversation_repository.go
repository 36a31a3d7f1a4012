// Package repository 提供了数据访问层的实现。
package repository

import (
	"unimate-go/internal/model"

	"gorm.io/gorm"
)

// ConversationRepository 定义了会话记录的持久化操作。
type ConversationRepository interface {
	// FindByUserAndSession 按 (userID, sessionID) 精确查找会话。
	FindByUserAndSession(userID uint, sessionID string) (*model.Conversation, error)
	// FindLatestByUser 返回该用户最近更新的一个会话，仅用于旧版的无 sessionId 回退。
	FindLatestByUser(userID uint) (*model.Conversation, error)
	// Save 持久化会话（新会话插入，已有会话整体更新并刷新 updatedAt）。
	Save(conversation *model.Conversation) error
	// FindWithPagination 按 updatedAt 倒序分页返回该用户的会话及总数。
	FindWithPagination(userID uint, offset, limit int) ([]model.Conversation, int64, error)
	// DeleteOwned 删除同时匹配 id 与 userID 的会话。
	// id 不存在与归属他人返回同一个 gorm.ErrRecordNotFound，不暴露他人会话是否存在。
	DeleteOwned(conversationID, userID uint) error
}

// conversationRepository 是 ConversationRepository 接口的 GORM 实现。
type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// FindByUserAndSession 按 (userID, sessionID) 精确查找会话。
func (r *conversationRepository) FindByUserAndSession(userID uint, sessionID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.Where("user_id = ? AND session_id = ?", userID, sessionID).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindLatestByUser 返回该用户最近更新的一个会话。
func (r *conversationRepository) FindLatestByUser(userID uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Save 持久化会话。
func (r *conversationRepository) Save(conversation *model.Conversation) error {
	return r.db.Save(conversation).Error
}

// FindWithPagination 按 updatedAt 倒序分页返回该用户的会话及总数。
func (r *conversationRepository) FindWithPagination(userID uint, offset, limit int) ([]model.Conversation, int64, error) {
	var conversations []model.Conversation
	var total int64

	db := r.db.Model(&model.Conversation{}).Where("user_id = ?", userID)

	// 首先计算总记录数
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&conversations).Error
	if err != nil {
		return nil, 0, err
	}
	return conversations, total, nil
}

// DeleteOwned 删除同时匹配 id 与 userID 的会话。
func (r *conversationRepository) DeleteOwned(conversationID, userID uint) error {
	result := r.db.Where("id = ? AND user_id = ?", conversationID, userID).Delete(&model.Conversation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
