// Package model 包含了应用的数据模型定义。
package model

import "time"

// 用户角色
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// UserPreferences 保存用户的偏好设置。
type UserPreferences struct {
	Language   string `json:"language"` // en / si / ta
	University string `json:"university"`
	Course     string `json:"course"`
}

// User 代表一个注册用户。
// Email 以小写形式唯一存储；Password 是 bcrypt 摘要，永远不会序列化到响应中。
type User struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Email       string          `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Password    string          `gorm:"not null" json:"-"`
	Role        string          `gorm:"size:16;not null;default:student" json:"role"`
	Preferences UserPreferences `gorm:"type:text;serializer:json" json:"preferences"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin 判断用户是否为管理员。
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
