package model

import (
	"time"
)

// 用户角色
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        *string   `gorm:"size:100;uniqueIndex" json:"email,omitempty"`
	PasswordHash *string   `gorm:"size:255" json:"-"`
	Role         string    `gorm:"size:20;default:user" json:"role"` // user, admin
	InviteCode   string    `gorm:"size:20;uniqueIndex;not null" json:"invite_code"`
	InviterID    *int64    `gorm:"index" json:"inviter_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
