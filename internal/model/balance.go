package model

import (
	"time"
)

// UserBalance 用户钱包聚合。只在事务内与质押单一并变更，
// 保证账本与钱包一致。
type UserBalance struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	UserID         int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance        float64   `gorm:"type:decimal(15,2);not null;default:0" json:"balance"`     // 可提现余额
	OnStaking      float64   `gorm:"type:decimal(15,2);not null;default:0" json:"on_staking"`  // 质押锁定本金
	DailyEarning   float64   `gorm:"type:decimal(15,2);not null;default:0" json:"daily_earning"`
	MaxEarn        float64   `gorm:"type:decimal(15,2);not null;default:0" json:"max_earn"`
	TotalEarned    float64   `gorm:"type:decimal(15,2);not null;default:0" json:"total_earned"`
	MissedEarnings float64   `gorm:"type:decimal(15,2);not null;default:0" json:"missed_earnings"` // 封顶溢出损失
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (UserBalance) TableName() string {
	return "user_balances"
}
