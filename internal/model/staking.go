package model

import (
	"time"
)

// 质押单状态
const (
	StakeStatusActive    = "active"
	StakeStatusUnstaking = "unstaking"
	StakeStatusCompleted = "completed"
)

// StakingEntry 一笔质押。软状态流转，从不物理删除。
// MaxEarning == 0 表示不封顶（代金券流水型收益），其余情况
// 保持 TotalEarned <= MaxEarning。
type StakingEntry struct {
	ID                 int64      `gorm:"primaryKey" json:"id"`
	UserID             int64      `gorm:"not null;index" json:"user_id"`
	PackageID          int        `gorm:"not null" json:"package_id"`
	PackageName        string     `gorm:"size:50;not null" json:"package_name"`
	Amount             float64    `gorm:"type:decimal(15,2);not null" json:"amount"`
	DailyROI           float64    `gorm:"type:decimal(5,2);not null" json:"daily_roi"`
	Cap                float64    `gorm:"type:decimal(5,2);not null" json:"cap"`
	MaxEarning         float64    `gorm:"type:decimal(15,2);not null" json:"max_earning"`
	TotalEarned        float64    `gorm:"type:decimal(15,2);not null;default:0" json:"total_earned"`
	Status             string     `gorm:"size:20;default:active;index" json:"status"`
	FromVoucher        bool       `gorm:"default:false" json:"from_voucher"`
	StartDate          time.Time  `gorm:"not null" json:"start_date"`
	UnstakeRequestedAt *time.Time `json:"unstake_requested_at,omitempty"`
	CooldownEndAt      *time.Time `json:"cooldown_end_at,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (StakingEntry) TableName() string {
	return "staking_entries"
}

// RemainingCap 距离封顶还能吃下的收益额度，不封顶时返回 0
func (e *StakingEntry) RemainingCap() float64 {
	if e.MaxEarning <= 0 {
		return 0
	}
	remain := e.MaxEarning - e.TotalEarned
	if remain < 0 {
		return 0
	}
	return remain
}
