package model

import (
	"time"
)

// InvitedMember 邀请关系边（sponsor -> user），只存直推一层，
// 更深层级由 BFS 推导。
type InvitedMember struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	SponsorID int64     `gorm:"not null;index" json:"sponsor_id"`
	UserID    int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (InvitedMember) TableName() string {
	return "invited_members"
}

// 团队收益类型
const (
	TeamEarningDirectBonus = "direct_bonus"
	TeamEarningTeamReward  = "team_reward"
	TeamEarningPromotion   = "promotion"
)

// TeamEarningRecord 推荐收益流水，只追加
type TeamEarningRecord struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	UserID     int64     `gorm:"not null;index" json:"user_id"`
	FromUserID int64     `gorm:"not null;index" json:"from_user_id"`
	Level      int       `gorm:"not null" json:"level"`
	Amount     float64   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Kind       string    `gorm:"size:20;not null;index" json:"kind"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (TeamEarningRecord) TableName() string {
	return "team_earning_records"
}

// PromotionClaim 已领取的晋升奖励，防止重复领取
type PromotionClaim struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex:idx_user_milestone" json:"user_id"`
	MilestoneID int       `gorm:"not null;uniqueIndex:idx_user_milestone" json:"milestone_id"`
	Reward      float64   `gorm:"type:decimal(15,2);not null" json:"reward"`
	CreatedAt   time.Time `json:"created_at"`
}

func (PromotionClaim) TableName() string {
	return "promotion_claims"
}
