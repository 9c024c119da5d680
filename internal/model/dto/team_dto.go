package dto

type TeamMemberInfo struct {
	UserID      int64   `json:"user_id"`
	Username    string  `json:"username"`
	Level       int     `json:"level"`
	OnStaking   float64 `json:"on_staking"`
	JoinedAt    string  `json:"joined_at"`
	DirectCount int     `json:"direct_count"`
}

type TeamLevelStat struct {
	Level   int     `json:"level"`
	Members int     `json:"members"`
	Volume  float64 `json:"volume"`
}

type TeamStats struct {
	TotalMembers   int             `json:"total_members"`
	DirectMembers  int             `json:"direct_members"`
	TeamVolume     float64         `json:"team_volume"`
	DirectEarnings float64         `json:"direct_earnings"`
	TeamEarnings   float64         `json:"team_earnings"`
	Levels         []TeamLevelStat `json:"levels"`
}

type SphereImage struct {
	Level int    `json:"level"`
	URL   string `json:"url"`
}

type PromotionMilestoneInfo struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	DirectCount int     `json:"direct_count"`
	TeamVolume  float64 `json:"team_volume"`
	Reward      float64 `json:"reward"`
	Achieved    bool    `json:"achieved"`
	Claimed     bool    `json:"claimed"`
}

type ClaimPromotionRequest struct {
	MilestoneID int `json:"milestone_id" binding:"required"`
}

type ClaimPromotionResponse struct {
	MilestoneID int     `json:"milestone_id"`
	Reward      float64 `json:"reward"`
}
