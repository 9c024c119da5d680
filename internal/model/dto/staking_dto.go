package dto

type PackageInfo struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	DailyROI   float64 `json:"daily_roi"`
	Cap        float64 `json:"cap"`
	MaxEarning float64 `json:"max_earning"`
}

type CreateStakeRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type CreateStakeResponse struct {
	StakeID     int64   `json:"stake_id"`
	PackageName string  `json:"package_name"`
	Amount      float64 `json:"amount"`
	MaxEarning  float64 `json:"max_earning"`
}

type StakeInfo struct {
	ID                 int64   `json:"id"`
	PackageID          int     `json:"package_id"`
	PackageName        string  `json:"package_name"`
	Amount             float64 `json:"amount"`
	DailyROI           float64 `json:"daily_roi"`
	Cap                float64 `json:"cap"`
	MaxEarning         float64 `json:"max_earning"`
	TotalEarned        float64 `json:"total_earned"`
	Status             string  `json:"status"`
	FromVoucher        bool    `json:"from_voucher"`
	StartDate          string  `json:"start_date"`
	UnstakeRequestedAt string  `json:"unstake_requested_at,omitempty"`
	CooldownEndAt      string  `json:"cooldown_end_at,omitempty"`
	EndDate            string  `json:"end_date,omitempty"`
}

type RequestUnstakeResponse struct {
	StakeID       int64  `json:"stake_id"`
	Status        string `json:"status"`
	CooldownEndAt string `json:"cooldown_end_at"`
}

type CompleteUnstakeResponse struct {
	StakeID         int64   `json:"stake_id"`
	PrincipalReturn float64 `json:"principal_return"`
	TotalEarned     float64 `json:"total_earned"`
	Status          string  `json:"status"`
}
