package dto

type WalletBalance struct {
	Balance        float64 `json:"balance"`
	OnStaking      float64 `json:"on_staking"`
	DailyEarning   float64 `json:"daily_earning"`
	MaxEarn        float64 `json:"max_earn"`
	TotalEarned    float64 `json:"total_earned"`
	MissedEarnings float64 `json:"missed_earnings"`
}

type TransactionInfo struct {
	ID          int64   `json:"id"`
	OrderID     string  `json:"order_id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
}
