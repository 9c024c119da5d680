package dto

type VoucherInfo struct {
	ID                  int64   `json:"id"`
	Code                string  `json:"code"`
	Type                string  `json:"type"`
	Value               float64 `json:"value"`
	PackageID           *int    `json:"package_id,omitempty"`
	PackageName         string  `json:"package_name,omitempty"`
	ROIValidityDays     int     `json:"roi_validity_days"`
	AffectsMaxCap       bool    `json:"affects_max_cap"`
	RequiresRealPackage bool    `json:"requires_real_package"`
	Status              string  `json:"status"`
	ExpiresAt           string  `json:"expires_at,omitempty"`
	UsedAt              string  `json:"used_at,omitempty"`
	AppliedToStakeID    *int64  `json:"applied_to_stake_id,omitempty"`
}

type RedeemVoucherRequest struct {
	Code      string `json:"code" binding:"required"`
	PackageID *int   `json:"package_id"`
}

type RedeemVoucherResponse struct {
	VoucherID int64   `json:"voucher_id"`
	Type      string  `json:"type"`
	Value     float64 `json:"value"`
	// package 型兑换产生的质押单，其余类型为空
	StakeID *int64 `json:"stake_id,omitempty"`
}

type UseVoucherForStakeResponse struct {
	StakeID     int64   `json:"stake_id"`
	PackageName string  `json:"package_name"`
	Amount      float64 `json:"amount"`
	MaxEarning  float64 `json:"max_earning"`
	ROIEndAt    string  `json:"roi_end_at,omitempty"`
}

type CreateVouchersRequest struct {
	Count               int     `json:"count" binding:"required,min=1,max=10000"`
	Type                string  `json:"type" binding:"required,oneof=package withdraw futures bonus trading_fee"`
	Value               float64 `json:"value" binding:"required,gt=0"`
	PackageID           *int    `json:"package_id"`
	ROIValidityDays     int     `json:"roi_validity_days"`
	AffectsMaxCap       bool    `json:"affects_max_cap"`
	RequiresRealPackage bool    `json:"requires_real_package"`
	UserID              *int64  `json:"user_id"`
	ExpiresInDays       int     `json:"expires_in_days"`
}

type CreateVouchersResponse struct {
	BatchID int64  `json:"batch_id"`
	Status  string `json:"status"`
}

type VoucherBatchInfo struct {
	ID           int64   `json:"id"`
	Count        int     `json:"count"`
	Generated    int     `json:"generated"`
	Type         string  `json:"type"`
	Value        float64 `json:"value"`
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
	CreatedAt    string  `json:"created_at"`
}
