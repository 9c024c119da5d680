package model

import (
	"time"
)

// 代金券类型
const (
	VoucherTypePackage    = "package"
	VoucherTypeWithdraw   = "withdraw"
	VoucherTypeFutures    = "futures"
	VoucherTypeBonus      = "bonus"
	VoucherTypeTradingFee = "trading_fee"
)

// 代金券状态
const (
	VoucherStatusActive  = "active"
	VoucherStatusUsed    = "used"
	VoucherStatusExpired = "expired"
)

// Voucher 可兑换代金券。package 型兑换成一笔质押，
// 其余类型直接入钱包。最多兑换一次，事务内二次校验状态。
type Voucher struct {
	ID                  int64      `gorm:"primaryKey" json:"id"`
	Code                string     `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Type                string     `gorm:"size:20;not null;index" json:"type"`
	Value               float64    `gorm:"type:decimal(15,2);not null" json:"value"`
	PackageID           *int       `json:"package_id,omitempty"`
	PackageName         *string    `gorm:"size:50" json:"package_name,omitempty"`
	ROIValidityDays     int        `gorm:"default:0" json:"roi_validity_days"`
	AffectsMaxCap       bool       `gorm:"default:false" json:"affects_max_cap"`
	RequiresRealPackage bool       `gorm:"default:false" json:"requires_real_package"`
	Status              string     `gorm:"size:20;default:active;index" json:"status"`
	UserID              *int64     `gorm:"index" json:"user_id,omitempty"` // nil = 未指定归属
	BatchID             *int64     `gorm:"index" json:"batch_id,omitempty"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	UsedAt              *time.Time `json:"used_at,omitempty"`
	AppliedToStakeID    *int64     `gorm:"index" json:"applied_to_stake_id,omitempty"`
	ROIEndAt            *time.Time `json:"roi_end_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (Voucher) TableName() string {
	return "vouchers"
}

// IsExpired 是否已过有效期（不含状态判断）
func (v *Voucher) IsExpired(now time.Time) bool {
	return v.ExpiresAt != nil && now.After(*v.ExpiresAt)
}

// 批次状态
const (
	BatchStatusQueued     = "queued"
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

// VoucherBatch 管理端批量发券任务，由 worker 异步生成
type VoucherBatch struct {
	ID                  int64      `gorm:"primaryKey" json:"id"`
	CreatedBy           int64      `gorm:"not null;index" json:"created_by"`
	Count               int        `gorm:"not null" json:"count"`
	Generated           int        `gorm:"default:0" json:"generated"`
	Type                string     `gorm:"size:20;not null" json:"type"`
	Value               float64    `gorm:"type:decimal(15,2);not null" json:"value"`
	PackageID           *int       `json:"package_id,omitempty"`
	ROIValidityDays     int        `gorm:"default:0" json:"roi_validity_days"`
	AffectsMaxCap       bool       `gorm:"default:false" json:"affects_max_cap"`
	RequiresRealPackage bool       `gorm:"default:false" json:"requires_real_package"`
	UserID              *int64     `json:"user_id,omitempty"` // 指定归属用户，可空
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	Status              string     `gorm:"size:20;default:queued;index" json:"status"`
	ErrorMessage        string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

func (VoucherBatch) TableName() string {
	return "voucher_batches"
}
