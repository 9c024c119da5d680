package model

import (
	"time"
)

// 交易类型
const (
	TxTypeDeposit  = "deposit"
	TxTypeWithdraw = "withdraw"
	TxTypeStake    = "stake"
	TxTypeUnstake  = "unstake"
	TxTypeReward   = "reward"
	TxTypeBonus    = "bonus"
	TxTypeVoucher  = "voucher"
	TxTypeFee      = "fee"
	TxTypeRefund   = "refund"
)

// 交易状态
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// TransactionRecord 资金流水，只追加，报表脚本的数据来源
type TransactionRecord struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"not null;index" json:"user_id"`
	OrderID     string    `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	Type        string    `gorm:"size:20;not null;index" json:"type"`
	Amount      float64   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status      string    `gorm:"size:20;default:completed;index" json:"status"`
	Description string    `gorm:"size:255" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (TransactionRecord) TableName() string {
	return "transaction_records"
}
