package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/internal/model"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx 返回绑定到事务的仓库副本
func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

func (r *TransactionRepository) Create(record *model.TransactionRecord) error {
	return r.db.Create(record).Error
}

// ListByUser 用户流水分页，可按类型过滤
func (r *TransactionRepository) ListByUser(userID int64, txType string, page, pageSize int) ([]model.TransactionRecord, int64, error) {
	query := r.db.Model(&model.TransactionRecord{}).Where("user_id = ?", userID)
	if txType != "" {
		query = query.Where("type = ?", txType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.TransactionRecord
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	return records, total, err
}

// ListByTypesSince 按类型拉取一段时间内的已完成流水（报表用）
func (r *TransactionRepository) ListByTypesSince(types []string, since time.Time, excludeUserIDs []int64) ([]model.TransactionRecord, error) {
	query := r.db.Where("type IN ? AND status = ? AND created_at >= ?",
		types, model.TxStatusCompleted, since)
	if len(excludeUserIDs) > 0 {
		query = query.Where("user_id NOT IN ?", excludeUserIDs)
	}

	var records []model.TransactionRecord
	err := query.Order("created_at ASC").Find(&records).Error
	return records, err
}

// SumByType 某类型已完成流水总额（报表用）
func (r *TransactionRepository) SumByType(txType string, excludeUserIDs []int64) (float64, error) {
	query := r.db.Model(&model.TransactionRecord{}).
		Where("type = ? AND status = ?", txType, model.TxStatusCompleted).
		Select("COALESCE(SUM(amount), 0)")
	if len(excludeUserIDs) > 0 {
		query = query.Where("user_id NOT IN ?", excludeUserIDs)
	}
	var total float64
	err := query.Scan(&total).Error
	return total, err
}
