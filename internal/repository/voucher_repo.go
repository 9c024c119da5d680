package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/internal/model"
)

type VoucherRepository struct {
	db *gorm.DB
}

func NewVoucherRepository(db *gorm.DB) *VoucherRepository {
	return &VoucherRepository{db: db}
}

// WithTx 返回绑定到事务的仓库副本
func (r *VoucherRepository) WithTx(tx *gorm.DB) *VoucherRepository {
	return &VoucherRepository{db: tx}
}

func (r *VoucherRepository) Create(voucher *model.Voucher) error {
	return r.db.Create(voucher).Error
}

// CreateInBatches 批量插入（worker 发券）
func (r *VoucherRepository) CreateInBatches(vouchers []model.Voucher, batchSize int) error {
	return r.db.CreateInBatches(vouchers, batchSize).Error
}

func (r *VoucherRepository) GetByID(id int64) (*model.Voucher, error) {
	var voucher model.Voucher
	err := r.db.Where("id = ?", id).First(&voucher).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *VoucherRepository) GetByCode(code string) (*model.Voucher, error) {
	var voucher model.Voucher
	err := r.db.Where("code = ?", code).First(&voucher).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

// ListByUser 用户名下代金券，可按状态/类型过滤
func (r *VoucherRepository) ListByUser(userID int64, status, vtype string, page, pageSize int) ([]model.Voucher, int64, error) {
	query := r.db.Model(&model.Voucher{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if vtype != "" {
		query = query.Where("type = ?", vtype)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var vouchers []model.Voucher
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&vouchers).Error
	return vouchers, total, err
}

// MarkUsed 条件更新 active -> used，返回是否抢到。
// WHERE status = 'active' 是并发兑换的最后一道闸门。
func (r *VoucherRepository) MarkUsed(id int64, usedAt time.Time, stakeID *int64, roiEndAt *time.Time) (bool, error) {
	fields := map[string]interface{}{
		"status":  model.VoucherStatusUsed,
		"used_at": usedAt,
	}
	if stakeID != nil {
		fields["applied_to_stake_id"] = *stakeID
	}
	if roiEndAt != nil {
		fields["roi_end_at"] = *roiEndAt
	}

	result := r.db.Model(&model.Voucher{}).
		Where("id = ? AND status = ?", id, model.VoucherStatusActive).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkExpired 将过期券翻转为 expired
func (r *VoucherRepository) MarkExpired(id int64) error {
	return r.db.Model(&model.Voucher{}).
		Where("id = ? AND status = ?", id, model.VoucherStatusActive).
		Update("status", model.VoucherStatusExpired).Error
}

// ExpireOverdue 批量将已过期仍为 active 的券翻转为 expired
func (r *VoucherRepository) ExpireOverdue(now time.Time) (int64, error) {
	result := r.db.Model(&model.Voucher{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", model.VoucherStatusActive, now).
		Update("status", model.VoucherStatusExpired)
	return result.RowsAffected, result.Error
}

// AssignToUser 将未归属的券绑定到兑换用户
func (r *VoucherRepository) AssignToUser(id, userID int64) error {
	return r.db.Model(&model.Voucher{}).
		Where("id = ? AND user_id IS NULL", id).
		Update("user_id", userID).Error
}

// GetByStakeID 查找生成了某质押单的券（流水型 ROI 的有效期来源）
func (r *VoucherRepository) GetByStakeID(stakeID int64) (*model.Voucher, error) {
	var voucher model.Voucher
	err := r.db.Where("applied_to_stake_id = ? AND status = ?", stakeID, model.VoucherStatusUsed).
		First(&voucher).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

// ----- 发券批次 -----

func (r *VoucherRepository) CreateBatch(batch *model.VoucherBatch) error {
	return r.db.Create(batch).Error
}

func (r *VoucherRepository) GetBatchByID(id int64) (*model.VoucherBatch, error) {
	var batch model.VoucherBatch
	err := r.db.Where("id = ?", id).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *VoucherRepository) UpdateBatchFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.VoucherBatch{}).Where("id = ?", id).Updates(fields).Error
}

func (r *VoucherRepository) ListBatches(page, pageSize int) ([]model.VoucherBatch, int64, error) {
	var total int64
	if err := r.db.Model(&model.VoucherBatch{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var batches []model.VoucherBatch
	err := r.db.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&batches).Error
	return batches, total, err
}
