package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/internal/model"
)

type StakeRepository struct {
	db *gorm.DB
}

func NewStakeRepository(db *gorm.DB) *StakeRepository {
	return &StakeRepository{db: db}
}

// WithTx 返回绑定到事务的仓库副本
func (r *StakeRepository) WithTx(tx *gorm.DB) *StakeRepository {
	return &StakeRepository{db: tx}
}

func (r *StakeRepository) Create(entry *model.StakingEntry) error {
	return r.db.Create(entry).Error
}

func (r *StakeRepository) GetByID(id int64) (*model.StakingEntry, error) {
	var entry model.StakingEntry
	err := r.db.Where("id = ?", id).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *StakeRepository) Update(entry *model.StakingEntry) error {
	return r.db.Save(entry).Error
}

func (r *StakeRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.StakingEntry{}).Where("id = ?", id).Updates(fields).Error
}

// ListByUser 按用户分页查询，新单在前
func (r *StakeRepository) ListByUser(userID int64, page, pageSize int) ([]model.StakingEntry, int64, error) {
	var entries []model.StakingEntry
	var total int64

	query := r.db.Model(&model.StakingEntry{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	return entries, total, err
}

// ListActiveByUserOldest 用户的活跃质押单，旧单在前（奖励分配顺序）
func (r *StakeRepository) ListActiveByUserOldest(userID int64) ([]model.StakingEntry, error) {
	var entries []model.StakingEntry
	err := r.db.Where("user_id = ? AND status = ?", userID, model.StakeStatusActive).
		Order("start_date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// CountActiveRealByUser 用户真实（非代金券来源）活跃质押单数量
func (r *StakeRepository) CountActiveRealByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.StakingEntry{}).
		Where("user_id = ? AND status = ? AND from_voucher = ?", userID, model.StakeStatusActive, false).
		Count(&count).Error
	return count, err
}

// ListAllActive 全部活跃质押单（日收益发放），按主键分批
func (r *StakeRepository) ListAllActive(afterID int64, limit int) ([]model.StakingEntry, error) {
	var entries []model.StakingEntry
	err := r.db.Where("status = ? AND id > ?", model.StakeStatusActive, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// SumOnStakingByUsers 一组用户的活跃质押本金总和（团队业绩）
func (r *StakeRepository) SumOnStakingByUsers(userIDs []int64) (float64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	var total float64
	err := r.db.Model(&model.StakingEntry{}).
		Where("user_id IN ? AND status IN ?", userIDs,
			[]string{model.StakeStatusActive, model.StakeStatusUnstaking}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// SumOnStakingGroupedByUser 按用户分组的活跃质押本金（成员列表一次查完）
func (r *StakeRepository) SumOnStakingGroupedByUser(userIDs []int64) (map[int64]float64, error) {
	if len(userIDs) == 0 {
		return map[int64]float64{}, nil
	}

	type row struct {
		UserID int64
		Total  float64
	}
	var rows []row
	err := r.db.Model(&model.StakingEntry{}).
		Select("user_id, COALESCE(SUM(amount), 0) AS total").
		Where("user_id IN ? AND status IN ?", userIDs,
			[]string{model.StakeStatusActive, model.StakeStatusUnstaking}).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[int64]float64, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.Total
	}
	return out, nil
}

// CountByStatus 按状态统计（报表用）
func (r *StakeRepository) CountByStatus(excludeUserIDs []int64) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row

	query := r.db.Model(&model.StakingEntry{}).
		Select("status, COUNT(*) AS count").
		Group("status")
	if len(excludeUserIDs) > 0 {
		query = query.Where("user_id NOT IN ?", excludeUserIDs)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// SumActivePrincipal 活跃质押本金总量（报表用）
func (r *StakeRepository) SumActivePrincipal(excludeUserIDs []int64) (float64, error) {
	query := r.db.Model(&model.StakingEntry{}).
		Where("status = ?", model.StakeStatusActive).
		Select("COALESCE(SUM(amount), 0)")
	if len(excludeUserIDs) > 0 {
		query = query.Where("user_id NOT IN ?", excludeUserIDs)
	}
	var total float64
	err := query.Scan(&total).Error
	return total, err
}
