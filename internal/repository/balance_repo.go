package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/internal/model"
)

type BalanceRepository struct {
	db *gorm.DB
}

func NewBalanceRepository(db *gorm.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// WithTx 返回绑定到事务的仓库副本
func (r *BalanceRepository) WithTx(tx *gorm.DB) *BalanceRepository {
	return &BalanceRepository{db: tx}
}

func (r *BalanceRepository) Create(balance *model.UserBalance) error {
	return r.db.Create(balance).Error
}

func (r *BalanceRepository) GetByUserID(userID int64) (*model.UserBalance, error) {
	var balance model.UserBalance
	err := r.db.Where("user_id = ?", userID).First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *BalanceRepository) Update(balance *model.UserBalance) error {
	return r.db.Save(balance).Error
}

func (r *BalanceRepository) UpdateFields(userID int64, fields map[string]interface{}) error {
	return r.db.Model(&model.UserBalance{}).Where("user_id = ?", userID).Updates(fields).Error
}

// AddBalance 余额原子加减
func (r *BalanceRepository) AddBalance(userID int64, delta float64) error {
	return r.db.Model(&model.UserBalance{}).Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}

// AddMissedEarnings 累计因封顶而损失的奖励
func (r *BalanceRepository) AddMissedEarnings(userID int64, delta float64) error {
	return r.db.Model(&model.UserBalance{}).Where("user_id = ?", userID).
		Update("missed_earnings", gorm.Expr("missed_earnings + ?", delta)).Error
}

// SumOnStaking 对一组用户的质押锁定本金求和
func (r *BalanceRepository) SumOnStaking(userIDs []int64) (float64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	var total float64
	err := r.db.Model(&model.UserBalance{}).
		Where("user_id IN ?", userIDs).
		Select("COALESCE(SUM(on_staking), 0)").
		Scan(&total).Error
	return total, err
}

// SumAllBalance 平台可提现余额总量（报表用）
func (r *BalanceRepository) SumAllBalance(excludeUserIDs []int64) (float64, error) {
	query := r.db.Model(&model.UserBalance{}).Select("COALESCE(SUM(balance), 0)")
	if len(excludeUserIDs) > 0 {
		query = query.Where("user_id NOT IN ?", excludeUserIDs)
	}
	var total float64
	err := query.Scan(&total).Error
	return total, err
}
