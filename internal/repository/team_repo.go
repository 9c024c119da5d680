package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/internal/model"
)

type TeamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// WithTx 返回绑定到事务的仓库副本
func (r *TeamRepository) WithTx(tx *gorm.DB) *TeamRepository {
	return &TeamRepository{db: tx}
}

func (r *TeamRepository) CreateEdge(edge *model.InvitedMember) error {
	return r.db.Create(edge).Error
}

// ListBySponsors 展开一层邀请边：给定上级集合，返回直属下级
func (r *TeamRepository) ListBySponsors(sponsorIDs []int64) ([]model.InvitedMember, error) {
	var edges []model.InvitedMember
	if len(sponsorIDs) == 0 {
		return edges, nil
	}
	err := r.db.Where("sponsor_id IN ?", sponsorIDs).
		Order("created_at ASC, id ASC").
		Find(&edges).Error
	return edges, err
}

// CountBySponsor 直推人数
func (r *TeamRepository) CountBySponsor(sponsorID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.InvitedMember{}).
		Where("sponsor_id = ?", sponsorID).
		Count(&count).Error
	return count, err
}

// CountBySponsors 一批上级各自的直推人数
func (r *TeamRepository) CountBySponsors(sponsorIDs []int64) (map[int64]int64, error) {
	out := make(map[int64]int64)
	if len(sponsorIDs) == 0 {
		return out, nil
	}

	type row struct {
		SponsorID int64
		Count     int64
	}
	var rows []row
	err := r.db.Model(&model.InvitedMember{}).
		Select("sponsor_id, COUNT(*) AS count").
		Where("sponsor_id IN ?", sponsorIDs).
		Group("sponsor_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		out[r.SponsorID] = r.Count
	}
	return out, nil
}

// ----- 团队收益流水 -----

func (r *TeamRepository) CreateEarning(record *model.TeamEarningRecord) error {
	return r.db.Create(record).Error
}

// SumEarningsByKind 按类型汇总某用户的团队收益
func (r *TeamRepository) SumEarningsByKind(userID int64, kind string) (float64, error) {
	var total float64
	err := r.db.Model(&model.TeamEarningRecord{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// ----- 晋升奖励领取 -----

func (r *TeamRepository) CreateClaim(claim *model.PromotionClaim) error {
	return r.db.Create(claim).Error
}

func (r *TeamRepository) ListClaimsByUser(userID int64) ([]model.PromotionClaim, error) {
	var claims []model.PromotionClaim
	err := r.db.Where("user_id = ?", userID).Find(&claims).Error
	return claims, err
}

func (r *TeamRepository) HasClaim(userID int64, milestoneID int) (bool, error) {
	var count int64
	err := r.db.Model(&model.PromotionClaim{}).
		Where("user_id = ? AND milestone_id = ?", userID, milestoneID).
		Count(&count).Error
	return count > 0, err
}
