package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/config"
	"github.com/qs3c/stake_go_server/internal/model"
	"github.com/qs3c/stake_go_server/internal/model/dto"
	"github.com/qs3c/stake_go_server/internal/pkg/oss"
	"github.com/qs3c/stake_go_server/internal/repository"
)

var (
	ErrInvalidTeamLevel     = errors.New("团队层级超出范围")
	ErrMilestoneNotFound    = errors.New("晋升里程碑不存在")
	ErrMilestoneNotAchieved = errors.New("尚未达到晋升条件")
	ErrMilestoneClaimed     = errors.New("该晋升奖励已领取")
)

type TeamService struct {
	db        *gorm.DB
	teamRepo  *repository.TeamRepository
	userRepo  *repository.UserRepository
	stakeRepo *repository.StakeRepository
	balRepo   *repository.BalanceRepository
	txRepo    *repository.TransactionRepository
	ossClient *oss.Client
	cfg       *config.Config
}

func NewTeamService(
	db *gorm.DB,
	teamRepo *repository.TeamRepository,
	userRepo *repository.UserRepository,
	stakeRepo *repository.StakeRepository,
	balRepo *repository.BalanceRepository,
	txRepo *repository.TransactionRepository,
	ossClient *oss.Client,
	cfg *config.Config,
) *TeamService {
	return &TeamService{
		db:        db,
		teamRepo:  teamRepo,
		userRepo:  userRepo,
		stakeRepo: stakeRepo,
		balRepo:   balRepo,
		txRepo:    txRepo,
		ossClient: ossClient,
		cfg:       cfg,
	}
}

// expandLevels 从根用户逐层展开邀请树，返回 1..maxLevel 每层的
// 用户 ID。已访问集合兜底脏数据成环，层数硬上限封死遍历深度。
func (s *TeamService) expandLevels(rootID int64, maxLevel int) ([][]int64, error) {
	if maxLevel > s.cfg.Staking.MaxTeamLevels {
		maxLevel = s.cfg.Staking.MaxTeamLevels
	}

	visited := map[int64]struct{}{rootID: {}}
	frontier := []int64{rootID}
	levels := make([][]int64, 0, maxLevel)

	for level := 1; level <= maxLevel; level++ {
		if len(frontier) == 0 {
			break
		}

		edges, err := s.teamRepo.ListBySponsors(frontier)
		if err != nil {
			return nil, err
		}

		next := make([]int64, 0, len(edges))
		for _, e := range edges {
			if _, seen := visited[e.UserID]; seen {
				continue
			}
			visited[e.UserID] = struct{}{}
			next = append(next, e.UserID)
		}

		levels = append(levels, next)
		frontier = next
	}

	return levels, nil
}

// GetTeamMembers 某一层的团队成员，分页
func (s *TeamService) GetTeamMembers(userID int64, level, page, pageSize int) ([]dto.TeamMemberInfo, int64, error) {
	if level < 1 || level > s.cfg.Staking.MaxTeamLevels {
		return nil, 0, fmt.Errorf("%w：1-%d", ErrInvalidTeamLevel, s.cfg.Staking.MaxTeamLevels)
	}

	levels, err := s.expandLevels(userID, level)
	if err != nil {
		return nil, 0, err
	}
	if len(levels) < level {
		return []dto.TeamMemberInfo{}, 0, nil
	}

	memberIDs := levels[level-1]
	total := int64(len(memberIDs))

	// 层内按加入顺序稳定分页
	start := (page - 1) * pageSize
	if start >= len(memberIDs) {
		return []dto.TeamMemberInfo{}, total, nil
	}
	end := start + pageSize
	if end > len(memberIDs) {
		end = len(memberIDs)
	}
	pageIDs := memberIDs[start:end]

	users, err := s.userRepo.GetByIDs(pageIDs)
	if err != nil {
		return nil, 0, err
	}
	userByID := make(map[int64]*model.User, len(users))
	for i := range users {
		userByID[users[i].ID] = &users[i]
	}

	directCounts, err := s.teamRepo.CountBySponsors(pageIDs)
	if err != nil {
		return nil, 0, err
	}

	onStakingByUser, err := s.stakeRepo.SumOnStakingGroupedByUser(pageIDs)
	if err != nil {
		return nil, 0, err
	}

	out := make([]dto.TeamMemberInfo, 0, len(pageIDs))
	for _, id := range pageIDs {
		u, ok := userByID[id]
		if !ok {
			continue
		}

		out = append(out, dto.TeamMemberInfo{
			UserID:      u.ID,
			Username:    u.Username,
			Level:       level,
			OnStaking:   onStakingByUser[id],
			JoinedAt:    u.CreatedAt.Format(time.RFC3339),
			DirectCount: int(directCounts[id]),
		})
	}
	return out, total, nil
}

// GetTeamStats 团队概览：层级人数、业绩、推荐收益
func (s *TeamService) GetTeamStats(userID int64) (*dto.TeamStats, error) {
	levels, err := s.expandLevels(userID, s.cfg.Staking.MaxTeamLevels)
	if err != nil {
		return nil, err
	}

	stats := &dto.TeamStats{
		Levels: make([]dto.TeamLevelStat, 0, len(levels)),
	}

	for i, ids := range levels {
		volume, err := s.stakeRepo.SumOnStakingByUsers(ids)
		if err != nil {
			return nil, err
		}

		stats.TotalMembers += len(ids)
		stats.TeamVolume += volume
		if i == 0 {
			stats.DirectMembers = len(ids)
		}
		stats.Levels = append(stats.Levels, dto.TeamLevelStat{
			Level:   i + 1,
			Members: len(ids),
			Volume:  volume,
		})
	}

	stats.DirectEarnings, err = s.teamRepo.SumEarningsByKind(userID, model.TeamEarningDirectBonus)
	if err != nil {
		return nil, err
	}
	stats.TeamEarnings, err = s.teamRepo.SumEarningsByKind(userID, model.TeamEarningTeamReward)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// GetSphereImages 各层级球体图资源
func (s *TeamService) GetSphereImages() []dto.SphereImage {
	out := make([]dto.SphereImage, 0, s.cfg.Staking.MaxTeamLevels)
	for level := 1; level <= s.cfg.Staking.MaxTeamLevels; level++ {
		url := ""
		if s.ossClient != nil {
			url = s.ossClient.SphereImageURL(level)
		}
		out = append(out, dto.SphereImage{Level: level, URL: url})
	}
	return out
}

// GetPromotionStatus 各里程碑的达成与领取状态
func (s *TeamService) GetPromotionStatus(userID int64) ([]dto.PromotionMilestoneInfo, error) {
	directCount, teamVolume, err := s.promotionProgress(userID)
	if err != nil {
		return nil, err
	}

	claims, err := s.teamRepo.ListClaimsByUser(userID)
	if err != nil {
		return nil, err
	}
	claimed := make(map[int]struct{}, len(claims))
	for _, c := range claims {
		claimed[c.MilestoneID] = struct{}{}
	}

	out := make([]dto.PromotionMilestoneInfo, 0, len(s.cfg.Promotion.Milestones))
	for _, m := range s.cfg.Promotion.Milestones {
		_, isClaimed := claimed[m.ID]
		out = append(out, dto.PromotionMilestoneInfo{
			ID:          m.ID,
			Name:        m.Name,
			DirectCount: m.DirectCount,
			TeamVolume:  m.TeamVolume,
			Reward:      m.Reward,
			Achieved:    directCount >= int64(m.DirectCount) && teamVolume >= m.TeamVolume,
			Claimed:     isClaimed,
		})
	}
	return out, nil
}

// ClaimPromotion 领取晋升奖励，唯一索引兜底重复领取
func (s *TeamService) ClaimPromotion(userID int64, milestoneID int) (*dto.ClaimPromotionResponse, error) {
	var milestone *config.PromotionMilestone
	for i := range s.cfg.Promotion.Milestones {
		if s.cfg.Promotion.Milestones[i].ID == milestoneID {
			milestone = &s.cfg.Promotion.Milestones[i]
			break
		}
	}
	if milestone == nil {
		return nil, ErrMilestoneNotFound
	}

	directCount, teamVolume, err := s.promotionProgress(userID)
	if err != nil {
		return nil, err
	}
	if directCount < int64(milestone.DirectCount) || teamVolume < milestone.TeamVolume {
		return nil, ErrMilestoneNotAchieved
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		teamRepo := s.teamRepo.WithTx(tx)

		has, err := teamRepo.HasClaim(userID, milestoneID)
		if err != nil {
			return err
		}
		if has {
			return ErrMilestoneClaimed
		}

		claim := &model.PromotionClaim{
			UserID:      userID,
			MilestoneID: milestoneID,
			Reward:      milestone.Reward,
		}
		if err := teamRepo.CreateClaim(claim); err != nil {
			return err
		}

		if err := s.balRepo.WithTx(tx).AddBalance(userID, milestone.Reward); err != nil {
			return err
		}

		earning := &model.TeamEarningRecord{
			UserID:     userID,
			FromUserID: userID,
			Level:      0,
			Amount:     milestone.Reward,
			Kind:       model.TeamEarningPromotion,
		}
		if err := teamRepo.CreateEarning(earning); err != nil {
			return err
		}

		record := &model.TransactionRecord{
			UserID:      userID,
			OrderID:     uuid.NewString(),
			Type:        model.TxTypeBonus,
			Amount:      milestone.Reward,
			Status:      model.TxStatusCompleted,
			Description: fmt.Sprintf("晋升奖励 %s", milestone.Name),
		}
		return s.txRepo.WithTx(tx).Create(record)
	})
	if err != nil {
		return nil, err
	}

	return &dto.ClaimPromotionResponse{
		MilestoneID: milestoneID,
		Reward:      milestone.Reward,
	}, nil
}

func (s *TeamService) promotionProgress(userID int64) (int64, float64, error) {
	directCount, err := s.teamRepo.CountBySponsor(userID)
	if err != nil {
		return 0, 0, err
	}

	levels, err := s.expandLevels(userID, s.cfg.Staking.MaxTeamLevels)
	if err != nil {
		return 0, 0, err
	}

	var allIDs []int64
	for _, ids := range levels {
		allIDs = append(allIDs, ids...)
	}
	teamVolume, err := s.stakeRepo.SumOnStakingByUsers(allIDs)
	if err != nil {
		return 0, 0, err
	}

	return directCount, teamVolume, nil
}
