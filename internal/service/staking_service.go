package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/config"
	"github.com/qs3c/stake_go_server/internal/model"
	"github.com/qs3c/stake_go_server/internal/model/dto"
	"github.com/qs3c/stake_go_server/internal/pkg/pubsub"
	"github.com/qs3c/stake_go_server/internal/repository"
)

var (
	ErrStakeNotFound       = errors.New("质押单不存在")
	ErrInvalidAmount       = errors.New("金额与任何套餐不匹配")
	ErrInsufficientBalance = errors.New("余额不足")
	ErrInvalidStakeStatus  = errors.New("质押单状态不允许该操作")
	ErrCooldownActive      = errors.New("冷却期未结束")
)

type StakingService struct {
	db        *gorm.DB
	stakeRepo *repository.StakeRepository
	balRepo   *repository.BalanceRepository
	userRepo  *repository.UserRepository
	teamRepo  *repository.TeamRepository
	txRepo    *repository.TransactionRepository
	publisher *pubsub.Publisher
	cfg       *config.Config
}

func NewStakingService(
	db *gorm.DB,
	stakeRepo *repository.StakeRepository,
	balRepo *repository.BalanceRepository,
	userRepo *repository.UserRepository,
	teamRepo *repository.TeamRepository,
	txRepo *repository.TransactionRepository,
	publisher *pubsub.Publisher,
	cfg *config.Config,
) *StakingService {
	return &StakingService{
		db:        db,
		stakeRepo: stakeRepo,
		balRepo:   balRepo,
		userRepo:  userRepo,
		teamRepo:  teamRepo,
		txRepo:    txRepo,
		publisher: publisher,
		cfg:       cfg,
	}
}

// GetPackages 可见套餐列表
func (s *StakingService) GetPackages() []dto.PackageInfo {
	pkgs := s.cfg.VisiblePackages()
	out := make([]dto.PackageInfo, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, dto.PackageInfo{
			ID:         p.ID,
			Name:       p.Name,
			Amount:     p.Amount,
			DailyROI:   p.DailyROI,
			Cap:        p.Cap,
			MaxEarning: p.Amount * p.Cap,
		})
	}
	return out
}

// ListEntries 用户质押单分页
func (s *StakingService) ListEntries(userID int64, page, pageSize int) ([]dto.StakeInfo, int64, error) {
	entries, total, err := s.stakeRepo.ListByUser(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	out := make([]dto.StakeInfo, 0, len(entries))
	for i := range entries {
		out = append(out, buildStakeInfo(&entries[i]))
	}
	return out, total, nil
}

// CreateStake 订购套餐：金额必须精确匹配某个可见套餐。
// 余额在事务内二次校验，堵住并发下单的窗口。
func (s *StakingService) CreateStake(userID int64, amount float64) (*dto.CreateStakeResponse, error) {
	pkg := s.cfg.FindPackageByAmount(amount)
	if pkg == nil {
		return nil, fmt.Errorf("%w，可选金额：%s", ErrInvalidAmount, s.validAmounts())
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	now := time.Now()
	entry := &model.StakingEntry{
		UserID:      userID,
		PackageID:   pkg.ID,
		PackageName: pkg.Name,
		Amount:      pkg.Amount,
		DailyROI:    pkg.DailyROI,
		Cap:         pkg.Cap,
		MaxEarning:  pkg.Amount * pkg.Cap,
		Status:      model.StakeStatusActive,
		StartDate:   now,
	}

	var bonusCredited float64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		balRepo := s.balRepo.WithTx(tx)

		balance, err := balRepo.GetByUserID(userID)
		if err != nil {
			return err
		}
		if balance.Balance < amount {
			return ErrInsufficientBalance
		}

		if err := s.stakeRepo.WithTx(tx).Create(entry); err != nil {
			return err
		}

		balance.Balance -= amount
		balance.OnStaking += amount
		balance.MaxEarn += entry.MaxEarning
		balance.DailyEarning += amount * pkg.DailyROI / 100
		if err := balRepo.Update(balance); err != nil {
			return err
		}

		record := &model.TransactionRecord{
			UserID:      userID,
			OrderID:     uuid.NewString(),
			Type:        model.TxTypeStake,
			Amount:      amount,
			Status:      model.TxStatusCompleted,
			Description: fmt.Sprintf("订购套餐 %s", pkg.Name),
		}
		if err := s.txRepo.WithTx(tx).Create(record); err != nil {
			return err
		}

		// 直推奖励：代金券产生的质押单不走这里
		if user.InviterID != nil {
			bonus := amount * s.cfg.Staking.DirectBonusRate
			credited, err := s.distributeDirectBonus(tx, *user.InviterID, userID, bonus)
			if err != nil {
				return err
			}
			bonusCredited = credited
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if bonusCredited > 0 && user.InviterID != nil {
		s.publish(&pubsub.WalletEvent{
			Type:    pubsub.EventDirectBonus,
			UserID:  *user.InviterID,
			StakeID: entry.ID,
			Amount:  bonusCredited,
			Message: fmt.Sprintf("获得直推奖励 %.2f USDT", bonusCredited),
		})
	}

	return &dto.CreateStakeResponse{
		StakeID:     entry.ID,
		PackageName: entry.PackageName,
		Amount:      entry.Amount,
		MaxEarning:  entry.MaxEarning,
	}, nil
}

// distributeDirectBonus 把直推奖励分配到上级的可用质押单上。
// 真实质押单优先；只有在没有任何真实单时才使用有封顶额度的
// 代金券单。按开单时间从旧到新填充，放不下的部分计入
// missed_earnings，不排队补发。credited + missed == bonus。
func (s *StakingService) distributeDirectBonus(tx *gorm.DB, sponsorID, fromUserID int64, bonus float64) (float64, error) {
	stakeRepo := s.stakeRepo.WithTx(tx)
	balRepo := s.balRepo.WithTx(tx)

	entries, err := stakeRepo.ListActiveByUserOldest(sponsorID)
	if err != nil {
		return 0, err
	}

	eligible := eligibleBonusEntries(entries)

	balance, err := balRepo.GetByUserID(sponsorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 上级没有钱包（异常数据），奖励直接作废
			return 0, nil
		}
		return 0, err
	}

	now := time.Now()
	remaining := bonus
	credited := 0.0

	for i := range eligible {
		if remaining <= 0 {
			break
		}
		entry := eligible[i]

		take := math.Min(remaining, entry.RemainingCap())
		if take <= 0 {
			continue
		}

		entry.TotalEarned += take
		remaining -= take
		credited += take

		capped := entry.MaxEarning > 0 && entry.TotalEarned >= entry.MaxEarning
		if capped {
			entry.Status = model.StakeStatusCompleted
			entry.EndDate = &now
			// 封顶出局：本金从锁定中释放，收益额度一并解除
			balance.OnStaking -= entry.Amount
			balance.DailyEarning -= entry.Amount * entry.DailyROI / 100
			balance.MaxEarn -= entry.MaxEarning
		}

		if err := stakeRepo.Update(entry); err != nil {
			return 0, err
		}
	}

	missed := bonus - credited

	balance.Balance += credited
	balance.TotalEarned += credited
	balance.MissedEarnings += missed
	if err := balRepo.Update(balance); err != nil {
		return 0, err
	}

	if credited > 0 {
		earning := &model.TeamEarningRecord{
			UserID:     sponsorID,
			FromUserID: fromUserID,
			Level:      1,
			Amount:     credited,
			Kind:       model.TeamEarningDirectBonus,
		}
		if err := s.teamRepo.WithTx(tx).CreateEarning(earning); err != nil {
			return 0, err
		}

		record := &model.TransactionRecord{
			UserID:      sponsorID,
			OrderID:     uuid.NewString(),
			Type:        model.TxTypeBonus,
			Amount:      credited,
			Status:      model.TxStatusCompleted,
			Description: "直推奖励",
		}
		if err := s.txRepo.WithTx(tx).Create(record); err != nil {
			return 0, err
		}
	}

	return credited, nil
}

// eligibleBonusEntries 选出可承接奖励的质押单：
// 有真实单时只用真实单；否则退回到有封顶额度的代金券单。
func eligibleBonusEntries(entries []model.StakingEntry) []*model.StakingEntry {
	var real, voucher []*model.StakingEntry
	for i := range entries {
		e := &entries[i]
		if !e.FromVoucher {
			real = append(real, e)
		} else if e.MaxEarning > 0 {
			voucher = append(voucher, e)
		}
	}

	picked := real
	if len(picked) == 0 {
		picked = voucher
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].StartDate.Before(picked[j].StartDate)
	})
	return picked
}

// RequestUnstake 申请解押：active -> unstaking，进入冷却期
func (s *StakingService) RequestUnstake(userID, stakeID int64) (*dto.RequestUnstakeResponse, error) {
	entry, err := s.getOwnStake(userID, stakeID)
	if err != nil {
		return nil, err
	}
	if entry.Status != model.StakeStatusActive {
		return nil, fmt.Errorf("%w：当前状态 %s", ErrInvalidStakeStatus, entry.Status)
	}

	now := time.Now()
	cooldownEnd := now.Add(time.Duration(s.cfg.Staking.CooldownDays) * 24 * time.Hour)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 条件更新兜底并发重复申请
		result := tx.Model(&model.StakingEntry{}).
			Where("id = ? AND status = ?", stakeID, model.StakeStatusActive).
			Updates(map[string]interface{}{
				"status":               model.StakeStatusUnstaking,
				"unstake_requested_at": now,
				"cooldown_end_at":      cooldownEnd,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w：当前状态已变更", ErrInvalidStakeStatus)
		}

		// 冷却期内不再累计日收益
		return s.balRepo.WithTx(tx).UpdateFields(userID, map[string]interface{}{
			"daily_earning": gorm.Expr("daily_earning - ?", entry.Amount*entry.DailyROI/100),
		})
	})
	if err != nil {
		return nil, err
	}

	return &dto.RequestUnstakeResponse{
		StakeID:       stakeID,
		Status:        model.StakeStatusUnstaking,
		CooldownEndAt: cooldownEnd.Format(time.RFC3339),
	}, nil
}

// CompleteUnstake 冷却期结束后完成解押。
// 返还本金 = max(0, 本金 - 已得收益)：已发收益从本金里扣。
func (s *StakingService) CompleteUnstake(userID, stakeID int64) (*dto.CompleteUnstakeResponse, error) {
	entry, err := s.getOwnStake(userID, stakeID)
	if err != nil {
		return nil, err
	}
	if entry.Status != model.StakeStatusUnstaking {
		return nil, fmt.Errorf("%w：当前状态 %s", ErrInvalidStakeStatus, entry.Status)
	}

	now := time.Now()
	if entry.CooldownEndAt != nil && now.Before(*entry.CooldownEndAt) {
		hours := int(math.Ceil(entry.CooldownEndAt.Sub(now).Hours()))
		return nil, fmt.Errorf("%w：还需等待 %d 小时", ErrCooldownActive, hours)
	}

	var principalReturn, totalEarned float64

	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.StakingEntry{}).
			Where("id = ? AND status = ?", stakeID, model.StakeStatusUnstaking).
			Updates(map[string]interface{}{
				"status":   model.StakeStatusCompleted,
				"end_date": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w：当前状态已变更", ErrInvalidStakeStatus)
		}

		// 事务内重读已得收益，避免读取后又有收益入账导致多退本金
		fresh, err := s.stakeRepo.WithTx(tx).GetByID(stakeID)
		if err != nil {
			return err
		}
		totalEarned = fresh.TotalEarned
		principalReturn = math.Max(0, entry.Amount-totalEarned)

		balRepo := s.balRepo.WithTx(tx)
		balance, err := balRepo.GetByUserID(userID)
		if err != nil {
			return err
		}
		balance.Balance += principalReturn
		balance.OnStaking -= entry.Amount
		balance.MaxEarn -= entry.MaxEarning
		if err := balRepo.Update(balance); err != nil {
			return err
		}

		record := &model.TransactionRecord{
			UserID:      userID,
			OrderID:     uuid.NewString(),
			Type:        model.TxTypeUnstake,
			Amount:      principalReturn,
			Status:      model.TxStatusCompleted,
			Description: fmt.Sprintf("解押 %s", entry.PackageName),
		}
		return s.txRepo.WithTx(tx).Create(record)
	})
	if err != nil {
		return nil, err
	}

	s.publish(&pubsub.WalletEvent{
		Type:    pubsub.EventUnstakeReady,
		UserID:  userID,
		StakeID: stakeID,
		Amount:  principalReturn,
		Message: fmt.Sprintf("解押完成，本金返还 %.2f", principalReturn),
	})

	return &dto.CompleteUnstakeResponse{
		StakeID:         stakeID,
		PrincipalReturn: principalReturn,
		TotalEarned:     totalEarned,
		Status:          model.StakeStatusCompleted,
	}, nil
}

func (s *StakingService) getOwnStake(userID, stakeID int64) (*model.StakingEntry, error) {
	entry, err := s.stakeRepo.GetByID(stakeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStakeNotFound
		}
		return nil, err
	}
	if entry.UserID != userID {
		return nil, ErrStakeNotFound
	}
	return entry, nil
}

func (s *StakingService) validAmounts() string {
	pkgs := s.cfg.VisiblePackages()
	parts := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		parts = append(parts, fmt.Sprintf("%g", p.Amount))
	}
	return strings.Join(parts, " / ")
}

func (s *StakingService) publish(event *pubsub.WalletEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), event); err != nil {
		// 推送失败不影响主流程
		return
	}
}

func buildStakeInfo(e *model.StakingEntry) dto.StakeInfo {
	info := dto.StakeInfo{
		ID:          e.ID,
		PackageID:   e.PackageID,
		PackageName: e.PackageName,
		Amount:      e.Amount,
		DailyROI:    e.DailyROI,
		Cap:         e.Cap,
		MaxEarning:  e.MaxEarning,
		TotalEarned: e.TotalEarned,
		Status:      e.Status,
		FromVoucher: e.FromVoucher,
		StartDate:   e.StartDate.Format(time.RFC3339),
	}
	if e.UnstakeRequestedAt != nil {
		info.UnstakeRequestedAt = e.UnstakeRequestedAt.Format(time.RFC3339)
	}
	if e.CooldownEndAt != nil {
		info.CooldownEndAt = e.CooldownEndAt.Format(time.RFC3339)
	}
	if e.EndDate != nil {
		info.EndDate = e.EndDate.Format(time.RFC3339)
	}
	return info
}
