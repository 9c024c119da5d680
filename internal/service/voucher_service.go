package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/config"
	"github.com/qs3c/stake_go_server/internal/model"
	"github.com/qs3c/stake_go_server/internal/model/dto"
	"github.com/qs3c/stake_go_server/internal/pkg/pubsub"
	"github.com/qs3c/stake_go_server/internal/pkg/queue"
	"github.com/qs3c/stake_go_server/internal/pkg/vouchercode"
	"github.com/qs3c/stake_go_server/internal/repository"
)

var (
	ErrVoucherNotFound        = errors.New("代金券不存在")
	ErrVoucherNotOwned        = errors.New("代金券属于其他用户")
	ErrVoucherUsed            = errors.New("代金券已被使用")
	ErrVoucherExpired         = errors.New("代金券已过期")
	ErrVoucherWrongType       = errors.New("代金券类型不支持该操作")
	ErrVoucherPackageMismatch = errors.New("代金券面值与套餐金额不符")
	ErrRealPackageRequired    = errors.New("需要先持有真实套餐才能使用该代金券")
	ErrInvalidVoucherPackage  = errors.New("代金券未关联有效套餐")
)

type VoucherService struct {
	db          *gorm.DB
	voucherRepo *repository.VoucherRepository
	stakeRepo   *repository.StakeRepository
	balRepo     *repository.BalanceRepository
	txRepo      *repository.TransactionRepository
	jobQueue    *queue.Queue
	publisher   *pubsub.Publisher
	cfg         *config.Config
}

func NewVoucherService(
	db *gorm.DB,
	voucherRepo *repository.VoucherRepository,
	stakeRepo *repository.StakeRepository,
	balRepo *repository.BalanceRepository,
	txRepo *repository.TransactionRepository,
	jobQueue *queue.Queue,
	publisher *pubsub.Publisher,
	cfg *config.Config,
) *VoucherService {
	return &VoucherService{
		db:          db,
		voucherRepo: voucherRepo,
		stakeRepo:   stakeRepo,
		balRepo:     balRepo,
		txRepo:      txRepo,
		jobQueue:    jobQueue,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// ListVouchers 用户名下代金券，顺手把过了有效期的翻转成 expired
func (s *VoucherService) ListVouchers(userID int64, status, vtype string, page, pageSize int) ([]dto.VoucherInfo, int64, error) {
	vouchers, total, err := s.voucherRepo.ListByUser(userID, status, vtype, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now()
	out := make([]dto.VoucherInfo, 0, len(vouchers))
	for i := range vouchers {
		v := &vouchers[i]
		if v.Status == model.VoucherStatusActive && v.IsExpired(now) {
			if err := s.voucherRepo.MarkExpired(v.ID); err == nil {
				v.Status = model.VoucherStatusExpired
			}
		}
		out = append(out, buildVoucherInfo(v))
	}
	return out, total, nil
}

// RedeemByCode 按券码兑换。package 型转成质押单，
// 其余类型直接入钱包。
func (s *VoucherService) RedeemByCode(userID int64, code string, packageID *int) (*dto.RedeemVoucherResponse, error) {
	voucher, err := s.voucherRepo.GetByCode(vouchercode.Normalize(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}

	if err := s.checkRedeemable(userID, voucher); err != nil {
		return nil, err
	}

	resp := &dto.RedeemVoucherResponse{
		VoucherID: voucher.ID,
		Type:      voucher.Type,
		Value:     voucher.Value,
	}

	if voucher.Type == model.VoucherTypePackage {
		stakeResp, err := s.redeemIntoStake(userID, voucher, packageID)
		if err != nil {
			return nil, err
		}
		resp.StakeID = &stakeResp.StakeID
		return resp, nil
	}

	// withdraw / bonus / futures / trading_fee：入钱包
	err = s.db.Transaction(func(tx *gorm.DB) error {
		voucherRepo := s.voucherRepo.WithTx(tx)

		// 事务内二次校验状态，并发兑换只有一个赢家
		ok, err := voucherRepo.MarkUsed(voucher.ID, time.Now(), nil, nil)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVoucherUsed
		}

		if voucher.UserID == nil {
			if err := voucherRepo.AssignToUser(voucher.ID, userID); err != nil {
				return err
			}
		}

		if err := s.balRepo.WithTx(tx).AddBalance(userID, voucher.Value); err != nil {
			return err
		}

		record := &model.TransactionRecord{
			UserID:      userID,
			OrderID:     uuid.NewString(),
			Type:        model.TxTypeVoucher,
			Amount:      voucher.Value,
			Status:      model.TxStatusCompleted,
			Description: fmt.Sprintf("兑换代金券（%s）%s", voucher.Type, voucher.Code),
		}
		return s.txRepo.WithTx(tx).Create(record)
	})
	if err != nil {
		return nil, err
	}

	s.publish(&pubsub.WalletEvent{
		Type:    pubsub.EventVoucherUsed,
		UserID:  userID,
		Amount:  voucher.Value,
		Message: fmt.Sprintf("代金券 %s 兑换成功", voucher.Code),
	})

	return resp, nil
}

// UseVoucherForStake 把 package 型代金券转成质押单
func (s *VoucherService) UseVoucherForStake(userID, voucherID int64) (*dto.UseVoucherForStakeResponse, error) {
	voucher, err := s.voucherRepo.GetByID(voucherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}

	if err := s.checkRedeemable(userID, voucher); err != nil {
		return nil, err
	}
	return s.redeemIntoStake(userID, voucher, nil)
}

// checkRedeemable 兑换前置校验：归属、状态、有效期
func (s *VoucherService) checkRedeemable(userID int64, voucher *model.Voucher) error {
	if voucher.UserID != nil && *voucher.UserID != userID {
		return ErrVoucherNotOwned
	}

	switch voucher.Status {
	case model.VoucherStatusUsed:
		return ErrVoucherUsed
	case model.VoucherStatusExpired:
		return ErrVoucherExpired
	}

	if voucher.IsExpired(time.Now()) {
		// 过期自动翻转
		_ = s.voucherRepo.MarkExpired(voucher.ID)
		return ErrVoucherExpired
	}
	return nil
}

// redeemIntoStake 代金券 -> 质押单。affects_max_cap 为假时
// 收益不封顶（MaxEarning = 0，流水型）。不产生任何直推奖励
// 或团队收益。
func (s *VoucherService) redeemIntoStake(userID int64, voucher *model.Voucher, packageIDOverride *int) (*dto.UseVoucherForStakeResponse, error) {
	if voucher.Type != model.VoucherTypePackage {
		return nil, ErrVoucherWrongType
	}

	pkg := s.resolvePackage(voucher, packageIDOverride)
	if pkg == nil {
		return nil, ErrInvalidVoucherPackage
	}
	if voucher.Value != pkg.Amount {
		return nil, fmt.Errorf("%w：面值 %g，套餐 %g", ErrVoucherPackageMismatch, voucher.Value, pkg.Amount)
	}

	if voucher.RequiresRealPackage {
		count, err := s.stakeRepo.CountActiveRealByUser(userID)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrRealPackageRequired
		}
	}

	now := time.Now()
	maxEarning := 0.0
	if voucher.AffectsMaxCap {
		maxEarning = voucher.Value * pkg.Cap
	}

	var roiEndAt *time.Time
	if voucher.ROIValidityDays > 0 {
		end := now.Add(time.Duration(voucher.ROIValidityDays) * 24 * time.Hour)
		roiEndAt = &end
	}

	entry := &model.StakingEntry{
		UserID:      userID,
		PackageID:   pkg.ID,
		PackageName: pkg.Name,
		Amount:      voucher.Value,
		DailyROI:    pkg.DailyROI,
		Cap:         pkg.Cap,
		MaxEarning:  maxEarning,
		Status:      model.StakeStatusActive,
		FromVoucher: true,
		StartDate:   now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		voucherRepo := s.voucherRepo.WithTx(tx)

		if err := s.stakeRepo.WithTx(tx).Create(entry); err != nil {
			return err
		}

		// 事务内二次校验状态，最多兑换一次
		ok, err := voucherRepo.MarkUsed(voucher.ID, now, &entry.ID, roiEndAt)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVoucherUsed
		}

		if voucher.UserID == nil {
			if err := voucherRepo.AssignToUser(voucher.ID, userID); err != nil {
				return err
			}
		}

		balRepo := s.balRepo.WithTx(tx)
		balance, err := balRepo.GetByUserID(userID)
		if err != nil {
			return err
		}
		balance.OnStaking += voucher.Value
		balance.MaxEarn += maxEarning
		balance.DailyEarning += voucher.Value * pkg.DailyROI / 100
		if err := balRepo.Update(balance); err != nil {
			return err
		}

		record := &model.TransactionRecord{
			UserID:      userID,
			OrderID:     uuid.NewString(),
			Type:        model.TxTypeVoucher,
			Amount:      voucher.Value,
			Status:      model.TxStatusCompleted,
			Description: fmt.Sprintf("代金券 %s 兑换套餐 %s", voucher.Code, pkg.Name),
		}
		return s.txRepo.WithTx(tx).Create(record)
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.UseVoucherForStakeResponse{
		StakeID:     entry.ID,
		PackageName: pkg.Name,
		Amount:      entry.Amount,
		MaxEarning:  entry.MaxEarning,
	}
	if roiEndAt != nil {
		resp.ROIEndAt = roiEndAt.Format(time.RFC3339)
	}
	return resp, nil
}

// resolvePackage 目标套餐：请求里的 packageID 优先，其次券上
// 绑定的套餐，最后按面值精确匹配（含不可见的活动套餐）
func (s *VoucherService) resolvePackage(voucher *model.Voucher, packageIDOverride *int) *config.StakingPackage {
	if packageIDOverride != nil {
		return s.cfg.FindPackageByID(*packageIDOverride)
	}
	if voucher.PackageID != nil {
		return s.cfg.FindPackageByID(*voucher.PackageID)
	}
	for i := range s.cfg.Packages {
		if s.cfg.Packages[i].Amount == voucher.Value {
			return &s.cfg.Packages[i]
		}
	}
	return nil
}

// CreateBatch 管理端批量发券：落库后丢给 worker 异步生成
func (s *VoucherService) CreateBatch(adminID int64, req *dto.CreateVouchersRequest) (*dto.CreateVouchersResponse, error) {
	if req.Type == model.VoucherTypePackage && req.PackageID != nil {
		if s.cfg.FindPackageByID(*req.PackageID) == nil {
			return nil, ErrInvalidVoucherPackage
		}
	}

	batch := &model.VoucherBatch{
		CreatedBy:           adminID,
		Count:               req.Count,
		Type:                req.Type,
		Value:               req.Value,
		PackageID:           req.PackageID,
		ROIValidityDays:     req.ROIValidityDays,
		AffectsMaxCap:       req.AffectsMaxCap,
		RequiresRealPackage: req.RequiresRealPackage,
		UserID:              req.UserID,
		Status:              model.BatchStatusQueued,
	}
	if req.ExpiresInDays > 0 {
		expires := time.Now().Add(time.Duration(req.ExpiresInDays) * 24 * time.Hour)
		batch.ExpiresAt = &expires
	}

	if err := s.voucherRepo.CreateBatch(batch); err != nil {
		return nil, err
	}

	if s.jobQueue != nil {
		msg := &queue.JobMessage{Type: queue.JobVoucherBatch, BatchID: batch.ID}
		if err := s.jobQueue.Push(context.Background(), msg); err != nil {
			// 入队失败标记批次，等管理员重试
			_ = s.voucherRepo.UpdateBatchFields(batch.ID, map[string]interface{}{
				"status":        model.BatchStatusFailed,
				"error_message": err.Error(),
			})
			return nil, err
		}
	}

	return &dto.CreateVouchersResponse{
		BatchID: batch.ID,
		Status:  batch.Status,
	}, nil
}

// ListBatches 发券批次列表
func (s *VoucherService) ListBatches(page, pageSize int) ([]dto.VoucherBatchInfo, int64, error) {
	batches, total, err := s.voucherRepo.ListBatches(page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	out := make([]dto.VoucherBatchInfo, 0, len(batches))
	for _, b := range batches {
		out = append(out, dto.VoucherBatchInfo{
			ID:           b.ID,
			Count:        b.Count,
			Generated:    b.Generated,
			Type:         b.Type,
			Value:        b.Value,
			Status:       b.Status,
			ErrorMessage: b.ErrorMessage,
			CreatedAt:    b.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, total, nil
}

func (s *VoucherService) publish(event *pubsub.WalletEvent) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(context.Background(), event)
}

func buildVoucherInfo(v *model.Voucher) dto.VoucherInfo {
	info := dto.VoucherInfo{
		ID:                  v.ID,
		Code:                v.Code,
		Type:                v.Type,
		Value:               v.Value,
		PackageID:           v.PackageID,
		ROIValidityDays:     v.ROIValidityDays,
		AffectsMaxCap:       v.AffectsMaxCap,
		RequiresRealPackage: v.RequiresRealPackage,
		Status:              v.Status,
		AppliedToStakeID:    v.AppliedToStakeID,
	}
	if v.PackageName != nil {
		info.PackageName = *v.PackageName
	}
	if v.ExpiresAt != nil {
		info.ExpiresAt = v.ExpiresAt.Format(time.RFC3339)
	}
	if v.UsedAt != nil {
		info.UsedAt = v.UsedAt.Format(time.RFC3339)
	}
	return info
}
