package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/config"
	"github.com/qs3c/stake_go_server/internal/model"
	"github.com/qs3c/stake_go_server/internal/pkg/pubsub"
	"github.com/qs3c/stake_go_server/internal/pkg/queue"
	"github.com/qs3c/stake_go_server/internal/pkg/vouchercode"
	"github.com/qs3c/stake_go_server/internal/repository"
)

const (
	voucherInsertBatchSize = 500
	roiScanBatchSize       = 200
)

// Processor 后台任务处理器
type Processor struct {
	db          *gorm.DB
	redisClient *redis.Client
	stakeRepo   *repository.StakeRepository
	voucherRepo *repository.VoucherRepository
	balRepo     *repository.BalanceRepository
	txRepo      *repository.TransactionRepository
	publisher   *pubsub.Publisher
	cfg         *config.Config
}

// NewProcessor 创建任务处理器
func NewProcessor(
	db *gorm.DB,
	redisClient *redis.Client,
	stakeRepo *repository.StakeRepository,
	voucherRepo *repository.VoucherRepository,
	balRepo *repository.BalanceRepository,
	txRepo *repository.TransactionRepository,
	publisher *pubsub.Publisher,
	cfg *config.Config,
) *Processor {
	return &Processor{
		db:          db,
		redisClient: redisClient,
		stakeRepo:   stakeRepo,
		voucherRepo: voucherRepo,
		balRepo:     balRepo,
		txRepo:      txRepo,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// Process 按任务类型分发
func (p *Processor) Process(ctx context.Context, msg *queue.JobMessage) error {
	switch msg.Type {
	case queue.JobVoucherBatch:
		return p.processVoucherBatch(ctx, msg.BatchID)
	case queue.JobROIDistribution:
		return p.processROIDistribution(ctx, msg.Day)
	default:
		return fmt.Errorf("未知任务类型: %s", msg.Type)
	}
}

// processVoucherBatch 按批次参数生成代金券
func (p *Processor) processVoucherBatch(ctx context.Context, batchID int64) error {
	batch, err := p.voucherRepo.GetBatchByID(batchID)
	if err != nil {
		return fmt.Errorf("failed to get batch: %w", err)
	}
	if batch == nil {
		return fmt.Errorf("代金券批次不存在: %d", batchID)
	}
	if batch.Status != model.BatchStatusQueued {
		log.Printf("Batch %d already %s, skipping", batchID, batch.Status)
		return nil
	}

	if err := p.voucherRepo.UpdateBatchFields(batchID, map[string]interface{}{
		"status": model.BatchStatusProcessing,
	}); err != nil {
		return err
	}

	fail := func(err error) error {
		p.voucherRepo.UpdateBatchFields(batchID, map[string]interface{}{
			"status":        model.BatchStatusFailed,
			"error_message": err.Error(),
		})
		return err
	}

	vouchers := make([]model.Voucher, 0, batch.Count)
	for i := 0; i < batch.Count; i++ {
		code, err := vouchercode.Generate()
		if err != nil {
			return fail(fmt.Errorf("failed to generate code: %w", err))
		}

		v := model.Voucher{
			Code:                code,
			Type:                batch.Type,
			Value:               batch.Value,
			PackageID:           batch.PackageID,
			ROIValidityDays:     batch.ROIValidityDays,
			AffectsMaxCap:       batch.AffectsMaxCap,
			RequiresRealPackage: batch.RequiresRealPackage,
			Status:              model.VoucherStatusActive,
			UserID:              batch.UserID,
			BatchID:             &batch.ID,
			ExpiresAt:           batch.ExpiresAt,
		}
		vouchers = append(vouchers, v)
	}

	if err := p.voucherRepo.CreateInBatches(vouchers, voucherInsertBatchSize); err != nil {
		return fail(fmt.Errorf("failed to insert vouchers: %w", err))
	}

	now := time.Now()
	if err := p.voucherRepo.UpdateBatchFields(batchID, map[string]interface{}{
		"status":       model.BatchStatusCompleted,
		"generated":    len(vouchers),
		"completed_at": now,
	}); err != nil {
		return err
	}

	log.Printf("Batch %d completed: %d vouchers generated", batchID, len(vouchers))
	return nil
}

// processROIDistribution 每日收益发放。Redis SetNX 做当日幂等，
// 逐单独立事务，单笔失败不影响其余质押单。
func (p *Processor) processROIDistribution(ctx context.Context, day string) error {
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	}

	lockKey := fmt.Sprintf("roi:done:%s", day)
	ok, err := p.redisClient.SetNX(ctx, lockKey, 1, 48*time.Hour).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire roi lock: %w", err)
	}
	if !ok {
		log.Printf("ROI distribution for %s already done, skipping", day)
		return nil
	}

	var processed, capped, failed int
	var afterID int64

	for {
		entries, err := p.stakeRepo.ListAllActive(afterID, roiScanBatchSize)
		if err != nil {
			return fmt.Errorf("failed to list active stakes: %w", err)
		}
		if len(entries) == 0 {
			break
		}

		for i := range entries {
			entry := &entries[i]
			afterID = entry.ID

			hitCap, err := p.distributeEntryROI(ctx, entry)
			if err != nil {
				log.Printf("ROI for stake %d failed: %v", entry.ID, err)
				failed++
				continue
			}
			processed++
			if hitCap {
				capped++
			}
		}

		if len(entries) < roiScanBatchSize {
			break
		}
	}

	log.Printf("ROI distribution %s done: processed=%d, capped=%d, failed=%d",
		day, processed, capped, failed)
	return nil
}

// distributeEntryROI 给单笔质押发当日收益，返回是否触发封顶
func (p *Processor) distributeEntryROI(ctx context.Context, entry *model.StakingEntry) (bool, error) {
	daily := entry.Amount * entry.DailyROI / 100

	// 流水型代金券质押：不计封顶，只在有效期内发放
	if entry.FromVoucher && entry.MaxEarning <= 0 {
		voucher, err := p.voucherRepo.GetByStakeID(entry.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
		if voucher != nil && voucher.ROIEndAt != nil && time.Now().After(*voucher.ROIEndAt) {
			return false, p.expireFlushedEntry(ctx, entry)
		}
		return false, p.creditEarning(ctx, entry, daily, false)
	}

	pay := daily
	remaining := entry.RemainingCap()
	hitCap := false
	if pay >= remaining {
		pay = remaining
		hitCap = true
	}

	if pay <= 0 {
		// 已到顶但状态未翻转，补一次翻转
		return true, p.creditEarning(ctx, entry, 0, true)
	}

	return hitCap, p.creditEarning(ctx, entry, pay, hitCap)
}

// creditEarning 事务内入账：质押单累计、钱包余额、流水，
// 封顶时同步翻转状态并释放锁定本金
func (p *Processor) creditEarning(ctx context.Context, entry *model.StakingEntry, pay float64, hitCap bool) error {
	daily := entry.Amount * entry.DailyROI / 100

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if pay > 0 {
			stakeFields := map[string]interface{}{
				"total_earned": gorm.Expr("total_earned + ?", pay),
			}
			if err := p.stakeRepo.WithTx(tx).UpdateFields(entry.ID, stakeFields); err != nil {
				return err
			}

			balFields := map[string]interface{}{
				"balance":      gorm.Expr("balance + ?", pay),
				"total_earned": gorm.Expr("total_earned + ?", pay),
			}
			if err := p.balRepo.WithTx(tx).UpdateFields(entry.UserID, balFields); err != nil {
				return err
			}

			record := &model.TransactionRecord{
				UserID:      entry.UserID,
				OrderID:     uuid.NewString(),
				Type:        model.TxTypeReward,
				Amount:      pay,
				Status:      model.TxStatusCompleted,
				Description: fmt.Sprintf("每日收益 %s", entry.PackageName),
			}
			if err := p.txRepo.WithTx(tx).Create(record); err != nil {
				return err
			}
		}

		if hitCap {
			now := time.Now()
			if err := p.stakeRepo.WithTx(tx).UpdateFields(entry.ID, map[string]interface{}{
				"status":   model.StakeStatusCompleted,
				"end_date": now,
			}); err != nil {
				return err
			}
			// 封顶出局：释放锁定本金、日收益和收益额度
			return p.balRepo.WithTx(tx).UpdateFields(entry.UserID, map[string]interface{}{
				"on_staking":    gorm.Expr("on_staking - ?", entry.Amount),
				"daily_earning": gorm.Expr("daily_earning - ?", daily),
				"max_earn":      gorm.Expr("max_earn - ?", entry.MaxEarning),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	if pay > 0 {
		p.publish(ctx, &pubsub.WalletEvent{
			Type:    pubsub.EventDailyEarning,
			UserID:  entry.UserID,
			StakeID: entry.ID,
			Amount:  pay,
			Message: fmt.Sprintf("每日收益已到账 %.2f", pay),
		})
	}
	if hitCap {
		p.publish(ctx, &pubsub.WalletEvent{
			Type:    pubsub.EventStakeCapped,
			UserID:  entry.UserID,
			StakeID: entry.ID,
			Message: fmt.Sprintf("%s 已达到收益上限并出局", entry.PackageName),
		})
	}
	return nil
}

// expireFlushedEntry 流水型代金券到期：结束质押单，不退本金
func (p *Processor) expireFlushedEntry(ctx context.Context, entry *model.StakingEntry) error {
	daily := entry.Amount * entry.DailyROI / 100

	return p.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := p.stakeRepo.WithTx(tx).UpdateFields(entry.ID, map[string]interface{}{
			"status":   model.StakeStatusCompleted,
			"end_date": now,
		}); err != nil {
			return err
		}
		return p.balRepo.WithTx(tx).UpdateFields(entry.UserID, map[string]interface{}{
			"on_staking":    gorm.Expr("on_staking - ?", entry.Amount),
			"daily_earning": gorm.Expr("daily_earning - ?", daily),
		})
	})
}

func (p *Processor) publish(ctx context.Context, event *pubsub.WalletEvent) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		log.Printf("Failed to publish event: %v", err)
	}
}
