package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/config"
	"github.com/qs3c/stake_go_server/internal/model"
	"github.com/qs3c/stake_go_server/internal/pkg/queue"
	"github.com/qs3c/stake_go_server/internal/repository"
	"github.com/qs3c/stake_go_server/internal/testutil"
)

func setupProcessor(t *testing.T) (*Processor, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		Staking: config.StakingConfig{DirectBonusRate: 0.05, CooldownDays: 3, MaxTeamLevels: 10},
	}

	processor := NewProcessor(
		db,
		client,
		repository.NewStakeRepository(db),
		repository.NewVoucherRepository(db),
		repository.NewBalanceRepository(db),
		repository.NewTransactionRepository(db),
		nil,
		cfg,
	)

	cleanup := func() {
		client.Close()
		mr.Close()
		testutil.CleanupTestDB(t, db)
	}
	return processor, db, cleanup
}

func TestProcessor_VoucherBatch(t *testing.T) {
	processor, db, cleanup := setupProcessor(t)
	defer cleanup()

	expires := time.Now().Add(30 * 24 * time.Hour)
	batch := &model.VoucherBatch{
		CreatedBy:     1,
		Count:         20,
		Type:          model.VoucherTypePackage,
		Value:         100,
		AffectsMaxCap: true,
		ExpiresAt:     &expires,
		Status:        model.BatchStatusQueued,
	}
	require.NoError(t, db.Create(batch).Error)

	err := processor.Process(context.Background(), &queue.JobMessage{
		Type:    queue.JobVoucherBatch,
		BatchID: batch.ID,
	})
	require.NoError(t, err)

	var updated model.VoucherBatch
	require.NoError(t, db.First(&updated, batch.ID).Error)
	assert.Equal(t, model.BatchStatusCompleted, updated.Status)
	assert.Equal(t, 20, updated.Generated)
	assert.NotNil(t, updated.CompletedAt)

	var vouchers []model.Voucher
	require.NoError(t, db.Where("batch_id = ?", batch.ID).Find(&vouchers).Error)
	require.Len(t, vouchers, 20)

	// 券码唯一且参数随批次
	codes := make(map[string]struct{}, len(vouchers))
	for _, v := range vouchers {
		codes[v.Code] = struct{}{}
		assert.Equal(t, model.VoucherTypePackage, v.Type)
		assert.Equal(t, 100.0, v.Value)
		assert.True(t, v.AffectsMaxCap)
		assert.Equal(t, model.VoucherStatusActive, v.Status)
		assert.NotNil(t, v.ExpiresAt)
	}
	assert.Len(t, codes, 20)
}

func TestProcessor_VoucherBatch_SkipsNonQueued(t *testing.T) {
	processor, db, cleanup := setupProcessor(t)
	defer cleanup()

	batch := &model.VoucherBatch{
		CreatedBy: 1,
		Count:     5,
		Type:      model.VoucherTypeWithdraw,
		Value:     50,
		Status:    model.BatchStatusCompleted,
	}
	require.NoError(t, db.Create(batch).Error)

	err := processor.Process(context.Background(), &queue.JobMessage{
		Type:    queue.JobVoucherBatch,
		BatchID: batch.ID,
	})
	require.NoError(t, err)

	var count int64
	db.Model(&model.Voucher{}).Where("batch_id = ?", batch.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestProcessor_ROIDistribution(t *testing.T) {
	processor, db, cleanup := setupProcessor(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	entry := testutil.TestStake(t, db, user.ID)
	require.NoError(t, db.Model(&model.UserBalance{}).Where("user_id = ?", user.ID).
		Update("daily_earning", 1.0).Error)

	err := processor.Process(context.Background(), &queue.JobMessage{
		Type: queue.JobROIDistribution,
		Day:  "2026-08-31",
	})
	require.NoError(t, err)

	// 每日收益 = 100 * 1.0% = 1
	var updated model.StakingEntry
	require.NoError(t, db.First(&updated, entry.ID).Error)
	assert.Equal(t, 1.0, updated.TotalEarned)
	assert.Equal(t, model.StakeStatusActive, updated.Status)

	balance := testutil.GetBalance(t, db, user.ID)
	assert.Equal(t, 1.0, balance.Balance)
	assert.Equal(t, 1.0, balance.TotalEarned)

	var record model.TransactionRecord
	require.NoError(t, db.Where("user_id = ? AND type = ?", user.ID, model.TxTypeReward).First(&record).Error)
	assert.Equal(t, 1.0, record.Amount)
}

func TestProcessor_ROIDistribution_Idempotent(t *testing.T) {
	processor, db, cleanup := setupProcessor(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestStake(t, db, user.ID)

	msg := &queue.JobMessage{Type: queue.JobROIDistribution, Day: "2026-08-31"}
	require.NoError(t, processor.Process(context.Background(), msg))
	// 同一天重复投递不再发放
	require.NoError(t, processor.Process(context.Background(), msg))

	balance := testutil.GetBalance(t, db, user.ID)
	assert.Equal(t, 1.0, balance.Balance)

	var count int64
	db.Model(&model.TransactionRecord{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestProcessor_ROIDistribution_CapsEntry(t *testing.T) {
	processor, db, cleanup := setupProcessor(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	// 距离封顶只剩 0.4，当日收益 1 只发 0.4 并出局
	entry := testutil.TestStake(t, db, user.ID, testutil.WithTotalEarned(179.6))
	require.NoError(t, db.Model(&model.UserBalance{}).Where("user_id = ?", user.ID).
		Updates(map[string]interface{}{"on_staking": 100.0, "daily_earning": 1.0, "max_earn": 180.0}).Error)

	err := processor.Process(context.Background(), &queue.JobMessage{
		Type: queue.JobROIDistribution,
		Day:  "2026-08-31",
	})
	require.NoError(t, err)

	var updated model.StakingEntry
	require.NoError(t, db.First(&updated, entry.ID).Error)
	assert.InDelta(t, 180.0, updated.TotalEarned, 1e-9)
	assert.Equal(t, model.StakeStatusCompleted, updated.Status)
	assert.NotNil(t, updated.EndDate)

	balance := testutil.GetBalance(t, db, user.ID)
	assert.InDelta(t, 0.4, balance.Balance, 1e-9)
	assert.Equal(t, 0.0, balance.OnStaking)
	assert.Equal(t, 0.0, balance.DailyEarning)
	assert.InDelta(t, 0.0, balance.MaxEarn, 1e-9)
}

func TestProcessor_ROIDistribution_FlushedVoucherEntry(t *testing.T) {
	processor, db, cleanup := setupProcessor(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	// 流水型代金券单：不封顶，持续发放
	entry := testutil.TestStake(t, db, user.ID, testutil.WithFromVoucher(0), testutil.WithTotalEarned(500))
	roiEnd := time.Now().Add(10 * 24 * time.Hour)
	voucher := testutil.TestVoucher(t, db,
		testutil.WithVoucherOwner(user.ID),
		testutil.WithVoucherStatus(model.VoucherStatusUsed))
	require.NoError(t, db.Model(&model.Voucher{}).Where("id = ?", voucher.ID).
		Updates(map[string]interface{}{"applied_to_stake_id": entry.ID, "roi_end_at": roiEnd}).Error)

	err := processor.Process(context.Background(), &queue.JobMessage{
		Type: queue.JobROIDistribution,
		Day:  "2026-08-31",
	})
	require.NoError(t, err)

	// 已超过名义封顶（500 > 180）仍然发放
	var updated model.StakingEntry
	require.NoError(t, db.First(&updated, entry.ID).Error)
	assert.Equal(t, 501.0, updated.TotalEarned)
	assert.Equal(t, model.StakeStatusActive, updated.Status)
}

func TestProcessor_ROIDistribution_FlushedVoucherExpiry(t *testing.T) {
	processor, db, cleanup := setupProcessor(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	entry := testutil.TestStake(t, db, user.ID, testutil.WithFromVoucher(0))
	require.NoError(t, db.Model(&model.UserBalance{}).Where("user_id = ?", user.ID).
		Updates(map[string]interface{}{"on_staking": 100.0, "daily_earning": 1.0}).Error)

	roiEnd := time.Now().Add(-time.Hour)
	voucher := testutil.TestVoucher(t, db,
		testutil.WithVoucherOwner(user.ID),
		testutil.WithVoucherStatus(model.VoucherStatusUsed))
	require.NoError(t, db.Model(&model.Voucher{}).Where("id = ?", voucher.ID).
		Updates(map[string]interface{}{"applied_to_stake_id": entry.ID, "roi_end_at": roiEnd}).Error)

	err := processor.Process(context.Background(), &queue.JobMessage{
		Type: queue.JobROIDistribution,
		Day:  "2026-08-31",
	})
	require.NoError(t, err)

	// 有效期已过：结束质押单，当日不发放，不退本金
	var updated model.StakingEntry
	require.NoError(t, db.First(&updated, entry.ID).Error)
	assert.Equal(t, model.StakeStatusCompleted, updated.Status)
	assert.Equal(t, 0.0, updated.TotalEarned)

	balance := testutil.GetBalance(t, db, user.ID)
	assert.Equal(t, 0.0, balance.Balance)
	assert.Equal(t, 0.0, balance.OnStaking)
}

func TestProcessor_UnknownJobType(t *testing.T) {
	processor, _, cleanup := setupProcessor(t)
	defer cleanup()

	err := processor.Process(context.Background(), &queue.JobMessage{Type: "bogus"})
	assert.Error(t, err)
}
