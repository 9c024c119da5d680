package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/internal/model"
)

var fixtureSeq int64

func nextSeq() int64 {
	fixtureSeq++
	return time.Now().UnixNano() + fixtureSeq
}

// TestUser 创建测试用户（自动附带钱包）
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	seq := nextSeq()
	email := fmt.Sprintf("test_%d@example.com", seq)
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		Username:     fmt.Sprintf("testuser_%d", seq%100000000),
		Email:        &email,
		PasswordHash: &passwordHash,
		Role:         "user",
		InviteCode:   fmt.Sprintf("INV%d", seq%100000000),
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	balance := &model.UserBalance{UserID: user.ID}
	if err := db.Create(balance).Error; err != nil {
		t.Fatalf("Failed to create test balance: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// WithInviter 设置邀请人
func WithInviter(inviterID int64) func(*model.User) {
	return func(u *model.User) {
		u.InviterID = &inviterID
	}
}

// SetBalance 直接设置用户钱包余额
func SetBalance(t *testing.T, db *gorm.DB, userID int64, balance float64) {
	t.Helper()

	err := db.Model(&model.UserBalance{}).Where("user_id = ?", userID).
		Update("balance", balance).Error
	if err != nil {
		t.Fatalf("Failed to set balance: %v", err)
	}
}

// GetBalance 读取用户钱包
func GetBalance(t *testing.T, db *gorm.DB, userID int64) *model.UserBalance {
	t.Helper()

	var balance model.UserBalance
	if err := db.Where("user_id = ?", userID).First(&balance).Error; err != nil {
		t.Fatalf("Failed to get balance: %v", err)
	}
	return &balance
}

// TestStake 创建测试质押单
func TestStake(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.StakingEntry)) *model.StakingEntry {
	t.Helper()

	entry := &model.StakingEntry{
		UserID:      userID,
		PackageID:   2,
		PackageName: "Bronze",
		Amount:      100,
		DailyROI:    1.0,
		Cap:         1.8,
		MaxEarning:  180,
		Status:      model.StakeStatusActive,
		StartDate:   time.Now(),
	}

	for _, opt := range opts {
		opt(entry)
	}

	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("Failed to create test stake: %v", err)
	}

	return entry
}

// WithStakeAmount 设置本金与封顶（cap 不变）
func WithStakeAmount(amount, cap float64) func(*model.StakingEntry) {
	return func(e *model.StakingEntry) {
		e.Amount = amount
		e.Cap = cap
		e.MaxEarning = amount * cap
	}
}

// WithStakeStatus 设置状态
func WithStakeStatus(status string) func(*model.StakingEntry) {
	return func(e *model.StakingEntry) {
		e.Status = status
	}
}

// WithTotalEarned 设置已得收益
func WithTotalEarned(earned float64) func(*model.StakingEntry) {
	return func(e *model.StakingEntry) {
		e.TotalEarned = earned
	}
}

// WithFromVoucher 标记为代金券来源
func WithFromVoucher(maxEarning float64) func(*model.StakingEntry) {
	return func(e *model.StakingEntry) {
		e.FromVoucher = true
		e.MaxEarning = maxEarning
	}
}

// WithStartDate 设置起始日期
func WithStartDate(start time.Time) func(*model.StakingEntry) {
	return func(e *model.StakingEntry) {
		e.StartDate = start
	}
}

// TestVoucher 创建测试代金券
func TestVoucher(t *testing.T, db *gorm.DB, opts ...func(*model.Voucher)) *model.Voucher {
	t.Helper()

	voucher := &model.Voucher{
		Code:   fmt.Sprintf("TEST-%d", nextSeq()%100000000),
		Type:   model.VoucherTypePackage,
		Value:  100,
		Status: model.VoucherStatusActive,
	}

	for _, opt := range opts {
		opt(voucher)
	}

	if err := db.Create(voucher).Error; err != nil {
		t.Fatalf("Failed to create test voucher: %v", err)
	}

	return voucher
}

// WithVoucherType 设置券类型与面值
func WithVoucherType(vtype string, value float64) func(*model.Voucher) {
	return func(v *model.Voucher) {
		v.Type = vtype
		v.Value = value
	}
}

// WithVoucherOwner 设置券归属
func WithVoucherOwner(userID int64) func(*model.Voucher) {
	return func(v *model.Voucher) {
		v.UserID = &userID
	}
}

// WithVoucherPackage 绑定套餐
func WithVoucherPackage(packageID int) func(*model.Voucher) {
	return func(v *model.Voucher) {
		v.PackageID = &packageID
	}
}

// WithVoucherExpiry 设置过期时间
func WithVoucherExpiry(expiresAt time.Time) func(*model.Voucher) {
	return func(v *model.Voucher) {
		v.ExpiresAt = &expiresAt
	}
}

// WithVoucherCaps 设置封顶/真实套餐约束
func WithVoucherCaps(affectsMaxCap, requiresRealPackage bool) func(*model.Voucher) {
	return func(v *model.Voucher) {
		v.AffectsMaxCap = affectsMaxCap
		v.RequiresRealPackage = requiresRealPackage
	}
}

// WithVoucherStatus 设置状态
func WithVoucherStatus(status string) func(*model.Voucher) {
	return func(v *model.Voucher) {
		v.Status = status
	}
}

// WithROIValidity 设置流水型收益有效天数
func WithROIValidity(days int) func(*model.Voucher) {
	return func(v *model.Voucher) {
		v.ROIValidityDays = days
	}
}

// TestInviteEdge 创建邀请关系边
func TestInviteEdge(t *testing.T, db *gorm.DB, sponsorID, userID int64) *model.InvitedMember {
	t.Helper()

	edge := &model.InvitedMember{
		SponsorID: sponsorID,
		UserID:    userID,
	}
	if err := db.Create(edge).Error; err != nil {
		t.Fatalf("Failed to create invite edge: %v", err)
	}
	return edge
}

// TestTransaction 创建流水记录
func TestTransaction(t *testing.T, db *gorm.DB, userID int64, txType string, amount float64, createdAt time.Time) *model.TransactionRecord {
	t.Helper()

	record := &model.TransactionRecord{
		UserID:  userID,
		OrderID: fmt.Sprintf("order-%d", nextSeq()),
		Type:    txType,
		Amount:  amount,
		Status:  model.TxStatusCompleted,
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}
	// CreatedAt 由 gorm 填充为 now，报表测试需要指定历史时间
	if !createdAt.IsZero() {
		if err := db.Model(record).Update("created_at", createdAt).Error; err != nil {
			t.Fatalf("Failed to backdate transaction: %v", err)
		}
		record.CreatedAt = createdAt
	}
	return record
}
