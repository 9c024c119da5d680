package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/internal/model"
	"github.com/qs3c/stake_go_server/internal/repository"
	"github.com/qs3c/stake_go_server/internal/testutil"
)

func setupTeamService(t *testing.T) (*TeamService, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	service := NewTeamService(
		db,
		repository.NewTeamRepository(db),
		repository.NewUserRepository(db),
		repository.NewStakeRepository(db),
		repository.NewBalanceRepository(db),
		repository.NewTransactionRepository(db),
		nil,
		testConfig(),
	)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return service, db, cleanup
}

// buildTeam 三层邀请树：root -> 2 个直推，每个直推再 -> 1 人
func buildTeam(t *testing.T, db *gorm.DB) (root *model.User, level1, level2 []*model.User) {
	t.Helper()

	root = testutil.TestUser(t, db)
	for i := 0; i < 2; i++ {
		child := testutil.TestUser(t, db, testutil.WithInviter(root.ID))
		testutil.TestInviteEdge(t, db, root.ID, child.ID)
		level1 = append(level1, child)

		grandchild := testutil.TestUser(t, db, testutil.WithInviter(child.ID))
		testutil.TestInviteEdge(t, db, child.ID, grandchild.ID)
		level2 = append(level2, grandchild)
	}
	return root, level1, level2
}

func TestTeamService_GetTeamMembers(t *testing.T) {
	service, db, cleanup := setupTeamService(t)
	defer cleanup()

	root, level1, level2 := buildTeam(t, db)
	testutil.TestStake(t, db, level1[0].ID)

	members, total, err := service.GetTeamMembers(root.ID, 1, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, members, 2)
	assert.Equal(t, level1[0].ID, members[0].UserID)
	assert.Equal(t, 100.0, members[0].OnStaking)
	assert.Equal(t, 1, members[0].DirectCount)

	members, total, err = service.GetTeamMembers(root.ID, 2, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, level2[0].ID, members[0].UserID)
}

func TestTeamService_GetTeamMembers_InvalidLevel(t *testing.T) {
	service, db, cleanup := setupTeamService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	_, _, err := service.GetTeamMembers(user.ID, 0, 1, 20)
	assert.ErrorIs(t, err, ErrInvalidTeamLevel)

	_, _, err = service.GetTeamMembers(user.ID, 11, 1, 20)
	assert.ErrorIs(t, err, ErrInvalidTeamLevel)
}

func TestTeamService_GetTeamMembers_Pagination(t *testing.T) {
	service, db, cleanup := setupTeamService(t)
	defer cleanup()

	root := testutil.TestUser(t, db)
	for i := 0; i < 5; i++ {
		child := testutil.TestUser(t, db, testutil.WithInviter(root.ID))
		testutil.TestInviteEdge(t, db, root.ID, child.ID)
	}

	members, total, err := service.GetTeamMembers(root.ID, 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, members, 2)

	members, _, err = service.GetTeamMembers(root.ID, 1, 3, 2)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	members, _, err = service.GetTeamMembers(root.ID, 1, 4, 2)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestTeamService_CycleDoesNotLoop(t *testing.T) {
	service, db, cleanup := setupTeamService(t)
	defer cleanup()

	// 脏数据成环：a -> b -> a，遍历必须终止且不重复计数
	a := testutil.TestUser(t, db)
	b := testutil.TestUser(t, db)
	testutil.TestInviteEdge(t, db, a.ID, b.ID)
	testutil.TestInviteEdge(t, db, b.ID, a.ID)

	stats, err := service.GetTeamStats(a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalMembers)
	assert.Equal(t, 1, stats.DirectMembers)
}

func TestTeamService_GetTeamStats(t *testing.T) {
	service, db, cleanup := setupTeamService(t)
	defer cleanup()

	root, level1, level2 := buildTeam(t, db)
	testutil.TestStake(t, db, level1[0].ID)
	testutil.TestStake(t, db, level2[1].ID, testutil.WithStakeAmount(500, 2.0))

	stats, err := service.GetTeamStats(root.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalMembers)
	assert.Equal(t, 2, stats.DirectMembers)
	assert.Equal(t, 600.0, stats.TeamVolume)

	require.GreaterOrEqual(t, len(stats.Levels), 2)
	assert.Equal(t, 2, stats.Levels[0].Members)
	assert.Equal(t, 100.0, stats.Levels[0].Volume)
	assert.Equal(t, 500.0, stats.Levels[1].Volume)
}

func TestTeamService_GetSphereImages(t *testing.T) {
	service, _, cleanup := setupTeamService(t)
	defer cleanup()

	// 未配置 OSS 时返回空 URL，层级齐全
	images := service.GetSphereImages()
	require.Len(t, images, 10)
	assert.Equal(t, 1, images[0].Level)
	assert.Equal(t, "", images[0].URL)
}

func TestTeamService_GetPromotionStatus(t *testing.T) {
	service, db, cleanup := setupTeamService(t)
	defer cleanup()

	root := testutil.TestUser(t, db)
	for i := 0; i < 3; i++ {
		child := testutil.TestUser(t, db, testutil.WithInviter(root.ID))
		testutil.TestInviteEdge(t, db, root.ID, child.ID)
		testutil.TestStake(t, db, child.ID, testutil.WithStakeAmount(500, 2.0))
	}

	milestones, err := service.GetPromotionStatus(root.ID)
	require.NoError(t, err)
	require.Len(t, milestones, 2)

	// V1：3 直推 + 1000 业绩，已达成；V2 未达成
	assert.True(t, milestones[0].Achieved)
	assert.False(t, milestones[0].Claimed)
	assert.False(t, milestones[1].Achieved)
}

func TestTeamService_ClaimPromotion(t *testing.T) {
	service, db, cleanup := setupTeamService(t)
	defer cleanup()

	root := testutil.TestUser(t, db)
	for i := 0; i < 3; i++ {
		child := testutil.TestUser(t, db, testutil.WithInviter(root.ID))
		testutil.TestInviteEdge(t, db, root.ID, child.ID)
		testutil.TestStake(t, db, child.ID, testutil.WithStakeAmount(500, 2.0))
	}

	resp, err := service.ClaimPromotion(root.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 50.0, resp.Reward)

	balance := testutil.GetBalance(t, db, root.ID)
	assert.Equal(t, 50.0, balance.Balance)

	var record model.TransactionRecord
	require.NoError(t, db.Where("user_id = ? AND type = ?", root.ID, model.TxTypeBonus).First(&record).Error)
	assert.Equal(t, 50.0, record.Amount)

	// 重复领取被拒
	_, err = service.ClaimPromotion(root.ID, 1)
	assert.ErrorIs(t, err, ErrMilestoneClaimed)
}

func TestTeamService_ClaimPromotion_NotAchieved(t *testing.T) {
	service, db, cleanup := setupTeamService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	_, err := service.ClaimPromotion(user.ID, 1)
	assert.ErrorIs(t, err, ErrMilestoneNotAchieved)

	_, err = service.ClaimPromotion(user.ID, 999)
	assert.ErrorIs(t, err, ErrMilestoneNotFound)
}
