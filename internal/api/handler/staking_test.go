package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/internal/api/middleware"
	"github.com/qs3c/stake_go_server/internal/model"
	"github.com/qs3c/stake_go_server/internal/model/dto"
	"github.com/qs3c/stake_go_server/internal/pkg/response"
	"github.com/qs3c/stake_go_server/internal/repository"
	"github.com/qs3c/stake_go_server/internal/service"
	"github.com/qs3c/stake_go_server/internal/testutil"
)

// testContext 本地测试上下文
type testContext struct {
	DB *gorm.DB
}

// mockAuth 模拟认证中间件
func mockAuth(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func setupStakingHandler(t *testing.T) (*StakingHandler, *testContext, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)

	stakingService := service.NewStakingService(
		db,
		repository.NewStakeRepository(db),
		repository.NewBalanceRepository(db),
		repository.NewUserRepository(db),
		repository.NewTeamRepository(db),
		repository.NewTransactionRepository(db),
		nil,
		handlerTestConfig(),
	)
	handler := NewStakingHandler(stakingService)

	ctx := &testContext{DB: db}
	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return handler, ctx, cleanup
}

func TestStakingHandler_GetPackages(t *testing.T) {
	handler, _, cleanup := setupStakingHandler(t)
	defer cleanup()

	router := gin.New()
	router.GET("/packages", handler.GetPackages)

	w := performRequest(router, "GET", "/packages", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	items, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 3)
}

func TestStakingHandler_Create_Success(t *testing.T) {
	handler, ctx, cleanup := setupStakingHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, ctx.DB)
	testutil.SetBalance(t, ctx.DB, user.ID, 500)

	router := gin.New()
	router.Use(mockAuth(user.ID))
	router.POST("/entries", handler.Create)

	req := dto.CreateStakeRequest{Amount: 100}
	w := performRequest(router, "POST", "/entries", req)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Bronze", data["package_name"])
	assert.Equal(t, float64(180), data["max_earning"])
}

func TestStakingHandler_Create_InvalidAmount(t *testing.T) {
	handler, ctx, cleanup := setupStakingHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, ctx.DB)
	testutil.SetBalance(t, ctx.DB, user.ID, 500)

	router := gin.New()
	router.Use(mockAuth(user.ID))
	router.POST("/entries", handler.Create)

	req := dto.CreateStakeRequest{Amount: 123}
	w := performRequest(router, "POST", "/entries", req)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestStakingHandler_Create_InsufficientBalance(t *testing.T) {
	handler, ctx, cleanup := setupStakingHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, ctx.DB)

	router := gin.New()
	router.Use(mockAuth(user.ID))
	router.POST("/entries", handler.Create)

	req := dto.CreateStakeRequest{Amount: 100}
	w := performRequest(router, "POST", "/entries", req)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeInsufficientBalance, resp.Code)
}

func TestStakingHandler_Create_Unauthorized(t *testing.T) {
	handler, _, cleanup := setupStakingHandler(t)
	defer cleanup()

	router := gin.New()
	router.POST("/entries", handler.Create)

	req := dto.CreateStakeRequest{Amount: 100}
	w := performRequest(router, "POST", "/entries", req)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeAuthFailed, resp.Code)
}

func TestStakingHandler_ListEntries(t *testing.T) {
	handler, ctx, cleanup := setupStakingHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, ctx.DB)
	testutil.TestStake(t, ctx.DB, user.ID)
	testutil.TestStake(t, ctx.DB, user.ID)

	router := gin.New()
	router.Use(mockAuth(user.ID))
	router.GET("/entries", handler.ListEntries)

	w := performRequest(router, "GET", "/entries", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["total"])
}

func TestStakingHandler_RequestUnstake_NotFound(t *testing.T) {
	handler, ctx, cleanup := setupStakingHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, ctx.DB)

	router := gin.New()
	router.Use(mockAuth(user.ID))
	router.POST("/entries/:id/unstake", handler.RequestUnstake)

	w := performRequest(router, "POST", "/entries/99999/unstake", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)
}

func TestStakingHandler_RequestUnstake_BadID(t *testing.T) {
	handler, ctx, cleanup := setupStakingHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, ctx.DB)

	router := gin.New()
	router.Use(mockAuth(user.ID))
	router.POST("/entries/:id/unstake", handler.RequestUnstake)

	w := performRequest(router, "POST", "/entries/abc/unstake", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestStakingHandler_CompleteUnstake_CooldownActive(t *testing.T) {
	handler, ctx, cleanup := setupStakingHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, ctx.DB)
	testutil.SetBalance(t, ctx.DB, user.ID, 100)

	entry := testutil.TestStake(t, ctx.DB, user.ID)

	router := gin.New()
	router.Use(mockAuth(user.ID))
	router.POST("/entries/:id/unstake", handler.RequestUnstake)
	router.POST("/entries/:id/unstake/complete", handler.CompleteUnstake)

	w := performRequest(router, "POST", fmt.Sprintf("/entries/%d/unstake", entry.ID), nil)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var updated model.StakingEntry
	require.NoError(t, ctx.DB.First(&updated, entry.ID).Error)
	assert.Equal(t, model.StakeStatusUnstaking, updated.Status)

	// 冷却期未满，完成解押被拒绝
	w = performRequest(router, "POST", fmt.Sprintf("/entries/%d/unstake/complete", entry.ID), nil)
	resp = parseResponse(t, w)
	assert.Equal(t, response.CodeParamError, resp.Code)
}
