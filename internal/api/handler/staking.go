package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/stake_go_server/internal/api/middleware"
	"github.com/qs3c/stake_go_server/internal/model/dto"
	"github.com/qs3c/stake_go_server/internal/pkg/response"
	"github.com/qs3c/stake_go_server/internal/service"
)

type StakingHandler struct {
	stakingService *service.StakingService
}

func NewStakingHandler(stakingService *service.StakingService) *StakingHandler {
	return &StakingHandler{
		stakingService: stakingService,
	}
}

// GetPackages 获取可见的质押套餐
// GET /api/v1/staking/packages
func (h *StakingHandler) GetPackages(c *gin.Context) {
	response.Success(c, h.stakingService.GetPackages())
}

// ListEntries 获取当前用户的质押单列表
// GET /api/v1/staking/entries
func (h *StakingHandler) ListEntries(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, pageSize := pagination(c)

	items, total, err := h.stakingService.ListEntries(userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Create 创建质押单
// POST /api/v1/staking/entries
func (h *StakingHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateStakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.stakingService.CreateStake(userID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrInsufficientBalance):
			response.BalanceError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "质押成功", resp)
}

// RequestUnstake 发起解押，进入冷却期
// POST /api/v1/staking/entries/:id/unstake
func (h *StakingHandler) RequestUnstake(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	stakeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的质押单ID")
		return
	}

	resp, err := h.stakingService.RequestUnstake(userID, stakeID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStakeNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrInvalidStakeStatus):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "解押申请已提交", resp)
}

// CompleteUnstake 冷却期结束后完成解押
// POST /api/v1/staking/entries/:id/unstake/complete
func (h *StakingHandler) CompleteUnstake(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	stakeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的质押单ID")
		return
	}

	resp, err := h.stakingService.CompleteUnstake(userID, stakeID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStakeNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrInvalidStakeStatus):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrCooldownActive):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "解押完成", resp)
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
