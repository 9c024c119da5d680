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

type TeamHandler struct {
	teamService *service.TeamService
}

func NewTeamHandler(teamService *service.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
	}
}

// Members 获取指定层级的团队成员
// GET /api/v1/team/members
func (h *TeamHandler) Members(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	level, _ := strconv.Atoi(c.DefaultQuery("level", "1"))
	page, pageSize := pagination(c)

	items, total, err := h.teamService.GetTeamMembers(userID, level, page, pageSize)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTeamLevel) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Stats 获取团队统计（各层人数、业绩、收益汇总）
// GET /api/v1/team/stats
func (h *TeamHandler) Stats(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	stats, err := h.teamService.GetTeamStats(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, stats)
}

// SphereImages 获取团队层级球体图
// GET /api/v1/team/sphere-images
func (h *TeamHandler) SphereImages(c *gin.Context) {
	response.Success(c, h.teamService.GetSphereImages())
}

// Promotion 获取晋升里程碑进度
// GET /api/v1/team/promotion
func (h *TeamHandler) Promotion(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	milestones, err := h.teamService.GetPromotionStatus(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, milestones)
}

// ClaimPromotion 领取晋升奖励
// POST /api/v1/team/promotion/claim
func (h *TeamHandler) ClaimPromotion(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.ClaimPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.teamService.ClaimPromotion(userID, req.MilestoneID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMilestoneNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrMilestoneNotAchieved):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrMilestoneClaimed):
			response.DuplicateError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "奖励已发放", resp)
}
