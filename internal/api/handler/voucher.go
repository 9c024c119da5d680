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

type VoucherHandler struct {
	voucherService *service.VoucherService
}

func NewVoucherHandler(voucherService *service.VoucherService) *VoucherHandler {
	return &VoucherHandler{
		voucherService: voucherService,
	}
}

// List 获取当前用户的代金券列表
// GET /api/v1/vouchers
func (h *VoucherHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, pageSize := pagination(c)
	status := c.Query("status")
	vtype := c.Query("type")

	items, total, err := h.voucherService.ListVouchers(userID, status, vtype, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Redeem 按兑换码核销代金券
// POST /api/v1/vouchers/redeem
func (h *VoucherHandler) Redeem(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.RedeemVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.voucherService.RedeemByCode(userID, req.Code, req.PackageID)
	if err != nil {
		h.voucherError(c, err)
		return
	}

	response.SuccessWithMessage(c, "兑换成功", resp)
}

// UseForStake 用套餐券开立质押单
// POST /api/v1/vouchers/:id/stake
func (h *VoucherHandler) UseForStake(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	voucherID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的代金券ID")
		return
	}

	resp, err := h.voucherService.UseVoucherForStake(userID, voucherID)
	if err != nil {
		h.voucherError(c, err)
		return
	}

	response.SuccessWithMessage(c, "质押成功", resp)
}

func (h *VoucherHandler) voucherError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrVoucherNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrVoucherNotOwned):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrVoucherUsed):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrVoucherExpired),
		errors.Is(err, service.ErrVoucherWrongType),
		errors.Is(err, service.ErrVoucherPackageMismatch),
		errors.Is(err, service.ErrRealPackageRequired),
		errors.Is(err, service.ErrInvalidVoucherPackage):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
