package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/stake_go_server/internal/api/middleware"
	"github.com/qs3c/stake_go_server/internal/model/dto"
	"github.com/qs3c/stake_go_server/internal/pkg/response"
	"github.com/qs3c/stake_go_server/internal/service"
)

type AdminVoucherHandler struct {
	voucherService *service.VoucherService
}

func NewAdminVoucherHandler(voucherService *service.VoucherService) *AdminVoucherHandler {
	return &AdminVoucherHandler{
		voucherService: voucherService,
	}
}

// CreateBatch 提交代金券批量生成任务
// POST /api/v1/admin/vouchers
func (h *AdminVoucherHandler) CreateBatch(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateVouchersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.voucherService.CreateBatch(adminID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidVoucherPackage) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "批量任务已入队", resp)
}

// ListBatches 获取生成批次列表
// GET /api/v1/admin/vouchers/batches
func (h *AdminVoucherHandler) ListBatches(c *gin.Context) {
	page, pageSize := pagination(c)

	items, total, err := h.voucherService.ListBatches(page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}
