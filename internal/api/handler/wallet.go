package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/stake_go_server/internal/api/middleware"
	"github.com/qs3c/stake_go_server/internal/pkg/response"
	"github.com/qs3c/stake_go_server/internal/service"
)

type WalletHandler struct {
	walletService *service.WalletService
}

func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// Balance 获取钱包余额概览
// GET /api/v1/wallet/balance
func (h *WalletHandler) Balance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	balance, err := h.walletService.GetBalance(userID)
	if err != nil {
		if errors.Is(err, service.ErrWalletNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, balance)
}

// Transactions 获取交易流水
// GET /api/v1/wallet/transactions
func (h *WalletHandler) Transactions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, pageSize := pagination(c)
	txType := c.Query("type")

	items, total, err := h.walletService.GetTransactions(userID, txType, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}
