package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/stake_go_server/internal/model/dto"
	"github.com/qs3c/stake_go_server/internal/repository"
)

var ErrWalletNotFound = errors.New("钱包不存在")

type WalletService struct {
	balRepo *repository.BalanceRepository
	txRepo  *repository.TransactionRepository
}

func NewWalletService(
	balRepo *repository.BalanceRepository,
	txRepo *repository.TransactionRepository,
) *WalletService {
	return &WalletService{
		balRepo: balRepo,
		txRepo:  txRepo,
	}
}

// GetBalance 钱包概览
func (s *WalletService) GetBalance(userID int64) (*dto.WalletBalance, error) {
	balance, err := s.balRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}

	return &dto.WalletBalance{
		Balance:        balance.Balance,
		OnStaking:      balance.OnStaking,
		DailyEarning:   balance.DailyEarning,
		MaxEarn:        balance.MaxEarn,
		TotalEarned:    balance.TotalEarned,
		MissedEarnings: balance.MissedEarnings,
	}, nil
}

// GetTransactions 资金流水分页
func (s *WalletService) GetTransactions(userID int64, txType string, page, pageSize int) ([]dto.TransactionInfo, int64, error) {
	records, total, err := s.txRepo.ListByUser(userID, txType, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	out := make([]dto.TransactionInfo, 0, len(records))
	for _, r := range records {
		out = append(out, dto.TransactionInfo{
			ID:          r.ID,
			OrderID:     r.OrderID,
			Type:        r.Type,
			Amount:      r.Amount,
			Status:      r.Status,
			Description: r.Description,
			CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, total, nil
}
