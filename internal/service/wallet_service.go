package service

import (
	"context"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/repository"
	"github.com/aditya/rideshare/pkg/logger"
	"github.com/shopspring/decimal"
)

const walletHistoryLimit = 20

// maxTopUp bounds a single credit; balances are NUMERIC(10,2).
var maxTopUp = decimal.NewFromInt(50000)

type WalletService interface {
	GetWallet(ctx context.Context, actor models.Actor) (*models.WalletResponse, error)
	TopUp(ctx context.Context, actor models.Actor, in *models.TopUpRequest) (*models.WalletTransaction, error)
}

type walletService struct {
	userRepo   repository.UserRepository
	walletRepo repository.WalletRepository
	currency   string
	log        *logger.Logger
}

func NewWalletService(userRepo repository.UserRepository, walletRepo repository.WalletRepository, currency string, log *logger.Logger) WalletService {
	return &walletService{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		currency:   currency,
		log:        log,
	}
}

func (s *walletService) GetWallet(ctx context.Context, actor models.Actor) (*models.WalletResponse, error) {
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}

	entries, err := s.walletRepo.ListTransactions(ctx, user.ID, walletHistoryLimit)
	if err != nil {
		return nil, err
	}

	return &models.WalletResponse{
		Balance:          user.WalletBalance,
		Currency:         s.currency,
		Transactions:     entries,
		AvailableMethods: models.TopUpMethods,
	}, nil
}

func (s *walletService) TopUp(ctx context.Context, actor models.Actor, in *models.TopUpRequest) (*models.WalletTransaction, error) {
	switch {
	case !in.Amount.IsPositive():
		return nil, apperrors.InvalidInput("amount must be positive")
	case in.Amount.GreaterThan(maxTopUp):
		return nil, apperrors.InvalidInput("amount exceeds the top-up limit of " + maxTopUp.String())
	case !in.Amount.Equal(in.Amount.Round(2)):
		return nil, apperrors.InvalidInput("amount cannot have more than two decimal places")
	}

	entry, err := s.walletRepo.TopUp(ctx, actor.UserID, in.Amount, in.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperrors.NotFound("user")
	}

	s.log.WithFields(map[string]interface{}{
		"user_id": actor.UserID,
		"amount":  in.Amount.StringFixed(2),
		"method":  in.PaymentMethod,
	}).Info("wallet topped up")

	return entry, nil
}
