package service

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/pkg/logger"
	"github.com/shopspring/decimal"
)

func newWalletFixture(t *testing.T) (WalletService, *memStore) {
	t.Helper()
	store := newMemStore()
	store.users["rider-1"] = &models.User{ID: "rider-1", IsActive: true, WalletBalance: decimal.NewFromInt(100)}
	store.users["gone"] = &models.User{ID: "gone", IsActive: false, WalletBalance: decimal.Zero}
	return NewWalletService(userRepo{store}, walletRepo{store}, "NPR", logger.Nop()), store
}

func TestTopUpCreditsWallet(t *testing.T) {
	svc, store := newWalletFixture(t)
	ctx := context.Background()

	entry, err := svc.TopUp(ctx, rider("rider-1"), &models.TopUpRequest{Amount: decimal.RequireFromString("250.50"), PaymentMethod: models.TopUpKhalti})
	if err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	if entry.Type != models.WalletCredit || !entry.BalanceAfter.Equal(decimal.RequireFromString("350.50")) {
		t.Errorf("entry = %+v", entry)
	}
	if !store.users["rider-1"].WalletBalance.Equal(decimal.RequireFromString("350.50")) {
		t.Errorf("balance = %s", store.users["rider-1"].WalletBalance)
	}

	wallet, err := svc.GetWallet(ctx, rider("rider-1"))
	if err != nil {
		t.Fatalf("GetWallet: %v", err)
	}
	if wallet.Currency != "NPR" || len(wallet.Transactions) != 1 || len(wallet.AvailableMethods) != 4 {
		t.Errorf("wallet = %+v", wallet)
	}
}

func TestTopUpValidation(t *testing.T) {
	tests := []struct {
		name   string
		amount string
	}{
		{"zero", "0"},
		{"negative", "-10"},
		{"over limit", "50000.01"},
		{"sub-paisa", "10.005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newWalletFixture(t)
			_, err := svc.TopUp(context.Background(), rider("rider-1"),
				&models.TopUpRequest{Amount: decimal.RequireFromString(tt.amount), PaymentMethod: models.TopUpCard})
			if !errors.Is(err, apperrors.ErrBadRequest) {
				t.Errorf("err = %v, want bad request", err)
			}
			if len(store.wallet) != 0 {
				t.Errorf("ledger written for rejected top-up")
			}
		})
	}
}

func TestTopUpUnknownOrInactiveUser(t *testing.T) {
	svc, _ := newWalletFixture(t)

	for _, id := range []string{"nobody", "gone"} {
		_, err := svc.TopUp(context.Background(), rider(id), &models.TopUpRequest{Amount: decimal.NewFromInt(10), PaymentMethod: models.TopUpESewa})
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("%s: err = %v, want not found", id, err)
		}
	}

	if _, err := svc.GetWallet(context.Background(), rider("nobody")); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetWallet err = %v, want not found", err)
	}
}
