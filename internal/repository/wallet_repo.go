package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/pkg/utils"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type WalletRepository interface {
	TopUp(ctx context.Context, userID string, amount decimal.Decimal, method string) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]*models.WalletTransaction, error)
}

type walletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &walletRepository{db: db}
}

// TopUp credits an active user's wallet and records the credit in the ledger.
// It returns nil when the user is missing or inactive.
func (r *walletRepository) TopUp(ctx context.Context, userID string, amount decimal.Decimal, method string) (*models.WalletTransaction, error) {
	var entry *models.WalletTransaction
	now := time.Now()

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var balance decimal.Decimal
		err := tx.GetContext(ctx, &balance, `
			UPDATE users SET wallet_balance = wallet_balance + $1, updated_at = $2
			WHERE id = $3 AND is_active
			RETURNING wallet_balance
		`, amount, now, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		entry = &models.WalletTransaction{
			UserID:       userID,
			Type:         models.WalletCredit,
			Amount:       amount,
			BalanceAfter: balance,
			Description:  "Wallet top-up via " + method,
			Reference:    method,
			CreatedAt:    now,
		}
		return insertWalletTransaction(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *walletRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.WalletTransaction, error) {
	entries := []*models.WalletTransaction{}
	query := `
		SELECT * FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	err := r.db.SelectContext(ctx, &entries, query, userID, limit)
	return entries, err
}

// insertWalletTransaction runs inside the transaction that moved the balance.
func insertWalletTransaction(ctx context.Context, tx *sqlx.Tx, entry *models.WalletTransaction) error {
	if entry.ID == "" {
		entry.ID = utils.GenerateID()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, user_id, type, amount, balance_after, description, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		entry.ID, entry.UserID, entry.Type, entry.Amount, entry.BalanceAfter,
		entry.Description, entry.Reference, entry.CreatedAt)
	return err
}
