package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/pkg/utils"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PaymentRepository interface {
	Settle(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByRideID(ctx context.Context, rideID string) (*models.Payment, error)
}

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Settle records a completed payment. Wallet payments debit the rider only if
// the balance covers the amount and leave a ledger entry; the driver's earnings
// are credited in the same transaction. A second payment for the same ride returns ErrConflict.
func (r *paymentRepository) Settle(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = utils.GenerateID()
	}
	now := time.Now()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	payment.Status = models.PaymentStatusCompleted

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var balance decimal.Decimal
		if payment.Method == models.PaymentMethodWallet {
			err := tx.GetContext(ctx, &balance, `
				UPDATE users SET wallet_balance = wallet_balance - $1, updated_at = $2
				WHERE id = $3 AND wallet_balance >= $1
				RETURNING wallet_balance
			`, payment.Amount, now, payment.RiderID)
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.ErrInsufficientFunds
			}
			if err != nil {
				return err
			}
			payment.Outcome = models.Outcome{PaymentOutcome: models.WalletOutcome{BalanceAfter: balance}}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO payments (id, ride_id, rider_id, driver_id, amount, currency, method, status,
				outcome, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (ride_id) DO NOTHING
		`,
			payment.ID, payment.RideID, payment.RiderID, payment.DriverID, payment.Amount,
			payment.Currency, payment.Method, payment.Status, payment.Outcome,
			payment.CreatedAt, payment.UpdatedAt)
		if err != nil {
			return err
		}
		if n, err := rowsAffected(res); err != nil {
			return err
		} else if n == 0 {
			return apperrors.ErrConflict
		}

		if payment.Method == models.PaymentMethodWallet {
			err = insertWalletTransaction(ctx, tx, &models.WalletTransaction{
				UserID:       payment.RiderID,
				Type:         models.WalletDebit,
				Amount:       payment.Amount,
				BalanceAfter: balance,
				Description:  "Ride payment",
				Reference:    payment.ID,
				CreatedAt:    now,
			})
			if err != nil {
				return err
			}
		}

		if payment.DriverID != nil {
			_, err = tx.ExecContext(ctx,
				`UPDATE drivers SET total_earnings = total_earnings + $1, updated_at = $2 WHERE id = $3`,
				payment.Amount, now, *payment.DriverID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT * FROM payments WHERE id = $1`
	err := r.db.GetContext(ctx, &payment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetByRideID(ctx context.Context, rideID string) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT * FROM payments WHERE ride_id = $1`
	err := r.db.GetContext(ctx, &payment, query, rideID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
