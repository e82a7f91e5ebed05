package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aditya/rideshare/internal/models"
	"github.com/jmoiron/sqlx"
)

type PromoRepository interface {
	ListActive(ctx context.Context, now time.Time) ([]*models.PromoCode, error)
	GetByCode(ctx context.Context, code string) (*models.PromoCode, error)
}

type promoRepository struct {
	db *sqlx.DB
}

func NewPromoRepository(db *sqlx.DB) PromoRepository {
	return &promoRepository{db: db}
}

func (r *promoRepository) ListActive(ctx context.Context, now time.Time) ([]*models.PromoCode, error) {
	codes := []*models.PromoCode{}
	query := `SELECT * FROM promo_codes WHERE is_active AND valid_until > $1 ORDER BY code`
	err := r.db.SelectContext(ctx, &codes, query, now)
	return codes, err
}

func (r *promoRepository) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.GetContext(ctx, &promo, `SELECT * FROM promo_codes WHERE code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}
