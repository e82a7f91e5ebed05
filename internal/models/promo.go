package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promo discount types
const (
	PromoFixed      = "fixed"
	PromoPercentage = "percentage"
)

var hundred = decimal.NewFromInt(100)

type PromoCode struct {
	Code          string              `db:"code" json:"code"`
	Title         string              `db:"title" json:"title"`
	Description   string              `db:"description" json:"description"`
	DiscountType  string              `db:"discount_type" json:"discount_type"`
	DiscountValue decimal.Decimal     `db:"discount_value" json:"discount_value"`
	MinRideAmount decimal.Decimal     `db:"min_ride_amount" json:"min_ride_amount"`
	MaxDiscount   decimal.NullDecimal `db:"max_discount" json:"max_discount"`
	ValidUntil    time.Time           `db:"valid_until" json:"valid_until"`
	IsActive      bool                `db:"is_active" json:"is_active"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
}

// Usable reports whether the code can be applied at t.
func (p *PromoCode) Usable(t time.Time) bool {
	return p.IsActive && t.Before(p.ValidUntil)
}

// Discount returns the amount taken off a fare. ok is false when the fare is
// below the code's minimum. The discount never exceeds the fare or MaxDiscount.
func (p *PromoCode) Discount(amount decimal.Decimal) (discount decimal.Decimal, ok bool) {
	if amount.LessThan(p.MinRideAmount) {
		return decimal.Zero, false
	}

	switch p.DiscountType {
	case PromoPercentage:
		discount = amount.Mul(p.DiscountValue).Div(hundred).Round(2)
	default:
		discount = p.DiscountValue
	}

	if p.MaxDiscount.Valid && discount.GreaterThan(p.MaxDiscount.Decimal) {
		discount = p.MaxDiscount.Decimal
	}
	if discount.GreaterThan(amount) {
		discount = amount
	}
	return discount, true
}

type ApplyPromoRequest struct {
	PromoCode  string          `json:"promo_code" validate:"required,max=30"`
	RideAmount decimal.Decimal `json:"ride_amount"`
}

type PromoQuote struct {
	PromoCode      string          `json:"promo_code"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	DiscountType   string          `json:"discount_type"`
	Currency       string          `json:"currency"`
}

type PromoListResponse struct {
	AvailableCodes []*PromoCode `json:"available_codes"`
	TotalCount     int          `json:"total_count"`
}
