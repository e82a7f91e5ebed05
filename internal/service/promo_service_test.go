package service

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/shopspring/decimal"
)

func newPromoFixture(t *testing.T) *promoService {
	t.Helper()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := newMemStore()
	store.promos["NEWUSER50"] = &models.PromoCode{
		Code: "NEWUSER50", DiscountType: models.PromoFixed, DiscountValue: decimal.NewFromInt(50),
		MinRideAmount: decimal.NewFromInt(100), MaxDiscount: decimal.NewNullDecimal(decimal.NewFromInt(50)),
		ValidUntil: now.Add(30 * 24 * time.Hour), IsActive: true,
	}
	store.promos["WEEKEND20"] = &models.PromoCode{
		Code: "WEEKEND20", DiscountType: models.PromoPercentage, DiscountValue: decimal.NewFromInt(20),
		MinRideAmount: decimal.NewFromInt(200), MaxDiscount: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		ValidUntil: now.Add(7 * 24 * time.Hour), IsActive: true,
	}
	store.promos["EXPIRED"] = &models.PromoCode{
		Code: "EXPIRED", DiscountType: models.PromoFixed, DiscountValue: decimal.NewFromInt(10),
		ValidUntil: now.Add(-time.Hour), IsActive: true,
	}

	svc := NewPromoService(promoRepo{store}, "NPR").(*promoService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestApplyPromo(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		amount   string
		discount string
		final    string
	}{
		{"fixed", "NEWUSER50", "250", "50", "200"},
		{"lower case and spaces", " newuser50 ", "250", "50", "200"},
		{"percentage", "WEEKEND20", "300", "60", "240"},
		{"percentage capped", "WEEKEND20", "800", "100", "700"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newPromoFixture(t)
			quote, err := svc.Apply(context.Background(), &models.ApplyPromoRequest{PromoCode: tt.code, RideAmount: decimal.RequireFromString(tt.amount)})
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if !quote.DiscountAmount.Equal(decimal.RequireFromString(tt.discount)) || !quote.FinalAmount.Equal(decimal.RequireFromString(tt.final)) {
				t.Errorf("quote = %s off, %s final; want %s, %s", quote.DiscountAmount, quote.FinalAmount, tt.discount, tt.final)
			}
			if quote.Currency != "NPR" {
				t.Errorf("currency = %q", quote.Currency)
			}
		})
	}
}

func TestApplyPromoRejections(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		amount  string
		message string
	}{
		{"unknown", "BOGUS", "250", "invalid promo code"},
		{"expired", "EXPIRED", "250", "invalid promo code"},
		{"below minimum", "WEEKEND20", "150", "minimum ride amount is 200.00 NPR"},
		{"no amount", "NEWUSER50", "0", "ride_amount must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newPromoFixture(t)
			_, err := svc.Apply(context.Background(), &models.ApplyPromoRequest{PromoCode: tt.code, RideAmount: decimal.RequireFromString(tt.amount)})
			var apiErr *apperrors.APIError
			if !errors.As(err, &apiErr) || !errors.Is(err, apperrors.ErrBadRequest) {
				t.Fatalf("err = %v, want bad request", err)
			}
			if apiErr.Message != tt.message {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.message)
			}
		})
	}
}

func TestListPromosSkipsExpired(t *testing.T) {
	svc := newPromoFixture(t)

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.TotalCount != 2 || list.AvailableCodes[0].Code != "NEWUSER50" || list.AvailableCodes[1].Code != "WEEKEND20" {
		t.Errorf("list = %+v", list)
	}
}
