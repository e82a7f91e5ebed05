package service

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/repository"
)

// PromoService lists promo codes and prices a fare with one applied. Applying
// a code only quotes the discount; nothing is redeemed.
type PromoService interface {
	List(ctx context.Context) (*models.PromoListResponse, error)
	Apply(ctx context.Context, in *models.ApplyPromoRequest) (*models.PromoQuote, error)
}

type promoService struct {
	promoRepo repository.PromoRepository
	currency  string
	now       func() time.Time
}

func NewPromoService(promoRepo repository.PromoRepository, currency string) PromoService {
	return &promoService{
		promoRepo: promoRepo,
		currency:  currency,
		now:       time.Now,
	}
}

func (s *promoService) List(ctx context.Context) (*models.PromoListResponse, error) {
	codes, err := s.promoRepo.ListActive(ctx, s.now())
	if err != nil {
		return nil, err
	}
	return &models.PromoListResponse{AvailableCodes: codes, TotalCount: len(codes)}, nil
}

func (s *promoService) Apply(ctx context.Context, in *models.ApplyPromoRequest) (*models.PromoQuote, error) {
	code := strings.ToUpper(strings.TrimSpace(in.PromoCode))
	if code == "" {
		return nil, apperrors.InvalidInput("promo_code is required")
	}
	if !in.RideAmount.IsPositive() {
		return nil, apperrors.InvalidInput("ride_amount must be positive")
	}

	promo, err := s.promoRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if promo == nil || !promo.Usable(s.now()) {
		return nil, apperrors.InvalidInput("invalid promo code")
	}

	discount, ok := promo.Discount(in.RideAmount)
	if !ok {
		return nil, apperrors.InvalidInput("minimum ride amount is " + promo.MinRideAmount.StringFixed(2) + " " + s.currency)
	}

	return &models.PromoQuote{
		PromoCode:      code,
		OriginalAmount: in.RideAmount,
		DiscountAmount: discount,
		FinalAmount:    in.RideAmount.Sub(discount),
		DiscountType:   promo.DiscountType,
		Currency:       s.currency,
	}, nil
}
