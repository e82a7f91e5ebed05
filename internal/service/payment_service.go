package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/repository"
	"github.com/aditya/rideshare/pkg/logger"
	"github.com/google/uuid"
)

type PaymentService interface {
	ProcessPayment(ctx context.Context, actor models.Actor, req *models.CreatePaymentRequest) (*models.Payment, error)
	GetPayment(ctx context.Context, actor models.Actor, id string) (*models.Payment, error)
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	rideRepo    repository.RideRepository
	notifier    Notifier
	currency    string
	log         *logger.Logger
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	rideRepo repository.RideRepository,
	notifier Notifier,
	currency string,
	log *logger.Logger,
) PaymentService {
	return &paymentService{
		paymentRepo: paymentRepo,
		rideRepo:    rideRepo,
		notifier:    notifier,
		currency:    currency,
		log:         log,
	}
}

// ProcessPayment settles a completed ride once. Paying again returns the
// existing payment unchanged.
func (s *paymentService) ProcessPayment(ctx context.Context, actor models.Actor, req *models.CreatePaymentRequest) (*models.Payment, error) {
	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, apperrors.NotFound("ride")
	}
	if ride.RiderID != actor.UserID {
		return nil, apperrors.Forbidden("only the rider can pay for this ride")
	}
	if ride.Status != models.RideStatusCompleted {
		return nil, apperrors.BadRequest("ride is not completed")
	}

	// Check if payment already exists for this ride
	existing, err := s.paymentRepo.GetByRideID(ctx, ride.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	payment := &models.Payment{
		RideID:   ride.ID,
		RiderID:  ride.RiderID,
		DriverID: ride.DriverID,
		Amount:   ride.Fare,
		Currency: s.currency,
		Method:   req.Method,
	}

	switch req.Method {
	case models.PaymentMethodCash:
		collector := ""
		if ride.DriverID != nil {
			collector = *ride.DriverID
		}
		payment.Outcome = models.Outcome{PaymentOutcome: models.CashOutcome{CollectedBy: collector}}
	case models.PaymentMethodCard:
		payment.Outcome = models.Outcome{PaymentOutcome: authorizeCard()}
	case models.PaymentMethodWallet:
		// the repository debits the wallet and fills in the outcome
	default:
		return nil, apperrors.InvalidInput("invalid payment method")
	}

	err = s.paymentRepo.Settle(ctx, payment)
	switch {
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return nil, apperrors.InsufficientFunds()
	case errors.Is(err, apperrors.ErrConflict):
		// a concurrent request settled first
		return s.paymentRepo.GetByRideID(ctx, ride.ID)
	case err != nil:
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"payment_id": payment.ID,
		"ride_id":    payment.RideID,
		"method":     payment.Method,
		"amount":     payment.Amount.String(),
	}).Info("payment settled")

	s.notifier.PaymentCompleted(ctx, payment)
	return payment, nil
}

// GetPayment is visible to the rider, the driver and admins.
func (s *paymentService) GetPayment(ctx context.Context, actor models.Actor, id string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperrors.NotFound("payment")
	}

	isDriver := payment.DriverID != nil && *payment.DriverID == actor.UserID
	if payment.RiderID != actor.UserID && !isDriver && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("you cannot view this payment")
	}
	return payment, nil
}

// Mock card processor
func authorizeCard() models.CardOutcome {
	code := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:12]
	return models.CardOutcome{
		Processor:         "external",
		AuthorizationCode: fmt.Sprintf("AUTH_%s", code),
	}
}
