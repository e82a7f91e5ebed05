package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/middleware"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/realtime"
	"github.com/aditya/rideshare/internal/service"
	"github.com/aditya/rideshare/pkg/logger"
	"github.com/shopspring/decimal"
)

// Stubs embed the service interface; calling a method that is not overridden panics.

type stubRides struct {
	service.RideService

	mu        sync.Mutex
	ride      *models.Ride
	acceptErr error
	locations []*models.RideLocation
}

func (s *stubRides) CreateRequest(_ context.Context, actor models.Actor, in *models.CreateRideRequestInput) (*models.RideRequest, error) {
	return &models.RideRequest{
		ID:                 requestID,
		RiderID:            actor.UserID,
		PickupAddress:      in.PickupAddress,
		DestinationAddress: in.DestinationAddress,
		Status:             models.RequestStatusPending,
	}, nil
}

func (s *stubRides) AcceptRequest(_ context.Context, actor models.Actor, id string) (*models.Ride, error) {
	if s.acceptErr != nil {
		return nil, s.acceptErr
	}
	driverID := actor.UserID
	return &models.Ride{ID: rideID, RideRequestID: &id, DriverID: &driverID, Status: models.RideStatusAccepted}, nil
}

func (s *stubRides) GetRide(_ context.Context, actor models.Actor, id string) (*models.Ride, error) {
	if s.ride == nil || s.ride.ID != id {
		return nil, errNotFound()
	}
	if !actor.CanView(s.ride) {
		return nil, errForbidden()
	}
	return s.ride, nil
}

func (s *stubRides) RecordLocation(_ context.Context, actor models.Actor, rideID string, lat, lng float64, speed *float64) (*models.RideLocation, error) {
	if !s.ride.IsAssignedTo(actor.UserID) {
		return nil, errForbidden()
	}
	loc := &models.RideLocation{RideID: rideID, Latitude: lat, Longitude: lng, Speed: speed, Timestamp: time.Now()}
	s.mu.Lock()
	s.locations = append(s.locations, loc)
	s.mu.Unlock()
	return loc, nil
}

func (s *stubRides) recorded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locations)
}

type stubDrivers struct {
	service.DriverService
}

func (stubDrivers) SetAvailability(_ context.Context, actor models.Actor, available bool) (*models.Driver, error) {
	return &models.Driver{ID: actor.UserID, IsAvailable: available}, nil
}

type stubUsers struct {
	service.UserService
}

func (stubUsers) CreateUser(_ context.Context, req *models.CreateUserRequest) (*models.User, error) {
	return &models.User{ID: "user-1", Phone: req.Phone, Name: req.Name, UserType: models.Role(req.UserType)}, nil
}

type stubPayments struct {
	service.PaymentService
}

type stubNotifier struct {
	service.Notifier
}

type stubPricing struct {
	service.PricingService
}

// stubChat publishes like the real service so ride channels see the frames.
type stubChat struct {
	service.ChatService

	hub   *realtime.Hub
	rides *stubRides
}

func (s *stubChat) Send(ctx context.Context, actor models.Actor, id, text string) (*models.ChatMessage, error) {
	ride, err := s.rides.GetRide(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if ride.RiderID != actor.UserID && !ride.IsAssignedTo(actor.UserID) {
		return nil, errForbidden()
	}
	msg := &models.ChatMessage{ID: "message-1", RideID: id, SenderID: actor.UserID, SenderRole: actor.Role, Message: text, CreatedAt: time.Now()}
	payload, _ := json.Marshal(map[string]interface{}{
		"type":      "message",
		"ride_id":   id,
		"sender_id": msg.SenderID,
		"sender":    msg.SenderRole,
		"message":   msg.Message,
		"timestamp": msg.CreatedAt.UTC().Format(time.RFC3339),
	})
	_ = s.hub.Publish(ctx, realtime.RideTopic(id), realtime.Message{Origin: realtime.OriginFrom(ctx), Payload: payload})
	return msg, nil
}

func (s *stubChat) History(ctx context.Context, actor models.Actor, id string, _ int) (*models.ChatHistoryResponse, error) {
	if _, err := s.rides.GetRide(ctx, actor, id); err != nil {
		return nil, err
	}
	return &models.ChatHistoryResponse{RideID: id, Messages: []*models.ChatMessage{}}, nil
}

type stubWallet struct {
	service.WalletService
}

func (stubWallet) GetWallet(_ context.Context, actor models.Actor) (*models.WalletResponse, error) {
	return &models.WalletResponse{Balance: decimal.NewFromInt(500), Currency: "NPR", AvailableMethods: models.TopUpMethods}, nil
}

func (stubWallet) TopUp(_ context.Context, actor models.Actor, in *models.TopUpRequest) (*models.WalletTransaction, error) {
	return &models.WalletTransaction{
		ID: "entry-1", UserID: actor.UserID, Type: models.WalletCredit,
		Amount: in.Amount, BalanceAfter: in.Amount, Reference: in.PaymentMethod,
	}, nil
}

type stubPromos struct {
	service.PromoService
}

func (stubPromos) Apply(_ context.Context, in *models.ApplyPromoRequest) (*models.PromoQuote, error) {
	if in.PromoCode != "NEWUSER50" {
		return nil, apperrors.InvalidInput("invalid promo code")
	}
	discount := decimal.NewFromInt(50)
	return &models.PromoQuote{
		PromoCode: in.PromoCode, OriginalAmount: in.RideAmount, DiscountAmount: discount,
		FinalAmount: in.RideAmount.Sub(discount), DiscountType: models.PromoFixed, Currency: "NPR",
	}, nil
}

const testSecret = "handler-test-secret"

const (
	rideID    = "5d0f2c7a-3e41-4b8e-9c2a-1f6e8d4b7a90"
	requestID = "a3c9e1f2-7b64-4d05-8e1a-6c2b9f0d3e47"
	missingID = "00000000-0000-4000-8000-000000000404"
)

type testServer struct {
	hub    *realtime.Hub
	rides  *stubRides
	auth   *middleware.Authenticator
	router http.Handler
}

func newTestServer(t *testing.T, checks map[string]HealthCheck) *testServer {
	t.Helper()
	log := logger.Nop()
	hub := realtime.NewHub(16)
	rider, driver := "rider-1", "driver-1"
	rides := &stubRides{ride: &models.Ride{ID: rideID, RiderID: rider, DriverID: &driver, Status: models.RideStatusInProgress}}
	auth := middleware.NewAuthenticator(testSecret)
	chat := &stubChat{hub: hub, rides: rides}

	router := NewRouter(RouterConfig{
		Log:           log,
		Auth:          auth,
		HealthChecks:  checks,
		Users:         NewUserHandler(stubUsers{}, log),
		Rides:         NewRideHandler(rides, stubPricing{}, nil, log),
		Drivers:       NewDriverHandler(stubDrivers{}, log),
		Payments:      NewPaymentHandler(stubPayments{}, log),
		Notifications: NewNotificationHandler(stubNotifier{}, log),
		Chat:          NewChatHandler(chat, log),
		Wallet:        NewWalletHandler(stubWallet{}, log),
		Promos:        NewPromoHandler(stubPromos{}, log),
		SSE:           NewSSEHandler(hub, rides, nil, log),
		WS:            NewWSHandler(hub, rides, stubDrivers{}, chat, log),
	})

	return &testServer{hub: hub, rides: rides, auth: auth, router: router}
}

func (s *testServer) token(t *testing.T, userID string, role models.Role) string {
	t.Helper()
	token, err := s.auth.IssueToken(userID, role, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func errNotFound() error  { return apperrors.NotFound("ride") }
func errForbidden() error { return apperrors.Forbidden("not a participant") }
