package service

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/metrics"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/repository"
	"github.com/aditya/rideshare/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	defaultRideListLimit     = 50
	defaultLocationListLimit = 100
)

type RideService interface {
	CreateRequest(ctx context.Context, actor models.Actor, in *models.CreateRideRequestInput) (*models.RideRequest, error)
	GetRequest(ctx context.Context, actor models.Actor, id string) (*models.RideRequest, error)
	CancelRequest(ctx context.Context, actor models.Actor, id string) (*models.RideRequest, error)
	AcceptRequest(ctx context.Context, actor models.Actor, id string) (*models.Ride, error)

	GetRide(ctx context.Context, actor models.Actor, id string) (*models.Ride, error)
	ListRides(ctx context.Context, actor models.Actor, limit int) ([]*models.Ride, error)
	StartRide(ctx context.Context, actor models.Actor, id string) (*models.Ride, error)
	CompleteRide(ctx context.Context, actor models.Actor, id string, in *models.CompleteRideRequest) (*models.Ride, error)
	CancelRide(ctx context.Context, actor models.Actor, id, reason string) (*models.Ride, error)
	RateRide(ctx context.Context, actor models.Actor, id string, in *models.RateRideRequest) (*models.Ride, error)

	RecordLocation(ctx context.Context, actor models.Actor, rideID string, lat, lng float64, speed *float64) (*models.RideLocation, error)
	ListLocations(ctx context.Context, actor models.Actor, rideID string, limit int) ([]*models.RideLocation, error)
}

type rideService struct {
	rideRepo     repository.RideRepository
	requestRepo  repository.RideRequestRepository
	locationRepo repository.RideLocationRepository
	pricing      PricingService
	matching     MatchingService
	notifier     Notifier
	requestTTL   time.Duration
	log          *logger.Logger
	now          func() time.Time
}

func NewRideService(
	rideRepo repository.RideRepository,
	requestRepo repository.RideRequestRepository,
	locationRepo repository.RideLocationRepository,
	pricing PricingService,
	matching MatchingService,
	notifier Notifier,
	requestTTL time.Duration,
	log *logger.Logger,
) RideService {
	return &rideService{
		rideRepo:     rideRepo,
		requestRepo:  requestRepo,
		locationRepo: locationRepo,
		pricing:      pricing,
		matching:     matching,
		notifier:     notifier,
		requestTTL:   requestTTL,
		log:          log,
		now:          time.Now,
	}
}

func (s *rideService) CreateRequest(ctx context.Context, actor models.Actor, in *models.CreateRideRequestInput) (*models.RideRequest, error) {
	if !actor.IsRider() {
		return nil, apperrors.Forbidden("only riders can request rides")
	}
	if in.PickupLatitude == nil || in.PickupLongitude == nil ||
		in.DestinationLatitude == nil || in.DestinationLongitude == nil {
		return nil, apperrors.InvalidInput("pickup and destination coordinates are required")
	}
	if strings.TrimSpace(in.PickupAddress) == "" || strings.TrimSpace(in.DestinationAddress) == "" {
		return nil, apperrors.InvalidInput("pickup and destination addresses are required")
	}

	rideType := in.RideType
	if rideType == "" {
		rideType = models.RideTypeStandard
	}
	if !models.IsValidRideType(rideType) {
		return nil, apperrors.InvalidInput("unknown ride type " + rideType)
	}

	fare, err := s.pricing.Estimate(ctx, in.Pickup(), in.Destination(), rideType)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req := &models.RideRequest{
		RiderID:              actor.UserID,
		PickupLatitude:       *in.PickupLatitude,
		PickupLongitude:      *in.PickupLongitude,
		PickupAddress:        in.PickupAddress,
		DestinationLatitude:  *in.DestinationLatitude,
		DestinationLongitude: *in.DestinationLongitude,
		DestinationAddress:   in.DestinationAddress,
		RideType:             rideType,
		EstimatedFare:        fare.TotalFare,
		EstimatedDistance:    fare.DistanceKM,
		SpecialInstructions:  in.SpecialInstructions,
		CreatedAt:            now,
		ExpiresAt:            now.Add(s.requestTTL),
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"request_id": req.ID,
		"rider_id":   req.RiderID,
		"fare":       req.EstimatedFare.String(),
	}).Info("ride requested")

	s.offerToNearbyDrivers(ctx, req)

	return req, nil
}

// offerToNearbyDrivers pushes a new request to the available drivers around
// its pickup. Any driver may still accept it through AcceptRequest.
func (s *rideService) offerToNearbyDrivers(ctx context.Context, req *models.RideRequest) {
	if s.matching == nil {
		return
	}
	nearby, err := s.matching.FindNearbyDrivers(ctx, req.Pickup(), nil)
	if err != nil {
		s.log.WithError(err).WithField("request_id", req.ID).Warn("failed to find drivers for ride request")
		return
	}
	if len(nearby.Drivers) == 0 {
		return
	}

	ids := make([]string, 0, len(nearby.Drivers))
	for _, d := range nearby.Drivers {
		ids = append(ids, d.DriverID)
	}
	s.notifier.RideRequested(ctx, req, ids)
}

// GetRequest is open to the owner, admins and any driver browsing open requests.
func (s *rideService) GetRequest(ctx context.Context, actor models.Actor, id string) (*models.RideRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.NotFound("ride request")
	}
	if req.RiderID != actor.UserID && !actor.IsAdmin() && !actor.IsDriver() {
		return nil, apperrors.Forbidden("you cannot view this ride request")
	}
	return req, nil
}

func (s *rideService) CancelRequest(ctx context.Context, actor models.Actor, id string) (*models.RideRequest, error) {
	req, err := s.requestRepo.Cancel(ctx, id, actor.UserID)
	if err != nil {
		return nil, err
	}
	if req != nil {
		return req, nil
	}

	existing, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case existing == nil:
		return nil, apperrors.NotFound("ride request")
	case existing.RiderID != actor.UserID:
		return nil, apperrors.Forbidden("only the requesting rider can cancel this request")
	default:
		return nil, apperrors.RideNotPending()
	}
}

// AcceptRequest is the only way a ride comes into existence. At most one
// concurrent caller wins; everyone else sees RideNotPending.
func (s *rideService) AcceptRequest(ctx context.Context, actor models.Actor, id string) (*models.Ride, error) {
	if !actor.IsDriver() {
		return nil, apperrors.Forbidden("only drivers can accept ride requests")
	}

	now := s.now()
	ride, err := s.rideRepo.AcceptRequest(ctx, id, actor.UserID, now)
	switch {
	case errors.Is(err, apperrors.ErrRideNotPending):
		return nil, s.requestNotPending(ctx, id, now)
	case errors.Is(err, apperrors.ErrDriverUnavailable):
		return nil, apperrors.DriverUnavailable()
	case err != nil:
		return nil, err
	}

	s.transitioned(ctx, ride)
	return ride, nil
}

// requestNotPending explains a lost accept claim, expiring the request if its
// deadline passed while it was still pending.
func (s *rideService) requestNotPending(ctx context.Context, id string, now time.Time) error {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return apperrors.NotFound("ride request")
	}

	metrics.AcceptConflicts.Inc()

	if req.Status == models.RequestStatusPending && req.IsExpired(now) {
		if err := s.requestRepo.MarkExpired(ctx, id, now); err != nil {
			s.log.WithError(err).WithField("request_id", id).Warn("failed to expire ride request")
		}
	}
	return apperrors.RideNotPending()
}

func (s *rideService) GetRide(ctx context.Context, actor models.Actor, id string) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, apperrors.NotFound("ride")
	}
	if !actor.CanView(ride) {
		return nil, apperrors.Forbidden("you are not a participant of this ride")
	}
	return ride, nil
}

func (s *rideService) ListRides(ctx context.Context, actor models.Actor, limit int) ([]*models.Ride, error) {
	if limit <= 0 || limit > defaultRideListLimit {
		limit = defaultRideListLimit
	}
	return s.rideRepo.ListForActor(ctx, actor, limit)
}

func (s *rideService) StartRide(ctx context.Context, actor models.Actor, id string) (*models.Ride, error) {
	if _, err := s.authorizeDriver(ctx, actor, id, models.RideStatusInProgress); err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.Start(ctx, id, actor.UserID, s.now())
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, s.explain(ctx, id, models.RideStatusInProgress)
	}

	s.transitioned(ctx, ride)
	return ride, nil
}

func (s *rideService) CompleteRide(ctx context.Context, actor models.Actor, id string, in *models.CompleteRideRequest) (*models.Ride, error) {
	var fare, distance decimal.NullDecimal
	if in != nil {
		if in.ActualFare != nil {
			if in.ActualFare.IsNegative() {
				return nil, apperrors.InvalidInput("actual_fare cannot be negative")
			}
			fare = decimal.NewNullDecimal(in.ActualFare.Round(2))
		}
		if in.ActualDistance != nil {
			if in.ActualDistance.IsNegative() {
				return nil, apperrors.InvalidInput("actual_distance cannot be negative")
			}
			distance = decimal.NewNullDecimal(in.ActualDistance.Round(2))
		}
	}

	if _, err := s.authorizeDriver(ctx, actor, id, models.RideStatusCompleted); err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.Complete(ctx, id, actor.UserID, fare, distance, s.now())
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, s.explain(ctx, id, models.RideStatusCompleted)
	}

	s.transitioned(ctx, ride)
	return ride, nil
}

func (s *rideService) CancelRide(ctx context.Context, actor models.Actor, id, reason string) (*models.Ride, error) {
	current, err := s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperrors.NotFound("ride")
	}
	if !actor.CanView(current) {
		return nil, apperrors.Forbidden("you are not a participant of this ride")
	}
	if !current.IsActive() {
		return nil, apperrors.AlreadyTerminal(current.Status)
	}

	ride, err := s.rideRepo.Cancel(ctx, id, reason, s.now())
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, s.explain(ctx, id, models.RideStatusCancelled)
	}

	s.transitioned(ctx, ride)
	return ride, nil
}

func (s *rideService) RateRide(ctx context.Context, actor models.Actor, id string, in *models.RateRideRequest) (*models.Ride, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}

	current, err := s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperrors.NotFound("ride")
	}
	if err := checkRatable(actor, current); err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.Rate(ctx, id, actor.Role, actor.UserID, in.Rating, in.Comment, s.now())
	if err != nil {
		return nil, err
	}
	if ride != nil {
		return ride, nil
	}

	// lost a race with another rating or a status change
	current, err = s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperrors.NotFound("ride")
	}
	if err := checkRatable(actor, current); err != nil {
		return nil, err
	}
	return nil, apperrors.AlreadyRated()
}

func checkRatable(actor models.Actor, ride *models.Ride) error {
	var slot *int
	switch {
	case actor.IsRider() && ride.RiderID == actor.UserID:
		slot = ride.RatingByRider
	case actor.IsDriver() && ride.IsAssignedTo(actor.UserID):
		slot = ride.RatingByDriver
	default:
		return apperrors.Forbidden("only the rider or assigned driver can rate this ride")
	}

	if ride.Status != models.RideStatusCompleted {
		return apperrors.NotCompleted()
	}
	if slot != nil {
		return apperrors.AlreadyRated()
	}
	return nil
}

func (s *rideService) RecordLocation(ctx context.Context, actor models.Actor, rideID string, lat, lng float64, speed *float64) (*models.RideLocation, error) {
	if err := ValidateCoordinates(models.Coordinates{Latitude: lat, Longitude: lng}); err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, apperrors.NotFound("ride")
	}
	if !ride.IsAssignedTo(actor.UserID) {
		return nil, apperrors.Forbidden("only the assigned driver can report ride locations")
	}
	if ride.Status != models.RideStatusAccepted && ride.Status != models.RideStatusInProgress {
		return nil, apperrors.InvalidInput("ride is not active")
	}

	loc := &models.RideLocation{
		RideID:    rideID,
		Latitude:  lat,
		Longitude: lng,
		Speed:     speed,
		Timestamp: s.now(),
	}
	if err := s.locationRepo.Create(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

func (s *rideService) ListLocations(ctx context.Context, actor models.Actor, rideID string, limit int) ([]*models.RideLocation, error) {
	if _, err := s.GetRide(ctx, actor, rideID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultLocationListLimit {
		limit = defaultLocationListLimit
	}
	return s.locationRepo.ListByRide(ctx, rideID, limit)
}

// authorizeDriver checks that actor is the ride's driver and the ride can move to next.
func (s *rideService) authorizeDriver(ctx context.Context, actor models.Actor, id, next string) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, apperrors.NotFound("ride")
	}
	if !ride.IsAssignedTo(actor.UserID) {
		return nil, apperrors.Forbidden("only the assigned driver can do this")
	}
	if !ride.CanTransitionTo(next) {
		return nil, apperrors.InvalidTransition(ride.Status, next)
	}
	return ride, nil
}

// explain reloads a ride after a failed compare-and-set and reports why it failed.
func (s *rideService) explain(ctx context.Context, id, next string) error {
	ride, err := s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ride == nil {
		return apperrors.NotFound("ride")
	}
	if next == models.RideStatusCancelled && !ride.IsActive() {
		return apperrors.AlreadyTerminal(ride.Status)
	}
	return apperrors.InvalidTransition(ride.Status, next)
}

func (s *rideService) transitioned(ctx context.Context, ride *models.Ride) {
	metrics.RideTransitions.WithLabelValues(ride.Status).Inc()

	s.log.WithFields(map[string]interface{}{
		"ride_id": ride.ID,
		"status":  ride.Status,
	}).Info("ride status changed")

	s.notifier.RideStatusChanged(ctx, ride)
}
