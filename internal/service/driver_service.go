package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aditya/rideshare/internal/cache"
	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/realtime"
	"github.com/aditya/rideshare/internal/repository"
	"github.com/aditya/rideshare/pkg/logger"
)

type DriverService interface {
	CreateDriver(ctx context.Context, actor models.Actor, req *models.CreateDriverRequest) (*models.Driver, error)
	GetDriver(ctx context.Context, id string) (*models.Driver, error)
	UpdateLocation(ctx context.Context, actor models.Actor, req *models.UpdateDriverLocationRequest) (*models.Driver, error)
	SetAvailability(ctx context.Context, actor models.Actor, available bool) (*models.Driver, error)
}

type driverService struct {
	driverRepo   repository.DriverRepository
	userRepo     repository.UserRepository
	rideRepo     repository.RideRepository
	locationRepo repository.RideLocationRepository
	driverCache  cache.DriverLocationCache
	broker       realtime.Broker
	log          *logger.Logger
	now          func() time.Time
}

func NewDriverService(
	driverRepo repository.DriverRepository,
	userRepo repository.UserRepository,
	rideRepo repository.RideRepository,
	locationRepo repository.RideLocationRepository,
	driverCache cache.DriverLocationCache,
	broker realtime.Broker,
	log *logger.Logger,
) DriverService {
	return &driverService{
		driverRepo:   driverRepo,
		userRepo:     userRepo,
		rideRepo:     rideRepo,
		locationRepo: locationRepo,
		driverCache:  driverCache,
		broker:       broker,
		log:          log,
		now:          time.Now,
	}
}

// CreateDriver registers the caller's driver profile. The profile shares the
// caller's user id.
func (s *driverService) CreateDriver(ctx context.Context, actor models.Actor, req *models.CreateDriverRequest) (*models.Driver, error) {
	if !actor.IsDriver() {
		return nil, apperrors.Forbidden("only driver accounts can register a vehicle")
	}

	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}

	existing, err := s.driverRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("driver profile already exists")
	}

	existing, err = s.driverRepo.GetByLicense(ctx, req.LicenseNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("driver with this license already exists")
	}

	driver := &models.Driver{
		ID:            actor.UserID,
		Name:          user.Name,
		Phone:         user.Phone,
		LicenseNumber: req.LicenseNumber,
		VehicleType:   req.VehicleType,
		VehicleMake:   req.VehicleMake,
		VehicleModel:  req.VehicleModel,
		VehicleNumber: req.VehicleNumber,
	}
	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}

	return driver, nil
}

func (s *driverService) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	driver, err := s.driverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, apperrors.NotFound("driver")
	}

	// Get current location from cache
	if s.driverCache != nil {
		loc, err := s.driverCache.GetDriverLocation(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("driver_id", id).Warn("failed to read cached driver location")
		} else if loc != nil {
			driver.CurrentLatitude = &loc.Latitude
			driver.CurrentLongitude = &loc.Longitude
		}
	}

	return driver, nil
}

// UpdateLocation stores the position, refreshes the cache and fans it out on
// the driver's topic. While a ride is active the sample is also appended to
// the ride's trail and published on the ride topic.
func (s *driverService) UpdateLocation(ctx context.Context, actor models.Actor, req *models.UpdateDriverLocationRequest) (*models.Driver, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return nil, apperrors.InvalidInput("latitude and longitude are required")
	}
	lat, lng := *req.Latitude, *req.Longitude
	if err := ValidateCoordinates(models.Coordinates{Latitude: lat, Longitude: lng}); err != nil {
		return nil, err
	}

	driver, err := s.driverRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, apperrors.NotFound("driver")
	}

	now := s.now()
	if err := s.driverRepo.UpdateLocation(ctx, driver.ID, lat, lng, now); err != nil {
		return nil, err
	}
	driver.CurrentLatitude = &lat
	driver.CurrentLongitude = &lng
	driver.LastLocationUpdate = &now

	log := s.log.WithField("driver_id", driver.ID)

	if s.driverCache != nil {
		if err := s.driverCache.UpdateLocation(ctx, driver.ID, lat, lng, req.Speed, now); err != nil {
			log.WithError(err).Warn("failed to update driver location in cache")
		}
	}

	frame := map[string]interface{}{
		"type":      "location_update",
		"driver_id": driver.ID,
		"latitude":  lat,
		"longitude": lng,
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	if req.Speed != nil {
		frame["speed"] = *req.Speed
	}
	s.publish(ctx, realtime.DriverTopic(driver.ID), frame)

	ride, err := s.rideRepo.GetActiveByDriverID(ctx, driver.ID)
	if err != nil {
		log.WithError(err).Warn("failed to look up active ride")
		return driver, nil
	}
	if ride == nil {
		return driver, nil
	}

	sample := &models.RideLocation{
		RideID:    ride.ID,
		Latitude:  lat,
		Longitude: lng,
		Speed:     req.Speed,
		Timestamp: now,
	}
	if err := s.locationRepo.Create(ctx, sample); err != nil {
		log.WithError(err).WithField("ride_id", ride.ID).Warn("failed to record ride location")
	}

	frame["ride_id"] = ride.ID
	s.publish(ctx, realtime.RideTopic(ride.ID), frame)

	return driver, nil
}

func (s *driverService) SetAvailability(ctx context.Context, actor models.Actor, available bool) (*models.Driver, error) {
	driver, err := s.driverRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, apperrors.NotFound("driver")
	}

	updated, err := s.driverRepo.SetAvailability(ctx, driver.ID, available)
	if err != nil {
		return nil, err
	}
	if !updated {
		if available {
			return nil, apperrors.InvalidInput("cannot go available with an active ride")
		}
		return nil, apperrors.NotFound("driver")
	}
	driver.IsAvailable = available

	if !available && s.driverCache != nil {
		if err := s.driverCache.RemoveDriver(ctx, driver.ID); err != nil {
			s.log.WithError(err).WithField("driver_id", driver.ID).Warn("failed to drop cached driver location")
		}
	}

	return driver, nil
}

func (s *driverService) publish(ctx context.Context, topic string, frame map[string]interface{}) {
	payload, err := json.Marshal(frame)
	if err != nil {
		s.log.WithError(err).Error("failed to encode realtime frame")
		return
	}
	if err := s.broker.Publish(ctx, topic, realtime.Message{Origin: realtime.OriginFrom(ctx), Payload: payload}); err != nil {
		s.log.WithError(err).WithField("topic", topic).Warn("failed to publish realtime frame")
	}
}
