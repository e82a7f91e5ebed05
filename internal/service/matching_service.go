package service

import (
	"context"
	"sort"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/repository"
	"github.com/shopspring/decimal"
)

type MatchingService interface {
	FindNearbyDrivers(ctx context.Context, point models.Coordinates, radiusKM *float64) (*models.NearbyDriversResponse, error)
}

type matchingService struct {
	driverRepo    repository.DriverRepository
	pricing       PricingService
	defaultRadius float64
}

func NewMatchingService(driverRepo repository.DriverRepository, pricing PricingService, defaultRadiusKM float64) MatchingService {
	return &matchingService{
		driverRepo:    driverRepo,
		pricing:       pricing,
		defaultRadius: defaultRadiusKM,
	}
}

// FindNearbyDrivers scans every available driver with a known position and
// returns those within the radius, nearest first.
func (s *matchingService) FindNearbyDrivers(ctx context.Context, point models.Coordinates, radiusKM *float64) (*models.NearbyDriversResponse, error) {
	if err := ValidateCoordinates(point); err != nil {
		return nil, err
	}

	radius := s.defaultRadius
	if radiusKM != nil {
		radius = *radiusKM
	}
	if radius <= 0 {
		return nil, apperrors.InvalidInput("radius_km must be positive")
	}
	limit := decimal.NewFromFloat(radius)

	drivers, err := s.driverRepo.ListAvailableWithLocation(ctx)
	if err != nil {
		return nil, err
	}

	nearby := []models.NearbyDriver{}
	for _, d := range drivers {
		if !d.IsAvailable || !d.HasLocation() {
			continue
		}
		at := models.Coordinates{Latitude: *d.CurrentLatitude, Longitude: *d.CurrentLongitude}
		distance, err := s.pricing.Distance(point, at)
		if err != nil {
			continue
		}
		if distance.GreaterThan(limit) {
			continue
		}

		nearby = append(nearby, models.NearbyDriver{
			DriverID:    d.ID,
			DriverName:  d.Name,
			VehicleInfo: d.VehicleInfo(),
			DistanceKM:  distance,
			ETAMinutes:  s.pricing.ETAMinutes(distance),
			Rating:      d.Rating,
			Latitude:    at.Latitude,
			Longitude:   at.Longitude,
		})
	}

	sort.Slice(nearby, func(i, j int) bool {
		if c := nearby[i].DistanceKM.Cmp(nearby[j].DistanceKM); c != 0 {
			return c < 0
		}
		return nearby[i].DriverID < nearby[j].DriverID
	})

	return &models.NearbyDriversResponse{
		Drivers:        nearby,
		SearchRadiusKM: radius,
		TotalFound:     len(nearby),
	}, nil
}
