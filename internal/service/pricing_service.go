package service

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/shopspring/decimal"
)

const earthRadiusKM = 6371.0

var (
	baseFare        = decimal.NewFromInt(50)
	ratePerKM       = decimal.NewFromInt(15)
	ratePerMinute   = decimal.NewFromInt(2)
	minutesPerKM    = decimal.NewFromInt(3)
	etaMinutesPerKM = decimal.NewFromInt(2) // 30 km/h

	one = decimal.NewFromInt(1)
)

var rideTypeMultipliers = map[string]decimal.Decimal{
	models.RideTypeStandard: decimal.NewFromInt(1),
	models.RideTypePremium:  decimal.RequireFromString("1.5"),
	models.RideTypeLuxury:   decimal.NewFromInt(2),
	models.RideTypeShared:   decimal.RequireFromString("0.7"),
}

var (
	peakMultiplier  = decimal.RequireFromString("1.3")
	nightMultiplier = decimal.RequireFromString("1.2")
)

// surgeTiers are checked in order; the first tier whose threshold the active
// ride count exceeds wins.
var surgeTiers = []struct {
	above      int
	multiplier decimal.Decimal
}{
	{20, decimal.NewFromInt(2)},
	{10, decimal.RequireFromString("1.5")},
	{5, decimal.RequireFromString("1.2")},
}

// ActiveRideCounter reports live demand for surge pricing.
type ActiveRideCounter interface {
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
}

type PricingService interface {
	Distance(a, b models.Coordinates) (decimal.Decimal, error)
	TimeMultiplier(at time.Time) decimal.Decimal
	SurgeMultiplier(activeRides int) decimal.Decimal
	CurrentSurge(ctx context.Context) (decimal.Decimal, error)
	CalculateFare(a, b models.Coordinates, rideType string, at time.Time, surge decimal.Decimal) (*models.FareBreakdown, error)
	Estimate(ctx context.Context, a, b models.Coordinates, rideType string) (*models.FareBreakdown, error)
	ETAMinutes(distanceKM decimal.Decimal) int64
}

type pricingService struct {
	rides    ActiveRideCounter
	location *time.Location
	currency string
	now      func() time.Time
}

func NewPricingService(rides ActiveRideCounter, location *time.Location, currency string) PricingService {
	if location == nil {
		location = time.UTC
	}
	return &pricingService{
		rides:    rides,
		location: location,
		currency: currency,
		now:      time.Now,
	}
}

// Distance is the haversine great-circle distance in km, rounded to 2 places.
func (s *pricingService) Distance(a, b models.Coordinates) (decimal.Decimal, error) {
	if err := ValidateCoordinates(a); err != nil {
		return decimal.Zero, err
	}
	if err := ValidateCoordinates(b); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(haversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)).Round(2), nil
}

// TimeMultiplier uses whole local hours: 07-09 and 17-20 are peak, 22-05 is night.
func (s *pricingService) TimeMultiplier(at time.Time) decimal.Decimal {
	hour := at.In(s.location).Hour()
	switch {
	case (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 20):
		return peakMultiplier
	case hour >= 22 || hour <= 5:
		return nightMultiplier
	default:
		return one
	}
}

func (s *pricingService) SurgeMultiplier(activeRides int) decimal.Decimal {
	for _, tier := range surgeTiers {
		if activeRides > tier.above {
			return tier.multiplier
		}
	}
	return one
}

// CurrentSurge counts accepted and in-progress rides requested in the trailing hour.
func (s *pricingService) CurrentSurge(ctx context.Context) (decimal.Decimal, error) {
	if s.rides == nil {
		return one, nil
	}
	count, err := s.rides.CountActiveSince(ctx, s.now().Add(-time.Hour))
	if err != nil {
		return decimal.Zero, fmt.Errorf("count active rides: %w", err)
	}
	return s.SurgeMultiplier(count), nil
}

func (s *pricingService) CalculateFare(a, b models.Coordinates, rideType string, at time.Time, surge decimal.Decimal) (*models.FareBreakdown, error) {
	distance, err := s.Distance(a, b)
	if err != nil {
		return nil, err
	}
	if rideType == "" {
		rideType = models.RideTypeStandard
	}

	classMultiplier, ok := rideTypeMultipliers[rideType]
	if !ok {
		classMultiplier = one
	}
	timeMultiplier := s.TimeMultiplier(at)

	minutes := distance.Mul(minutesPerKM)
	distanceFare := distance.Mul(ratePerKM)
	timeFare := minutes.Mul(ratePerMinute)
	subtotal := baseFare.Add(distanceFare).Add(timeFare)
	total := subtotal.Mul(classMultiplier).Mul(timeMultiplier).Mul(surge).Round(2)

	return &models.FareBreakdown{
		BaseFare:           baseFare,
		DistanceFare:       distanceFare.Round(2),
		TimeFare:           timeFare.Round(2),
		Subtotal:           subtotal.Round(2),
		DistanceKM:         distance,
		EstimatedMinutes:   minutes.Round(2),
		RideType:           rideType,
		RideTypeMultiplier: classMultiplier,
		TimeMultiplier:     timeMultiplier,
		SurgeMultiplier:    surge,
		TotalFare:          total,
		Currency:           s.currency,
	}, nil
}

func (s *pricingService) Estimate(ctx context.Context, a, b models.Coordinates, rideType string) (*models.FareBreakdown, error) {
	surge, err := s.CurrentSurge(ctx)
	if err != nil {
		return nil, err
	}
	return s.CalculateFare(a, b, rideType, s.now(), surge)
}

// ETAMinutes assumes a constant 30 km/h.
func (s *pricingService) ETAMinutes(distanceKM decimal.Decimal) int64 {
	return distanceKM.Mul(etaMinutesPerKM).Round(0).IntPart()
}

// ValidateCoordinates rejects NaN, infinities and out-of-range degrees.
func ValidateCoordinates(c models.Coordinates) error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) || c.Latitude < -90 || c.Latitude > 90 {
		return apperrors.InvalidCoordinates(fmt.Sprintf("latitude %v out of range [-90, 90]", c.Latitude))
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) || c.Longitude < -180 || c.Longitude > 180 {
		return apperrors.InvalidCoordinates(fmt.Sprintf("longitude %v out of range [-180, 180]", c.Longitude))
	}
	return nil
}

// haversineDistance calculates the distance between two points on Earth
func haversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Asin(math.Min(1, math.Sqrt(a)))

	return earthRadiusKM * c
}
