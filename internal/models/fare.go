package models

import (
	"github.com/shopspring/decimal"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type FareEstimateRequest struct {
	PickupLatitude       *float64 `json:"pickup_latitude" validate:"required,latitude"`
	PickupLongitude      *float64 `json:"pickup_longitude" validate:"required,longitude"`
	DestinationLatitude  *float64 `json:"destination_latitude" validate:"required,latitude"`
	DestinationLongitude *float64 `json:"destination_longitude" validate:"required,longitude"`
	RideType             string   `json:"ride_type" validate:"max=20"`
}

func (in *FareEstimateRequest) Pickup() Coordinates {
	return Coordinates{Latitude: *in.PickupLatitude, Longitude: *in.PickupLongitude}
}

func (in *FareEstimateRequest) Destination() Coordinates {
	return Coordinates{Latitude: *in.DestinationLatitude, Longitude: *in.DestinationLongitude}
}

// FareBreakdown reports every component of a fare so clients can display it.
type FareBreakdown struct {
	BaseFare           decimal.Decimal `json:"base_fare"`
	DistanceFare       decimal.Decimal `json:"distance_fare"`
	TimeFare           decimal.Decimal `json:"time_fare"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DistanceKM         decimal.Decimal `json:"distance_km"`
	EstimatedMinutes   decimal.Decimal `json:"estimated_minutes"`
	RideType           string          `json:"ride_type"`
	RideTypeMultiplier decimal.Decimal `json:"ride_type_multiplier"`
	TimeMultiplier     decimal.Decimal `json:"time_multiplier"`
	SurgeMultiplier    decimal.Decimal `json:"surge_multiplier"`
	TotalFare          decimal.Decimal `json:"total_fare"`
	Currency           string          `json:"currency"`
}
