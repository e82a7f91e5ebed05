package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ride request status constants
const (
	RequestStatusPending   = "pending"
	RequestStatusAccepted  = "accepted"
	RequestStatusExpired   = "expired"
	RequestStatusCancelled = "cancelled"
)

// A request leaves pending exactly once.
var ValidRequestTransitions = map[string][]string{
	RequestStatusPending:   {RequestStatusAccepted, RequestStatusExpired, RequestStatusCancelled},
	RequestStatusAccepted:  {},
	RequestStatusExpired:   {},
	RequestStatusCancelled: {},
}

type RideRequest struct {
	ID                   string          `db:"id" json:"id"`
	RiderID              string          `db:"rider_id" json:"rider_id"`
	PickupLatitude       float64         `db:"pickup_latitude" json:"pickup_latitude"`
	PickupLongitude      float64         `db:"pickup_longitude" json:"pickup_longitude"`
	PickupAddress        string          `db:"pickup_address" json:"pickup_address"`
	DestinationLatitude  float64         `db:"destination_latitude" json:"destination_latitude"`
	DestinationLongitude float64         `db:"destination_longitude" json:"destination_longitude"`
	DestinationAddress   string          `db:"destination_address" json:"destination_address"`
	RideType             string          `db:"ride_type" json:"ride_type"`
	EstimatedFare        decimal.Decimal `db:"estimated_fare" json:"estimated_fare"`
	EstimatedDistance    decimal.Decimal `db:"estimated_distance" json:"estimated_distance"`
	SpecialInstructions  string          `db:"special_instructions" json:"special_instructions"`
	Status               string          `db:"status" json:"status"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	ExpiresAt            time.Time       `db:"expires_at" json:"expires_at"`
}

type CreateRideRequestInput struct {
	PickupLatitude       *float64 `json:"pickup_latitude" validate:"required,latitude"`
	PickupLongitude      *float64 `json:"pickup_longitude" validate:"required,longitude"`
	PickupAddress        string   `json:"pickup_address" validate:"required,max=500"`
	DestinationLatitude  *float64 `json:"destination_latitude" validate:"required,latitude"`
	DestinationLongitude *float64 `json:"destination_longitude" validate:"required,longitude"`
	DestinationAddress   string   `json:"destination_address" validate:"required,max=500"`
	RideType             string   `json:"ride_type" validate:"omitempty,oneof=standard premium luxury shared"`
	SpecialInstructions  string   `json:"special_instructions" validate:"max=1000"`
}

func (in *CreateRideRequestInput) Pickup() Coordinates {
	return Coordinates{Latitude: *in.PickupLatitude, Longitude: *in.PickupLongitude}
}

func (in *CreateRideRequestInput) Destination() Coordinates {
	return Coordinates{Latitude: *in.DestinationLatitude, Longitude: *in.DestinationLongitude}
}

func (r *RideRequest) Pickup() Coordinates {
	return Coordinates{Latitude: r.PickupLatitude, Longitude: r.PickupLongitude}
}

func (r *RideRequest) Destination() Coordinates {
	return Coordinates{Latitude: r.DestinationLatitude, Longitude: r.DestinationLongitude}
}

// IsExpired reports whether the request's deadline has passed at now.
func (r *RideRequest) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// CanTransitionTo checks if a request can move to a new status
func (r *RideRequest) CanTransitionTo(newStatus string) bool {
	return contains(ValidRequestTransitions[r.Status], newStatus)
}
