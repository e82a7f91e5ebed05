package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ride status constants
const (
	RideStatusPending    = "pending"
	RideStatusAccepted   = "accepted"
	RideStatusInProgress = "in_progress"
	RideStatusCompleted  = "completed"
	RideStatusCancelled  = "cancelled"
)

// Valid ride state transitions
var ValidRideTransitions = map[string][]string{
	RideStatusPending:    {RideStatusAccepted, RideStatusCancelled},
	RideStatusAccepted:   {RideStatusInProgress, RideStatusCancelled},
	RideStatusInProgress: {RideStatusCompleted, RideStatusCancelled},
	RideStatusCompleted:  {},
	RideStatusCancelled:  {},
}

// ActiveRideStatuses are the states counted as live demand.
var ActiveRideStatuses = []string{RideStatusAccepted, RideStatusInProgress}

type Ride struct {
	ID                   string          `db:"id" json:"id"`
	RideRequestID        *string         `db:"ride_request_id" json:"ride_request_id,omitempty"`
	RiderID              string          `db:"rider_id" json:"rider_id"`
	DriverID             *string         `db:"driver_id" json:"driver_id,omitempty"`
	PickupLatitude       float64         `db:"pickup_latitude" json:"pickup_latitude"`
	PickupLongitude      float64         `db:"pickup_longitude" json:"pickup_longitude"`
	PickupAddress        string          `db:"pickup_address" json:"pickup_address"`
	DestinationLatitude  float64         `db:"destination_latitude" json:"destination_latitude"`
	DestinationLongitude float64         `db:"destination_longitude" json:"destination_longitude"`
	DestinationAddress   string          `db:"destination_address" json:"destination_address"`
	RideType             string          `db:"ride_type" json:"ride_type"`
	Fare                 decimal.Decimal `db:"fare" json:"fare"`
	Distance             decimal.Decimal `db:"distance" json:"distance"`
	Status               string          `db:"status" json:"status"`
	RequestedAt          time.Time       `db:"requested_at" json:"requested_at"`
	AcceptedAt           *time.Time      `db:"accepted_at" json:"accepted_at,omitempty"`
	StartedAt            *time.Time      `db:"started_at" json:"started_at,omitempty"`
	CompletedAt          *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt          *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason   *string         `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	RiderNotes           *string         `db:"rider_notes" json:"rider_notes,omitempty"`
	DriverNotes          *string         `db:"driver_notes" json:"driver_notes,omitempty"`
	RatingByRider        *int            `db:"rating_by_rider" json:"rating_by_rider,omitempty"`
	RatingByDriver       *int            `db:"rating_by_driver" json:"rating_by_driver,omitempty"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

type CompleteRideRequest struct {
	ActualFare     *decimal.Decimal `json:"actual_fare,omitempty"`
	ActualDistance *decimal.Decimal `json:"actual_distance,omitempty"`
}

type CancelRideRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type RateRideRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty" validate:"max=1000"`
}

// NewRideFromRequest snapshots a request's trip into a ride owned by driverID.
func NewRideFromRequest(req *RideRequest, driverID string, at time.Time) *Ride {
	reqID := req.ID
	return &Ride{
		RideRequestID:        &reqID,
		RiderID:              req.RiderID,
		DriverID:             &driverID,
		PickupLatitude:       req.PickupLatitude,
		PickupLongitude:      req.PickupLongitude,
		PickupAddress:        req.PickupAddress,
		DestinationLatitude:  req.DestinationLatitude,
		DestinationLongitude: req.DestinationLongitude,
		DestinationAddress:   req.DestinationAddress,
		RideType:             req.RideType,
		Fare:                 req.EstimatedFare,
		Distance:             req.EstimatedDistance,
		Status:               RideStatusAccepted,
		RequestedAt:          req.CreatedAt,
		AcceptedAt:           &at,
		UpdatedAt:            at,
	}
}

// CanTransitionTo checks if a ride can transition to a new status
func (r *Ride) CanTransitionTo(newStatus string) bool {
	return contains(ValidRideTransitions[r.Status], newStatus)
}

// IsActive returns true if the ride is not in a terminal state
func (r *Ride) IsActive() bool {
	return r.Status != RideStatusCompleted && r.Status != RideStatusCancelled
}

func (r *Ride) IsAssignedTo(driverID string) bool {
	return r.DriverID != nil && *r.DriverID == driverID
}

func (r *Ride) IsParticipant(userID string) bool {
	return r.RiderID == userID || r.IsAssignedTo(userID)
}

func contains(states []string, s string) bool {
	for _, state := range states {
		if state == s {
			return true
		}
	}
	return false
}
