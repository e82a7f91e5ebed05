package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/pkg/utils"
	"github.com/jmoiron/sqlx"
)

type RideRequestRepository interface {
	Create(ctx context.Context, req *models.RideRequest) error
	GetByID(ctx context.Context, id string) (*models.RideRequest, error)
	Cancel(ctx context.Context, id, riderID string) (*models.RideRequest, error)
	MarkExpired(ctx context.Context, id string, now time.Time) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type rideRequestRepository struct {
	db *sqlx.DB
}

func NewRideRequestRepository(db *sqlx.DB) RideRequestRepository {
	return &rideRequestRepository{db: db}
}

func (r *rideRequestRepository) Create(ctx context.Context, req *models.RideRequest) error {
	if req.ID == "" {
		req.ID = utils.GenerateID()
	}
	req.Status = models.RequestStatusPending

	query := `
		INSERT INTO ride_requests (id, rider_id, pickup_latitude, pickup_longitude, pickup_address,
			destination_latitude, destination_longitude, destination_address, ride_type,
			estimated_fare, estimated_distance, special_instructions, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.RiderID, req.PickupLatitude, req.PickupLongitude, req.PickupAddress,
		req.DestinationLatitude, req.DestinationLongitude, req.DestinationAddress, req.RideType,
		req.EstimatedFare, req.EstimatedDistance, req.SpecialInstructions, req.Status,
		req.CreatedAt, req.ExpiresAt)
	return err
}

func (r *rideRequestRepository) GetByID(ctx context.Context, id string) (*models.RideRequest, error) {
	var req models.RideRequest
	query := `SELECT * FROM ride_requests WHERE id = $1`
	err := r.db.GetContext(ctx, &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Cancel moves a pending request owned by riderID to cancelled. It returns nil
// when no row matched.
func (r *rideRequestRepository) Cancel(ctx context.Context, id, riderID string) (*models.RideRequest, error) {
	var req models.RideRequest
	query := `
		UPDATE ride_requests SET status = $1
		WHERE id = $2 AND rider_id = $3 AND status = $4
		RETURNING *
	`
	err := r.db.GetContext(ctx, &req, query,
		models.RequestStatusCancelled, id, riderID, models.RequestStatusPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *rideRequestRepository) MarkExpired(ctx context.Context, id string, now time.Time) error {
	query := `UPDATE ride_requests SET status = $1 WHERE id = $2 AND status = $3 AND expires_at <= $4`
	_, err := r.db.ExecContext(ctx, query,
		models.RequestStatusExpired, id, models.RequestStatusPending, now)
	return err
}

// ExpireOverdue expires every pending request whose deadline has passed.
func (r *rideRequestRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE ride_requests SET status = $1 WHERE status = $2 AND expires_at <= $3`
	res, err := r.db.ExecContext(ctx, query,
		models.RequestStatusExpired, models.RequestStatusPending, now)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}
