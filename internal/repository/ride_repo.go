package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/pkg/utils"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// RideRepository holds the ride lifecycle. Every transition is a conditional
// UPDATE; a nil ride with a nil error means the precondition did not hold.
type RideRepository interface {
	GetByID(ctx context.Context, id string) (*models.Ride, error)
	ListForActor(ctx context.Context, actor models.Actor, limit int) ([]*models.Ride, error)
	GetActiveByDriverID(ctx context.Context, driverID string) (*models.Ride, error)
	CountActiveSince(ctx context.Context, since time.Time) (int, error)

	AcceptRequest(ctx context.Context, requestID, driverID string, now time.Time) (*models.Ride, error)
	Start(ctx context.Context, rideID, driverID string, now time.Time) (*models.Ride, error)
	Complete(ctx context.Context, rideID, driverID string, fare, distance decimal.NullDecimal, now time.Time) (*models.Ride, error)
	Cancel(ctx context.Context, rideID, reason string, now time.Time) (*models.Ride, error)
	Rate(ctx context.Context, rideID string, role models.Role, raterID string, score int, comment string, now time.Time) (*models.Ride, error)
}

type rideRepository struct {
	db *sqlx.DB
}

func NewRideRepository(db *sqlx.DB) RideRepository {
	return &rideRepository{db: db}
}

func (r *rideRepository) GetByID(ctx context.Context, id string) (*models.Ride, error) {
	var ride models.Ride
	query := `SELECT * FROM rides WHERE id = $1`
	err := r.db.GetContext(ctx, &ride, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

func (r *rideRepository) ListForActor(ctx context.Context, actor models.Actor, limit int) ([]*models.Ride, error) {
	rides := []*models.Ride{}
	var err error

	switch actor.Role {
	case models.RoleAdmin:
		err = r.db.SelectContext(ctx, &rides,
			`SELECT * FROM rides ORDER BY requested_at DESC LIMIT $1`, limit)
	case models.RoleDriver:
		err = r.db.SelectContext(ctx, &rides,
			`SELECT * FROM rides WHERE driver_id = $1 ORDER BY requested_at DESC LIMIT $2`, actor.UserID, limit)
	default:
		err = r.db.SelectContext(ctx, &rides,
			`SELECT * FROM rides WHERE rider_id = $1 ORDER BY requested_at DESC LIMIT $2`, actor.UserID, limit)
	}
	return rides, err
}

func (r *rideRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*models.Ride, error) {
	var ride models.Ride
	query := `
		SELECT * FROM rides
		WHERE driver_id = $1 AND status IN ($2, $3)
		ORDER BY requested_at DESC
		LIMIT 1
	`
	err := r.db.GetContext(ctx, &ride, query, driverID, models.RideStatusAccepted, models.RideStatusInProgress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

// CountActiveSince counts accepted or in-progress rides requested at or after since.
func (r *rideRepository) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM rides WHERE status IN ($1, $2) AND requested_at >= $3`
	err := r.db.GetContext(ctx, &count, query, models.RideStatusAccepted, models.RideStatusInProgress, since)
	return count, err
}

// AcceptRequest converts a pending, unexpired request into an accepted ride and
// claims the driver, all in one transaction. It returns ErrRideNotPending or
// ErrDriverUnavailable when the respective claim loses.
func (r *rideRepository) AcceptRequest(ctx context.Context, requestID, driverID string, now time.Time) (*models.Ride, error) {
	var ride *models.Ride

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE ride_requests SET status = $1 WHERE id = $2 AND status = $3 AND expires_at > $4`,
			models.RequestStatusAccepted, requestID, models.RequestStatusPending, now)
		if err != nil {
			return err
		}
		if n, err := rowsAffected(res); err != nil {
			return err
		} else if n == 0 {
			return apperrors.ErrRideNotPending
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE drivers SET is_available = FALSE, updated_at = $1 WHERE id = $2 AND is_available`,
			now, driverID)
		if err != nil {
			return err
		}
		if n, err := rowsAffected(res); err != nil {
			return err
		} else if n == 0 {
			return apperrors.ErrDriverUnavailable
		}

		var req models.RideRequest
		if err := tx.GetContext(ctx, &req, `SELECT * FROM ride_requests WHERE id = $1`, requestID); err != nil {
			return fmt.Errorf("load accepted request: %w", err)
		}

		ride = models.NewRideFromRequest(&req, driverID, now)
		ride.ID = utils.GenerateID()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO rides (id, ride_request_id, rider_id, driver_id, pickup_latitude, pickup_longitude,
				pickup_address, destination_latitude, destination_longitude, destination_address, ride_type,
				fare, distance, status, requested_at, accepted_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		`,
			ride.ID, ride.RideRequestID, ride.RiderID, ride.DriverID, ride.PickupLatitude, ride.PickupLongitude,
			ride.PickupAddress, ride.DestinationLatitude, ride.DestinationLongitude, ride.DestinationAddress,
			ride.RideType, ride.Fare, ride.Distance, ride.Status, ride.RequestedAt, ride.AcceptedAt, ride.UpdatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ride, nil
}

func (r *rideRepository) Start(ctx context.Context, rideID, driverID string, now time.Time) (*models.Ride, error) {
	var ride models.Ride
	query := `
		UPDATE rides SET status = $1, started_at = $2, updated_at = $2
		WHERE id = $3 AND driver_id = $4 AND status = $5
		RETURNING *
	`
	err := r.db.GetContext(ctx, &ride, query,
		models.RideStatusInProgress, now, rideID, driverID, models.RideStatusAccepted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

// Complete finishes an in-progress ride and releases its driver. Invalid fare or
// distance values leave the estimate in place.
func (r *rideRepository) Complete(ctx context.Context, rideID, driverID string, fare, distance decimal.NullDecimal, now time.Time) (*models.Ride, error) {
	var ride *models.Ride

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var updated models.Ride
		err := tx.GetContext(ctx, &updated, `
			UPDATE rides
			SET status = $1, completed_at = $2, updated_at = $2,
				fare = COALESCE($3, fare), distance = COALESCE($4, distance)
			WHERE id = $5 AND driver_id = $6 AND status = $7
			RETURNING *
		`, models.RideStatusCompleted, now, fare, distance, rideID, driverID, models.RideStatusInProgress)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE drivers SET is_available = TRUE, total_rides = total_rides + 1, updated_at = $1
			WHERE id = $2
		`, now, driverID)
		if err != nil {
			return err
		}

		ride = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ride, nil
}

// Cancel cancels a non-terminal ride and frees its driver if one was assigned.
func (r *rideRepository) Cancel(ctx context.Context, rideID, reason string, now time.Time) (*models.Ride, error) {
	var ride *models.Ride

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var updated models.Ride
		err := tx.GetContext(ctx, &updated, `
			UPDATE rides
			SET status = $1, cancelled_at = $2, cancellation_reason = $3, updated_at = $2
			WHERE id = $4 AND status IN ($5, $6, $7)
			RETURNING *
		`, models.RideStatusCancelled, now, nullString(reason), rideID,
			models.RideStatusPending, models.RideStatusAccepted, models.RideStatusInProgress)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		if updated.DriverID != nil {
			_, err = tx.ExecContext(ctx,
				`UPDATE drivers SET is_available = TRUE, updated_at = $1 WHERE id = $2`,
				now, *updated.DriverID)
			if err != nil {
				return err
			}
		}

		ride = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ride, nil
}

// Rate fills the rater's rating slot once. A rider rating refreshes the
// driver's average.
func (r *rideRepository) Rate(ctx context.Context, rideID string, role models.Role, raterID string, score int, comment string, now time.Time) (*models.Ride, error) {
	var query string
	switch role {
	case models.RoleRider:
		query = `
			UPDATE rides SET rating_by_rider = $1, rider_notes = $2, updated_at = $3
			WHERE id = $4 AND rider_id = $5 AND status = $6 AND rating_by_rider IS NULL
			RETURNING *
		`
	case models.RoleDriver:
		query = `
			UPDATE rides SET rating_by_driver = $1, driver_notes = $2, updated_at = $3
			WHERE id = $4 AND driver_id = $5 AND status = $6 AND rating_by_driver IS NULL
			RETURNING *
		`
	default:
		return nil, fmt.Errorf("role %q cannot rate rides", role)
	}

	var ride *models.Ride
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var updated models.Ride
		err := tx.GetContext(ctx, &updated, query,
			score, nullString(comment), now, rideID, raterID, models.RideStatusCompleted)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		if role == models.RoleRider && updated.DriverID != nil {
			_, err = tx.ExecContext(ctx, `
				UPDATE drivers SET rating = COALESCE((
					SELECT ROUND(AVG(rating_by_rider)::numeric, 2) FROM rides
					WHERE driver_id = $1 AND rating_by_rider IS NOT NULL
				), rating), updated_at = $2
				WHERE id = $1
			`, *updated.DriverID, now)
			if err != nil {
				return err
			}
		}

		ride = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ride, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
