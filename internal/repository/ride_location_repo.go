package repository

import (
	"context"

	"github.com/aditya/rideshare/internal/models"
	"github.com/jmoiron/sqlx"
)

type RideLocationRepository interface {
	Create(ctx context.Context, loc *models.RideLocation) error
	ListByRide(ctx context.Context, rideID string, limit int) ([]*models.RideLocation, error)
}

type rideLocationRepository struct {
	db *sqlx.DB
}

func NewRideLocationRepository(db *sqlx.DB) RideLocationRepository {
	return &rideLocationRepository{db: db}
}

func (r *rideLocationRepository) Create(ctx context.Context, loc *models.RideLocation) error {
	query := `
		INSERT INTO ride_locations (ride_id, latitude, longitude, speed, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.db.GetContext(ctx, &loc.ID, query,
		loc.RideID, loc.Latitude, loc.Longitude, loc.Speed, loc.Timestamp)
}

// ListByRide returns samples newest first.
func (r *rideLocationRepository) ListByRide(ctx context.Context, rideID string, limit int) ([]*models.RideLocation, error) {
	locations := []*models.RideLocation{}
	query := `
		SELECT * FROM ride_locations
		WHERE ride_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`
	err := r.db.SelectContext(ctx, &locations, query, rideID, limit)
	return locations, err
}
