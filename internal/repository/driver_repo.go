package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type DriverRepository interface {
	Create(ctx context.Context, driver *models.Driver) error
	GetByID(ctx context.Context, id string) (*models.Driver, error)
	GetByLicense(ctx context.Context, licenseNumber string) (*models.Driver, error)
	UpdateLocation(ctx context.Context, id string, lat, lng float64, at time.Time) error
	SetAvailability(ctx context.Context, id string, available bool) (bool, error)
	ListAvailableWithLocation(ctx context.Context) ([]*models.Driver, error)
}

type driverRepository struct {
	db *sqlx.DB
}

func NewDriverRepository(db *sqlx.DB) DriverRepository {
	return &driverRepository{db: db}
}

const driverSelect = `
	SELECT d.*, u.name, u.phone
	FROM drivers d
	JOIN users u ON u.id = d.id
`

func (r *driverRepository) Create(ctx context.Context, driver *models.Driver) error {
	driver.CreatedAt = time.Now()
	driver.UpdatedAt = driver.CreatedAt
	driver.Rating = decimal.NewFromInt(5)
	driver.TotalRides = 0
	driver.TotalEarnings = decimal.Zero
	driver.IsAvailable = false

	query := `
		INSERT INTO drivers (id, license_number, vehicle_type, vehicle_make, vehicle_model, vehicle_number,
			is_verified, is_available, rating, total_rides, total_earnings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		driver.ID, driver.LicenseNumber, driver.VehicleType, driver.VehicleMake, driver.VehicleModel,
		driver.VehicleNumber, driver.IsVerified, driver.IsAvailable, driver.Rating, driver.TotalRides,
		driver.TotalEarnings, driver.CreatedAt, driver.UpdatedAt)
	if isUniqueViolation(err) {
		return apperrors.Conflict("driver profile or license already registered")
	}
	return err
}

func (r *driverRepository) GetByID(ctx context.Context, id string) (*models.Driver, error) {
	var driver models.Driver
	err := r.db.GetContext(ctx, &driver, driverSelect+` WHERE d.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *driverRepository) GetByLicense(ctx context.Context, licenseNumber string) (*models.Driver, error) {
	var driver models.Driver
	err := r.db.GetContext(ctx, &driver, driverSelect+` WHERE d.license_number = $1`, licenseNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *driverRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64, at time.Time) error {
	query := `
		UPDATE drivers
		SET current_latitude = $1, current_longitude = $2, last_location_update = $3, updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, lat, lng, at, id)
	return err
}

// SetAvailability reports false when the driver does not exist or, going
// available, still holds an accepted or in-progress ride. Going available locks
// the driver row that AcceptRequest claims, so a ride committed by a concurrent
// accept is visible to the NOT EXISTS check.
func (r *driverRepository) SetAvailability(ctx context.Context, id string, available bool) (bool, error) {
	now := time.Now()
	if !available {
		res, err := r.db.ExecContext(ctx, `UPDATE drivers SET is_available = FALSE, updated_at = $2 WHERE id = $1`, id, now)
		if err != nil {
			return false, err
		}
		n, err := rowsAffected(res)
		return n > 0, err
	}

	var updated bool
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked string
		err := tx.GetContext(ctx, &locked, `SELECT id FROM drivers WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE drivers SET is_available = TRUE, updated_at = $2
			WHERE id = $1 AND NOT EXISTS (
				SELECT 1 FROM rides WHERE driver_id = $1 AND status IN ($3, $4)
			)
		`, id, now, models.RideStatusAccepted, models.RideStatusInProgress)
		if err != nil {
			return err
		}
		n, err := rowsAffected(res)
		updated = n > 0
		return err
	})
	return updated, err
}

// ListAvailableWithLocation returns every available driver that has reported a position.
func (r *driverRepository) ListAvailableWithLocation(ctx context.Context) ([]*models.Driver, error) {
	var drivers []*models.Driver
	query := driverSelect + `
		WHERE d.is_available
		AND d.current_latitude IS NOT NULL AND d.current_longitude IS NOT NULL
	`
	err := r.db.SelectContext(ctx, &drivers, query)
	return drivers, err
}
