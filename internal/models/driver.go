package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Ride classes double as vehicle types
const (
	RideTypeStandard = "standard"
	RideTypePremium  = "premium"
	RideTypeLuxury   = "luxury"
	RideTypeShared   = "shared"
)

// Driver is the driver profile joined with the owning user's name and phone.
type Driver struct {
	ID                 string          `db:"id" json:"id"`
	Name               string          `db:"name" json:"name"`
	Phone              string          `db:"phone" json:"phone"`
	LicenseNumber      string          `db:"license_number" json:"license_number"`
	VehicleType        string          `db:"vehicle_type" json:"vehicle_type"`
	VehicleMake        string          `db:"vehicle_make" json:"vehicle_make"`
	VehicleModel       string          `db:"vehicle_model" json:"vehicle_model"`
	VehicleNumber      string          `db:"vehicle_number" json:"vehicle_number"`
	IsVerified         bool            `db:"is_verified" json:"is_verified"`
	IsAvailable        bool            `db:"is_available" json:"is_available"`
	CurrentLatitude    *float64        `db:"current_latitude" json:"current_latitude,omitempty"`
	CurrentLongitude   *float64        `db:"current_longitude" json:"current_longitude,omitempty"`
	LastLocationUpdate *time.Time      `db:"last_location_update" json:"last_location_update,omitempty"`
	Rating             decimal.Decimal `db:"rating" json:"rating"`
	TotalRides         int             `db:"total_rides" json:"total_rides"`
	TotalEarnings      decimal.Decimal `db:"total_earnings" json:"total_earnings"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

type CreateDriverRequest struct {
	LicenseNumber string `json:"license_number" validate:"required,max=50"`
	VehicleType   string `json:"vehicle_type" validate:"required,oneof=standard premium luxury shared"`
	VehicleMake   string `json:"vehicle_make" validate:"max=50"`
	VehicleModel  string `json:"vehicle_model" validate:"max=50"`
	VehicleNumber string `json:"vehicle_number" validate:"required,max=20"`
}

type UpdateDriverLocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Speed     *float64 `json:"speed,omitempty" validate:"omitempty,gte=0"`
}

type UpdateAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

type DriverResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Rating        decimal.Decimal `json:"rating"`
	VehicleType   string          `json:"vehicle_type"`
	VehicleInfo   string          `json:"vehicle_info"`
	VehicleNumber string          `json:"vehicle_number"`
	IsAvailable   bool            `json:"is_available"`
	TotalRides    int             `json:"total_rides"`
	Latitude      *float64        `json:"latitude,omitempty"`
	Longitude     *float64        `json:"longitude,omitempty"`
}

// NearbyDriver is one entry of a nearby-drivers search.
type NearbyDriver struct {
	DriverID    string          `json:"driver_id"`
	DriverName  string          `json:"driver_name"`
	VehicleInfo string          `json:"vehicle_info"`
	DistanceKM  decimal.Decimal `json:"distance_km"`
	ETAMinutes  int64           `json:"eta_minutes"`
	Rating      decimal.Decimal `json:"rating"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
}

type NearbyDriversRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	RadiusKM  *float64 `json:"radius_km,omitempty"`
}

type NearbyDriversResponse struct {
	Drivers        []NearbyDriver `json:"drivers"`
	SearchRadiusKM float64        `json:"search_radius_km"`
	TotalFound     int            `json:"total_found"`
}

// HasLocation reports whether the driver has ever reported coordinates.
func (d *Driver) HasLocation() bool {
	return d.CurrentLatitude != nil && d.CurrentLongitude != nil
}

func (d *Driver) VehicleInfo() string {
	if d.VehicleMake == "" && d.VehicleModel == "" {
		return d.VehicleNumber
	}
	return fmt.Sprintf("%s %s (%s)", d.VehicleMake, d.VehicleModel, d.VehicleNumber)
}

func (d *Driver) ToResponse() *DriverResponse {
	return &DriverResponse{
		ID:            d.ID,
		Name:          d.Name,
		Phone:         d.Phone,
		Rating:        d.Rating,
		VehicleType:   d.VehicleType,
		VehicleInfo:   d.VehicleInfo(),
		VehicleNumber: d.VehicleNumber,
		IsAvailable:   d.IsAvailable,
		TotalRides:    d.TotalRides,
		Latitude:      d.CurrentLatitude,
		Longitude:     d.CurrentLongitude,
	}
}

func IsValidRideType(rt string) bool {
	return rt == RideTypeStandard || rt == RideTypePremium || rt == RideTypeLuxury || rt == RideTypeShared
}
