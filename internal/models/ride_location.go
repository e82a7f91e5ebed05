package models

import "time"

// RideLocation is an append-only position sample of a ride.
type RideLocation struct {
	ID        int64     `db:"id" json:"id"`
	RideID    string    `db:"ride_id" json:"ride_id"`
	Latitude  float64   `db:"latitude" json:"latitude"`
	Longitude float64   `db:"longitude" json:"longitude"`
	Speed     *float64  `db:"speed" json:"speed,omitempty"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}
