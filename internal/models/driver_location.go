package models

import (
	"time"
)

// DriverLocation is one append-only position observation.
type DriverLocation struct {
	ID         int64     `db:"id" json:"id"`
	DriverID   string    `db:"driver_id" json:"driver_id"`
	Lat        float64   `db:"lat" json:"lat"`
	Lng        float64   `db:"lng" json:"lng"`
	Heading    *float64  `db:"heading" json:"heading,omitempty"`
	Speed      *float64  `db:"speed" json:"speed,omitempty"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}
