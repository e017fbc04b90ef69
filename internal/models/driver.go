package models

import (
	"time"
)

// Driver status constants
const (
	DriverStatusOffline = "offline"
	DriverStatusOnline  = "online"
	DriverStatusBusy    = "busy"
)

type Driver struct {
	ID                string     `db:"id" json:"id"`
	PartnerID         string     `db:"partner_id" json:"partner_id"`
	Name              string     `db:"name" json:"name"`
	Phone             string     `db:"phone" json:"phone"`
	Email             *string    `db:"email" json:"email,omitempty"`
	LicenseNumber     string     `db:"license_number" json:"license_number"`
	LicenseExpiry     *time.Time `db:"license_expiry" json:"license_expiry,omitempty"`
	VehicleID         *string    `db:"vehicle_id" json:"vehicle_id,omitempty"`
	Status            string     `db:"status" json:"status"`
	Rating            float64    `db:"rating" json:"rating"`
	TotalRides        int        `db:"total_rides" json:"total_rides"`
	IsVerified        bool       `db:"is_verified" json:"is_verified"`
	CurrentLat        *float64   `db:"current_lat" json:"current_lat,omitempty"`
	CurrentLng        *float64   `db:"current_lng" json:"current_lng,omitempty"`
	LocationUpdatedAt *time.Time `db:"location_updated_at" json:"location_updated_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

type UpdateDriverStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=offline online busy"`
}

type UpdateDriverLocationRequest struct {
	Lat     float64  `json:"lat" validate:"latitude"`
	Lng     float64  `json:"lng" validate:"longitude"`
	Heading *float64 `json:"heading,omitempty" validate:"omitempty,gte=0,lt=360"`
	Speed   *float64 `json:"speed,omitempty" validate:"omitempty,gte=0"`
}

type DriverResponse struct {
	ID         string           `json:"id"`
	PartnerID  string           `json:"partner_id"`
	Name       string           `json:"name"`
	Phone      string           `json:"phone"`
	Rating     float64          `json:"rating"`
	TotalRides int              `json:"total_rides"`
	Status     string           `json:"status"`
	IsVerified bool             `json:"is_verified"`
	CurrentLat *float64         `json:"current_lat,omitempty"`
	CurrentLng *float64         `json:"current_lng,omitempty"`
	Vehicle    *VehicleResponse `json:"vehicle,omitempty"`
	DistanceKm *float64         `json:"distance_km,omitempty"`
}

type DriverWithDistance struct {
	Driver   *Driver
	Distance float64 // in km
}

func (d *Driver) ToResponse() *DriverResponse {
	return &DriverResponse{
		ID:         d.ID,
		PartnerID:  d.PartnerID,
		Name:       d.Name,
		Phone:      d.Phone,
		Rating:     d.Rating,
		TotalRides: d.TotalRides,
		Status:     d.Status,
		IsVerified: d.IsVerified,
		CurrentLat: d.CurrentLat,
		CurrentLng: d.CurrentLng,
	}
}

func (d *DriverWithDistance) ToResponse() *DriverResponse {
	resp := d.Driver.ToResponse()
	dist := d.Distance
	resp.DistanceKm = &dist
	return resp
}

func (d *Driver) IsAvailable() bool {
	return d.Status == DriverStatusOnline
}

func IsValidDriverStatus(status string) bool {
	return status == DriverStatusOffline || status == DriverStatusOnline || status == DriverStatusBusy
}
