package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Ride request status constants
const (
	RideStatusPending   = "pending"
	RideStatusMatched   = "matched"
	RideStatusAccepted  = "accepted"
	RideStatusPickedUp  = "picked_up"
	RideStatusCompleted = "completed"
	RideStatusCancelled = "cancelled"
)

// Valid ride request state transitions
var ValidRideTransitions = map[string][]string{
	RideStatusPending:   {RideStatusMatched, RideStatusAccepted, RideStatusCancelled},
	RideStatusMatched:   {RideStatusAccepted, RideStatusCancelled},
	RideStatusAccepted:  {RideStatusPickedUp, RideStatusCancelled},
	RideStatusPickedUp:  {RideStatusCompleted, RideStatusCancelled},
	RideStatusCompleted: {},
	RideStatusCancelled: {},
}

// Ride classes
const (
	RideClassStandard   = "standard"
	RideClassPremium    = "premium"
	RideClassXL         = "xl"
	RideClassWheelchair = "wheelchair"
)

type Location struct {
	Lat     float64 `json:"lat" validate:"latitude"`
	Lng     float64 `json:"lng" validate:"longitude"`
	Address string  `json:"address,omitempty" validate:"max=500"`
}

type RideRequest struct {
	ID                   string     `db:"id" json:"id"`
	CustomerName         string     `db:"customer_name" json:"customer_name"`
	CustomerPhone        string     `db:"customer_phone" json:"customer_phone"`
	PickupLat            float64    `db:"pickup_lat" json:"pickup_lat"`
	PickupLng            float64    `db:"pickup_lng" json:"pickup_lng"`
	PickupAddress        *string    `db:"pickup_address" json:"pickup_address,omitempty"`
	DestinationLat       float64    `db:"destination_lat" json:"destination_lat"`
	DestinationLng       float64    `db:"destination_lng" json:"destination_lng"`
	DestinationAddress   *string    `db:"destination_address" json:"destination_address,omitempty"`
	RideClass            string     `db:"ride_class" json:"ride_class"`
	ScheduledAt          *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	EstimatedDistanceKm  float64    `db:"estimated_distance_km" json:"estimated_distance_km"`
	EstimatedDurationMin int        `db:"estimated_duration_mins" json:"estimated_duration_mins"`
	MaxPrice             *float64   `db:"max_price" json:"max_price,omitempty"`
	Notes                *string    `db:"notes" json:"notes,omitempty"`
	Status               string     `db:"status" json:"status"`
	DriverID             *string    `db:"driver_id" json:"driver_id,omitempty"`
	AcceptedQuoteID      *string    `db:"accepted_quote_id" json:"accepted_quote_id,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

type CreateRideRequest struct {
	CustomerName         string     `json:"customer_name" validate:"required,min=2,max=100"`
	CustomerPhone        string     `json:"customer_phone" validate:"required,min=7,max=20"`
	Pickup               *Location  `json:"pickup" validate:"required"`
	Destination          *Location  `json:"destination" validate:"required"`
	RideClass            string     `json:"ride_class,omitempty" validate:"omitempty,oneof=standard premium xl wheelchair"`
	ScheduledAt          *time.Time `json:"scheduled_at,omitempty"`
	EstimatedDistanceKm  *float64   `json:"estimated_distance_km,omitempty" validate:"omitempty,gte=0"`
	EstimatedDurationMin *int       `json:"estimated_duration_mins,omitempty" validate:"omitempty,gte=0"`
	MaxPrice             *float64   `json:"max_price,omitempty" validate:"omitempty,gt=0"`
	Notes                string     `json:"notes,omitempty" validate:"max=1000"`
}

type UpdateRideStatusRequest struct {
	Status   string `json:"status" validate:"required,oneof=pending matched accepted picked_up completed cancelled"`
	DriverID string `json:"driver_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Validate checks the fields the struct tags cannot express. It is used on
// every submission path, including ones that never pass through the validator.
func (r *CreateRideRequest) Validate() error {
	if strings.TrimSpace(r.CustomerName) == "" {
		return errors.New("customer_name is required")
	}
	if strings.TrimSpace(r.CustomerPhone) == "" {
		return errors.New("customer_phone is required")
	}
	if r.Pickup == nil {
		return errors.New("pickup is required")
	}
	if r.Destination == nil {
		return errors.New("destination is required")
	}
	if !r.Pickup.InRange() || !r.Destination.InRange() {
		return errors.New("coordinates out of range")
	}
	if r.RideClass != "" && !IsValidRideClass(r.RideClass) {
		return fmt.Errorf("unknown ride class %q", r.RideClass)
	}
	if r.EstimatedDistanceKm != nil && *r.EstimatedDistanceKm < 0 {
		return errors.New("estimated_distance_km must not be negative")
	}
	if r.EstimatedDurationMin != nil && *r.EstimatedDurationMin < 0 {
		return errors.New("estimated_duration_mins must not be negative")
	}
	return nil
}

// InRange reports whether the point is a valid WGS84 coordinate.
func (l *Location) InRange() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

type RideResponse struct {
	ID                   string          `json:"id"`
	Status               string          `json:"status"`
	CustomerName         string          `json:"customer_name"`
	CustomerPhone        string          `json:"customer_phone"`
	Pickup               Location        `json:"pickup"`
	Destination          Location        `json:"destination"`
	RideClass            string          `json:"ride_class"`
	ScheduledAt          *time.Time      `json:"scheduled_at,omitempty"`
	EstimatedDistanceKm  float64         `json:"estimated_distance_km"`
	EstimatedDurationMin int             `json:"estimated_duration_mins"`
	MaxPrice             *float64        `json:"max_price,omitempty"`
	Notes                *string         `json:"notes,omitempty"`
	DriverID             *string         `json:"driver_id,omitempty"`
	AcceptedQuoteID      *string         `json:"accepted_quote_id,omitempty"`
	Driver               *DriverResponse `json:"driver,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// SubmitRideResponse is the body of POST /rides/request. Quotes is never nil so
// "no supply" renders as an empty list.
type SubmitRideResponse struct {
	RideRequest *RideResponse    `json:"rideRequest"`
	Quotes      []*QuoteResponse `json:"quotes"`
}

func (r *RideRequest) ToResponse() *RideResponse {
	resp := &RideResponse{
		ID:            r.ID,
		Status:        r.Status,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		Pickup: Location{
			Lat: r.PickupLat,
			Lng: r.PickupLng,
		},
		Destination: Location{
			Lat: r.DestinationLat,
			Lng: r.DestinationLng,
		},
		RideClass:            r.RideClass,
		ScheduledAt:          r.ScheduledAt,
		EstimatedDistanceKm:  r.EstimatedDistanceKm,
		EstimatedDurationMin: r.EstimatedDurationMin,
		MaxPrice:             r.MaxPrice,
		Notes:                r.Notes,
		DriverID:             r.DriverID,
		AcceptedQuoteID:      r.AcceptedQuoteID,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}

	if r.PickupAddress != nil {
		resp.Pickup.Address = *r.PickupAddress
	}
	if r.DestinationAddress != nil {
		resp.Destination.Address = *r.DestinationAddress
	}

	return resp
}

// CanTransitionTo checks if a ride request can transition to a new status
func (r *RideRequest) CanTransitionTo(newStatus string) bool {
	return CanTransition(r.Status, newStatus)
}

func CanTransition(from, to string) bool {
	validNextStates, exists := ValidRideTransitions[from]
	if !exists {
		return false
	}

	for _, state := range validNextStates {
		if state == to {
			return true
		}
	}
	return false
}

// IsActive returns true if the ride is not in a terminal state
func (r *RideRequest) IsActive() bool {
	return r.Status != RideStatusCompleted && r.Status != RideStatusCancelled
}

// IsOpen reports whether quotes for the request may still be accepted.
func (r *RideRequest) IsOpen() bool {
	return r.Status == RideStatusPending || r.Status == RideStatusMatched
}

func IsTerminalRideStatus(status string) bool {
	return status == RideStatusCompleted || status == RideStatusCancelled
}

func IsValidRideClass(class string) bool {
	switch class {
	case RideClassStandard, RideClassPremium, RideClassXL, RideClassWheelchair:
		return true
	}
	return false
}
