package models

import (
	"time"
)

// Price quote status constants
const (
	QuoteStatusActive    = "active"
	QuoteStatusAccepted  = "accepted"
	QuoteStatusExpired   = "expired"
	QuoteStatusWithdrawn = "withdrawn"
)

// Quote tags
const (
	TagBestPrice = "Best Price"
	TagFastest   = "Fastest"
)

type PriceQuote struct {
	ID                string    `db:"id" json:"id"`
	RideRequestID     string    `db:"ride_request_id" json:"ride_request_id"`
	PartnerID         string    `db:"partner_id" json:"partner_id"`
	DriverID          *string   `db:"driver_id" json:"driver_id,omitempty"`
	Price             float64   `db:"price" json:"price"`
	EstimatedArrival  int       `db:"estimated_arrival" json:"estimated_arrival"`
	EstimatedDuration int       `db:"estimated_duration" json:"estimated_duration"`
	ValidUntil        time.Time `db:"valid_until" json:"valid_until"`
	Status            string    `db:"status" json:"status"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// QuoteWithDetails is a quote row joined with its partner, driver and vehicle.
type QuoteWithDetails struct {
	PriceQuote
	RideStatus   string   `db:"ride_status"`
	CompanyName  string   `db:"company_name"`
	DriverName   *string  `db:"driver_name"`
	DriverRating *float64 `db:"driver_rating"`
	DriverPhone  *string  `db:"driver_phone"`
	VehicleMake  *string  `db:"vehicle_make"`
	VehicleModel *string  `db:"vehicle_model"`
	VehicleColor *string  `db:"vehicle_color"`
	VehiclePlate *string  `db:"vehicle_plate"`
	VehicleType  *string  `db:"vehicle_type"`
	VehicleSeats *int     `db:"vehicle_seats"`
}

type QuoteDriver struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Phone  string  `json:"phone,omitempty"`
	Rating float64 `json:"rating"`
}

type QuoteResponse struct {
	ID                string           `json:"id"`
	RideRequestID     string           `json:"ride_request_id"`
	PartnerID         string           `json:"partner_id"`
	CompanyName       string           `json:"company_name,omitempty"`
	DriverID          *string          `json:"driver_id,omitempty"`
	Price             float64          `json:"price"`
	EstimatedArrival  int              `json:"estimated_arrival"`
	EstimatedDuration int              `json:"estimated_duration"`
	ValidUntil        time.Time        `json:"valid_until"`
	Status            string           `json:"status"`
	Tag               string           `json:"tag,omitempty"`
	Expired           bool             `json:"expired"`
	Actionable        bool             `json:"actionable"`
	Driver            *QuoteDriver     `json:"driver,omitempty"`
	Vehicle           *VehicleResponse `json:"vehicle,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

// AcceptQuoteResponse is the body of a successful accept.
type AcceptQuoteResponse struct {
	Success bool           `json:"success"`
	Quote   *QuoteResponse `json:"quote"`
}

// IsExpired reports whether the quote can no longer be accepted at now.
func (q *PriceQuote) IsExpired(now time.Time) bool {
	return q.Status == QuoteStatusExpired || now.After(q.ValidUntil)
}

func (q *PriceQuote) ToResponse(now time.Time) *QuoteResponse {
	expired := q.IsExpired(now)
	return &QuoteResponse{
		ID:                q.ID,
		RideRequestID:     q.RideRequestID,
		PartnerID:         q.PartnerID,
		DriverID:          q.DriverID,
		Price:             q.Price,
		EstimatedArrival:  q.EstimatedArrival,
		EstimatedDuration: q.EstimatedDuration,
		ValidUntil:        q.ValidUntil,
		Status:            q.Status,
		Expired:           expired,
		Actionable:        q.Status == QuoteStatusActive && !expired,
		CreatedAt:         q.CreatedAt,
	}
}

func (q *QuoteWithDetails) ToResponse(now time.Time) *QuoteResponse {
	resp := q.PriceQuote.ToResponse(now)
	resp.CompanyName = q.CompanyName
	resp.Actionable = resp.Actionable && (q.RideStatus == RideStatusPending || q.RideStatus == RideStatusMatched)

	if q.DriverID != nil && q.DriverName != nil {
		resp.Driver = &QuoteDriver{ID: *q.DriverID, Name: *q.DriverName}
		if q.DriverPhone != nil {
			resp.Driver.Phone = *q.DriverPhone
		}
		if q.DriverRating != nil {
			resp.Driver.Rating = *q.DriverRating
		}
	}

	if q.VehiclePlate != nil {
		v := &VehicleResponse{LicensePlate: *q.VehiclePlate}
		if q.VehicleMake != nil {
			v.Make = *q.VehicleMake
		}
		if q.VehicleModel != nil {
			v.Model = *q.VehicleModel
		}
		if q.VehicleColor != nil {
			v.Color = *q.VehicleColor
		}
		if q.VehicleType != nil {
			v.VehicleType = *q.VehicleType
		}
		if q.VehicleSeats != nil {
			v.Seats = *q.VehicleSeats
		}
		resp.Vehicle = v
	}

	return resp
}
