package models

import (
	"time"
)

type EstimateRequest struct {
	Pickup               *Location `json:"pickup" validate:"required"`
	Destination          *Location `json:"destination" validate:"required"`
	RideClass            string    `json:"ride_class,omitempty" validate:"omitempty,oneof=standard premium xl wheelchair"`
	EstimatedDistanceKm  *float64  `json:"estimated_distance_km,omitempty" validate:"omitempty,gte=0"`
	EstimatedDurationMin *int      `json:"estimated_duration_mins,omitempty" validate:"omitempty,gte=0"`
}

// EstimateOption is a per-partner price and ETA for a corridor. No driver is bound.
type EstimateOption struct {
	PartnerID         string  `json:"partner_id"`
	CompanyName       string  `json:"company_name"`
	Price             float64 `json:"price"`
	EstimatedArrival  int     `json:"estimated_arrival"`
	EstimatedDuration int     `json:"estimated_duration"`
	Tag               string  `json:"tag,omitempty"`
}

type EstimateResponse struct {
	RideClass   string            `json:"ride_class"`
	DistanceKm  float64           `json:"distance_km"`
	DurationMin int               `json:"duration_mins"`
	Options     []*EstimateOption `json:"options"`
	GeneratedAt time.Time         `json:"generated_at"`
	Cached      bool              `json:"cached"`
}
