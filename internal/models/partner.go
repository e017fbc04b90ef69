package models

import (
	"time"

	"github.com/lib/pq"
)

// Partner application status constants
const (
	PartnerStatusPending  = "pending"
	PartnerStatusApproved = "approved"
	PartnerStatusRejected = "rejected"
)

// Partner is an approved taxi company and its rate card.
type Partner struct {
	ID                  string         `db:"id" json:"id"`
	CompanyName         string         `db:"company_name" json:"company_name"`
	ContactName         string         `db:"contact_name" json:"contact_name"`
	Email               string         `db:"email" json:"email"`
	Phone               string         `db:"phone" json:"phone"`
	ServiceAreas        pq.StringArray `db:"service_areas" json:"service_areas"`
	ServiceTypes        pq.StringArray `db:"service_types" json:"service_types"`
	BaseRate            float64        `db:"base_rate" json:"base_rate"`
	PerKmRate           float64        `db:"per_km_rate" json:"per_km_rate"`
	AverageResponseTime string         `db:"average_response_time" json:"average_response_time"`
	Status              string         `db:"status" json:"status"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

type PartnerResponse struct {
	ID                  string   `json:"id"`
	CompanyName         string   `json:"company_name"`
	ServiceAreas        []string `json:"service_areas"`
	ServiceTypes        []string `json:"service_types"`
	BaseRate            float64  `json:"base_rate"`
	PerKmRate           float64  `json:"per_km_rate"`
	AverageResponseTime string   `json:"average_response_time"`
}

func (p *Partner) ToResponse() *PartnerResponse {
	return &PartnerResponse{
		ID:                  p.ID,
		CompanyName:         p.CompanyName,
		ServiceAreas:        nonNil(p.ServiceAreas),
		ServiceTypes:        nonNil(p.ServiceTypes),
		BaseRate:            p.BaseRate,
		PerKmRate:           p.PerKmRate,
		AverageResponseTime: p.AverageResponseTime,
	}
}

// Serves reports whether the partner offers the given ride class. A partner
// without listed service types serves every class.
func (p *Partner) Serves(rideClass string) bool {
	if len(p.ServiceTypes) == 0 {
		return true
	}
	for _, t := range p.ServiceTypes {
		if t == rideClass {
			return true
		}
	}
	return false
}

func (p *Partner) IsApproved() bool {
	return p.Status == PartnerStatusApproved
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
