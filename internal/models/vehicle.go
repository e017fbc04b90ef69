package models

import (
	"time"
)

type Vehicle struct {
	ID           string    `db:"id" json:"id"`
	PartnerID    string    `db:"partner_id" json:"partner_id"`
	Make         string    `db:"make" json:"make"`
	Model        string    `db:"model" json:"model"`
	Year         int       `db:"year" json:"year"`
	Color        string    `db:"color" json:"color"`
	LicensePlate string    `db:"license_plate" json:"license_plate"`
	VehicleType  string    `db:"vehicle_type" json:"vehicle_type"`
	Seats        int       `db:"seats" json:"seats"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type VehicleResponse struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Color        string `json:"color"`
	LicensePlate string `json:"license_plate"`
	VehicleType  string `json:"vehicle_type"`
	Seats        int    `json:"seats"`
}

func (v *Vehicle) ToResponse() *VehicleResponse {
	return &VehicleResponse{
		Make:         v.Make,
		Model:        v.Model,
		Color:        v.Color,
		LicensePlate: v.LicensePlate,
		VehicleType:  v.VehicleType,
		Seats:        v.Seats,
	}
}
