package repository

import (
	"context"
	"database/sql"

	"github.com/aditya/ridequote/internal/models"
	"github.com/jmoiron/sqlx"
)

type VehicleRepository interface {
	GetByID(ctx context.Context, id string) (*models.Vehicle, error)
}

type vehicleRepository struct {
	db *sqlx.DB
}

func NewVehicleRepository(db *sqlx.DB) VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) GetByID(ctx context.Context, id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	query := `SELECT * FROM vehicles WHERE id = $1`
	err := r.db.GetContext(ctx, &vehicle, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}
