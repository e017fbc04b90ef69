package repository

import (
	"context"
	"database/sql"

	"github.com/aditya/ridequote/internal/models"
	"github.com/jmoiron/sqlx"
)

type LocationRepository interface {
	AppendTx(ctx context.Context, tx *sqlx.Tx, loc *models.DriverLocation) error
	LatestByDriver(ctx context.Context, driverID string) (*models.DriverLocation, error)
}

type locationRepository struct {
	db *sqlx.DB
}

func NewLocationRepository(db *sqlx.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) AppendTx(ctx context.Context, tx *sqlx.Tx, loc *models.DriverLocation) error {
	query := `
		INSERT INTO driver_locations (driver_id, lat, lng, heading, speed, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return tx.QueryRowxContext(ctx, query,
		loc.DriverID, loc.Lat, loc.Lng, loc.Heading, loc.Speed, loc.RecordedAt).Scan(&loc.ID)
}

func (r *locationRepository) LatestByDriver(ctx context.Context, driverID string) (*models.DriverLocation, error) {
	var loc models.DriverLocation
	query := `
		SELECT * FROM driver_locations
		WHERE driver_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	err := r.db.GetContext(ctx, &loc, query, driverID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}
