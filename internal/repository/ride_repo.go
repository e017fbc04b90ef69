package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/aditya/ridequote/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type RideRepository interface {
	GetByID(ctx context.Context, id string) (*models.RideRequest, error)

	CreateTx(ctx context.Context, tx *sqlx.Tx, ride *models.RideRequest) error

	GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.RideRequest, error)
	GetActiveByDriverTx(ctx context.Context, tx *sqlx.Tx, driverID string) (*models.RideRequest, error)
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id, from, to string) (bool, error)
	AssignTx(ctx context.Context, tx *sqlx.Tx, id, driverID, quoteID string) (bool, error)
}

type rideRepository struct {
	db *sqlx.DB
}

func NewRideRepository(db *sqlx.DB) RideRepository {
	return &rideRepository{db: db}
}

func (r *rideRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, ride *models.RideRequest) error {
	if ride.ID == "" {
		ride.ID = uuid.New().String()
	}
	now := time.Now()
	ride.CreatedAt = now
	ride.UpdatedAt = now
	ride.Status = models.RideStatusPending

	query := `
		INSERT INTO ride_requests (id, customer_name, customer_phone, pickup_lat, pickup_lng, pickup_address,
			destination_lat, destination_lng, destination_address, ride_class, scheduled_at,
			estimated_distance_km, estimated_duration_mins, max_price, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := tx.ExecContext(ctx, query,
		ride.ID, ride.CustomerName, ride.CustomerPhone, ride.PickupLat, ride.PickupLng, ride.PickupAddress,
		ride.DestinationLat, ride.DestinationLng, ride.DestinationAddress, ride.RideClass, ride.ScheduledAt,
		ride.EstimatedDistanceKm, ride.EstimatedDurationMin, ride.MaxPrice, ride.Notes, ride.Status,
		ride.CreatedAt, ride.UpdatedAt)
	return err
}

func (r *rideRepository) GetByID(ctx context.Context, id string) (*models.RideRequest, error) {
	var ride models.RideRequest
	query := `SELECT * FROM ride_requests WHERE id = $1`
	err := r.db.GetContext(ctx, &ride, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

// UpdateStatus moves the ride from one status to another only if it is still
// in the expected status.
func (r *rideRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.RideRequest, error) {
	var ride models.RideRequest
	query := `SELECT * FROM ride_requests WHERE id = $1 FOR UPDATE`
	err := tx.GetContext(ctx, &ride, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

func (r *rideRepository) GetActiveByDriverTx(ctx context.Context, tx *sqlx.Tx, driverID string) (*models.RideRequest, error) {
	var ride models.RideRequest
	query := `
		SELECT * FROM ride_requests
		WHERE driver_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := tx.GetContext(ctx, &ride, query, driverID,
		pq.Array([]string{models.RideStatusAccepted, models.RideStatusPickedUp}))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

func (r *rideRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id, from, to string) (bool, error) {
	query := `UPDATE ride_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := tx.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

// AssignTx binds the winning driver and quote to a ride that is still open.
func (r *rideRepository) AssignTx(ctx context.Context, tx *sqlx.Tx, id, driverID, quoteID string) (bool, error) {
	query := `
		UPDATE ride_requests
		SET status = $1, driver_id = $2, accepted_quote_id = $3, updated_at = $4
		WHERE id = $5 AND status = ANY($6)
	`
	result, err := tx.ExecContext(ctx, query,
		models.RideStatusAccepted, driverID, quoteID, time.Now(), id,
		pq.Array([]string{models.RideStatusPending, models.RideStatusMatched}))
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}
