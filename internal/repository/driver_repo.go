package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aditya/ridequote/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type DriverRepository interface {
	GetByID(ctx context.Context, id string) (*models.Driver, error)
	GetByIDs(ctx context.Context, ids []string, status string) ([]*models.Driver, error)
	ListOnline(ctx context.Context) ([]*models.Driver, error)
	ListOnlineInBox(ctx context.Context, box BoundingBox) ([]*models.Driver, error)

	GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Driver, error)
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id, status string) error
	ClaimTx(ctx context.Context, tx *sqlx.Tx, id string) (bool, error)
	ReleaseTx(ctx context.Context, tx *sqlx.Tx, id string, rideCompleted bool) (bool, *models.Location, error)
	UpdateLocationTx(ctx context.Context, tx *sqlx.Tx, id string, lat, lng float64, at time.Time) (string, error)
}

// BoundingBox is an approximate lat/lng rectangle around a search center.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

type driverRepository struct {
	db *sqlx.DB
}

func NewDriverRepository(db *sqlx.DB) DriverRepository {
	return &driverRepository{db: db}
}

func (r *driverRepository) GetByID(ctx context.Context, id string) (*models.Driver, error) {
	var driver models.Driver
	query := `SELECT * FROM drivers WHERE id = $1`
	err := r.db.GetContext(ctx, &driver, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *driverRepository) GetByIDs(ctx context.Context, ids []string, status string) ([]*models.Driver, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var drivers []*models.Driver
	query := `SELECT * FROM drivers WHERE id = ANY($1) AND status = $2`
	err := r.db.SelectContext(ctx, &drivers, query, pq.Array(ids), status)
	return drivers, err
}

func (r *driverRepository) ListOnline(ctx context.Context) ([]*models.Driver, error) {
	var drivers []*models.Driver
	query := `
		SELECT * FROM drivers
		WHERE status = $1 AND current_lat IS NOT NULL AND current_lng IS NOT NULL
	`
	err := r.db.SelectContext(ctx, &drivers, query, models.DriverStatusOnline)
	return drivers, err
}

func (r *driverRepository) ListOnlineInBox(ctx context.Context, box BoundingBox) ([]*models.Driver, error) {
	var drivers []*models.Driver
	query := `
		SELECT * FROM drivers
		WHERE status = $1
		AND current_lat BETWEEN $2 AND $3
		AND current_lng BETWEEN $4 AND $5
	`
	err := r.db.SelectContext(ctx, &drivers, query,
		models.DriverStatusOnline, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	return drivers, err
}

func (r *driverRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Driver, error) {
	var driver models.Driver
	query := `SELECT * FROM drivers WHERE id = $1 FOR UPDATE`
	err := tx.GetContext(ctx, &driver, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *driverRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id, status string) error {
	query := `UPDATE drivers SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := tx.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

// ClaimTx flips an online driver to busy. It reports false when the driver was
// not online at the time of the update, which is how concurrent accepts for the
// same driver lose.
func (r *driverRepository) ClaimTx(ctx context.Context, tx *sqlx.Tx, id string) (bool, error) {
	query := `UPDATE drivers SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := tx.ExecContext(ctx, query, models.DriverStatusBusy, time.Now(), id, models.DriverStatusOnline)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

// ReleaseTx returns a busy driver to the available pool. The driver's last
// known position comes back with it, nil when none was ever reported.
func (r *driverRepository) ReleaseTx(ctx context.Context, tx *sqlx.Tx, id string, rideCompleted bool) (bool, *models.Location, error) {
	increment := 0
	if rideCompleted {
		increment = 1
	}
	query := `
		UPDATE drivers
		SET status = $1, total_rides = total_rides + $2, updated_at = $3
		WHERE id = $4 AND status = $5
		RETURNING current_lat, current_lng
	`
	var lat, lng sql.NullFloat64
	err := tx.QueryRowxContext(ctx, query,
		models.DriverStatusOnline, increment, time.Now(), id, models.DriverStatusBusy).Scan(&lat, &lng)
	if err == sql.ErrNoRows {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	if !lat.Valid || !lng.Valid {
		return true, nil, nil
	}
	return true, &models.Location{Lat: lat.Float64, Lng: lng.Float64}, nil
}

// UpdateLocationTx stores the denormalized last known position and returns the
// driver's current status, or "" when the driver does not exist.
func (r *driverRepository) UpdateLocationTx(ctx context.Context, tx *sqlx.Tx, id string, lat, lng float64, at time.Time) (string, error) {
	var status string
	query := `
		UPDATE drivers
		SET current_lat = $1, current_lng = $2, location_updated_at = $3, updated_at = $3
		WHERE id = $4
		RETURNING status
	`
	err := tx.QueryRowxContext(ctx, query, lat, lng, at, id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return status, err
}

func affectedOne(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// IsLockConflict reports whether Postgres aborted the transaction to break a
// deadlock or a serialization failure. The whole transaction can be retried.
func IsLockConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40P01" || pqErr.Code == "40001"
}
