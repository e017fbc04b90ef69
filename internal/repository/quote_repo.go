package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aditya/ridequote/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type QuoteRepository interface {
	ListByRide(ctx context.Context, rideID string) ([]*models.QuoteWithDetails, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)

	CreateTx(ctx context.Context, tx *sqlx.Tx, quote *models.PriceQuote) (bool, error)
	GetByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.PriceQuote, error)
	GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.PriceQuote, error)
	MarkAcceptedTx(ctx context.Context, tx *sqlx.Tx, id string) (bool, error)
	WithdrawActiveForRideTx(ctx context.Context, tx *sqlx.Tx, rideID string) (int64, error)
	WithdrawCompetingTx(ctx context.Context, tx *sqlx.Tx, rideID, driverID string) (int64, error)
}

type quoteRepository struct {
	db *sqlx.DB
}

func NewQuoteRepository(db *sqlx.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

// CreateTx inserts an active quote only while its driver is online. The driver
// row is share-locked, so a concurrent claim either waits for this insert or
// turns it into a no-op. It reports false when nothing was inserted.
func (r *quoteRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, quote *models.PriceQuote) (bool, error) {
	if quote.ID == "" {
		quote.ID = uuid.New().String()
	}
	quote.CreatedAt = time.Now()
	quote.Status = models.QuoteStatusActive

	query := `
		INSERT INTO price_quotes (id, ride_request_id, partner_id, driver_id, price,
			estimated_arrival, estimated_duration, valid_until, status, created_at)
		SELECT $1::uuid, $2::uuid, $3::uuid, $4::uuid, $5::numeric, $6::int, $7::int,
			$8::timestamptz, $9::varchar, $10::timestamptz
		WHERE EXISTS (SELECT 1 FROM drivers WHERE id = $4::uuid AND status = $11 FOR SHARE)
	`
	result, err := tx.ExecContext(ctx, query,
		quote.ID, quote.RideRequestID, quote.PartnerID, quote.DriverID, quote.Price,
		quote.EstimatedArrival, quote.EstimatedDuration, quote.ValidUntil, quote.Status, quote.CreatedAt,
		models.DriverStatusOnline)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func (r *quoteRepository) ListByRide(ctx context.Context, rideID string) ([]*models.QuoteWithDetails, error) {
	var quotes []*models.QuoteWithDetails
	query := `
		SELECT q.*, rr.status AS ride_status, p.company_name,
			d.name AS driver_name, d.rating AS driver_rating, d.phone AS driver_phone,
			v.make AS vehicle_make, v.model AS vehicle_model, v.color AS vehicle_color,
			v.license_plate AS vehicle_plate, v.vehicle_type AS vehicle_type, v.seats AS vehicle_seats
		FROM price_quotes q
		JOIN ride_requests rr ON rr.id = q.ride_request_id
		JOIN partner_applications p ON p.id = q.partner_id
		LEFT JOIN drivers d ON d.id = q.driver_id
		LEFT JOIN vehicles v ON v.id = d.vehicle_id
		WHERE q.ride_request_id = $1
		ORDER BY q.price ASC, q.estimated_arrival ASC, q.id ASC
	`
	err := r.db.SelectContext(ctx, &quotes, query, rideID)
	return quotes, err
}

// ExpireStale flips active quotes past their validity window to expired.
// Rows locked by an in-flight accept are left for the next sweep.
func (r *quoteRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE price_quotes SET status = $1
		WHERE id IN (
			SELECT id FROM price_quotes
			WHERE status = $2 AND valid_until < $3
			ORDER BY id
			FOR UPDATE SKIP LOCKED
		)
	`
	result, err := r.db.ExecContext(ctx, query, models.QuoteStatusExpired, models.QuoteStatusActive, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetByIDTx reads without taking a row lock.
func (r *quoteRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.PriceQuote, error) {
	var quote models.PriceQuote
	query := `SELECT * FROM price_quotes WHERE id = $1`
	err := tx.GetContext(ctx, &quote, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *quoteRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.PriceQuote, error) {
	var quote models.PriceQuote
	query := `SELECT * FROM price_quotes WHERE id = $1 FOR UPDATE`
	err := tx.GetContext(ctx, &quote, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *quoteRepository) MarkAcceptedTx(ctx context.Context, tx *sqlx.Tx, id string) (bool, error) {
	query := `UPDATE price_quotes SET status = $1 WHERE id = $2 AND status = $3`
	result, err := tx.ExecContext(ctx, query, models.QuoteStatusAccepted, id, models.QuoteStatusActive)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func (r *quoteRepository) WithdrawActiveForRideTx(ctx context.Context, tx *sqlx.Tx, rideID string) (int64, error) {
	return r.withdrawLocked(ctx, tx, `ride_request_id = $1`, rideID)
}

// WithdrawCompetingTx voids every other active quote on the ride and every
// outstanding quote the driver holds on other requests, in one pass.
func (r *quoteRepository) WithdrawCompetingTx(ctx context.Context, tx *sqlx.Tx, rideID, driverID string) (int64, error) {
	return r.withdrawLocked(ctx, tx, `(ride_request_id = $1 OR driver_id = $2)`, rideID, driverID)
}

// withdrawLocked locks the matching active quotes in id order before updating
// them. Two transactions withdrawing overlapping sets then queue on the same
// first row instead of deadlocking.
func (r *quoteRepository) withdrawLocked(ctx context.Context, tx *sqlx.Tx, match string, args ...interface{}) (int64, error) {
	statusArg := fmt.Sprintf("$%d", len(args)+1)
	query := `SELECT id FROM price_quotes WHERE ` + match + ` AND status = ` + statusArg + ` ORDER BY id FOR UPDATE`

	var ids []string
	if err := tx.SelectContext(ctx, &ids, query, append(args, models.QuoteStatusActive)...); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := tx.ExecContext(ctx, `UPDATE price_quotes SET status = $1 WHERE id = ANY($2)`,
		models.QuoteStatusWithdrawn, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
