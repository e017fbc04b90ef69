package repository

import (
	"context"
	"database/sql"

	"github.com/aditya/ridequote/internal/models"
	"github.com/jmoiron/sqlx"
)

type PartnerRepository interface {
	ListApproved(ctx context.Context) ([]*models.Partner, error)
	GetByID(ctx context.Context, id string) (*models.Partner, error)
}

type partnerRepository struct {
	db *sqlx.DB
}

func NewPartnerRepository(db *sqlx.DB) PartnerRepository {
	return &partnerRepository{db: db}
}

func (r *partnerRepository) ListApproved(ctx context.Context) ([]*models.Partner, error) {
	var partners []*models.Partner
	query := `
		SELECT * FROM partner_applications
		WHERE status = $1
		ORDER BY company_name ASC, id ASC
	`
	err := r.db.SelectContext(ctx, &partners, query, models.PartnerStatusApproved)
	return partners, err
}

func (r *partnerRepository) GetByID(ctx context.Context, id string) (*models.Partner, error) {
	var partner models.Partner
	query := `SELECT * FROM partner_applications WHERE id = $1`
	err := r.db.GetContext(ctx, &partner, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &partner, nil
}
