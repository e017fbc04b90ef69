package service

import (
	"context"

	apperrors "github.com/aditya/ridequote/internal/errors"
	"github.com/aditya/ridequote/internal/models"
	"github.com/aditya/ridequote/internal/repository"
)

// PartnerService is the read-only partner directory.
type PartnerService interface {
	ListApproved(ctx context.Context) ([]*models.PartnerResponse, error)
	GetPartner(ctx context.Context, id string) (*models.PartnerResponse, error)
}

type partnerService struct {
	partnerRepo repository.PartnerRepository
}

func NewPartnerService(partnerRepo repository.PartnerRepository) PartnerService {
	return &partnerService{partnerRepo: partnerRepo}
}

func (s *partnerService) ListApproved(ctx context.Context) ([]*models.PartnerResponse, error) {
	partners, err := s.partnerRepo.ListApproved(ctx)
	if err != nil {
		return nil, apperrors.Persistence("list partners", err)
	}
	resp := make([]*models.PartnerResponse, 0, len(partners))
	for _, p := range partners {
		resp = append(resp, p.ToResponse())
	}
	return resp, nil
}

// GetPartner hides partners that are not approved.
func (s *partnerService) GetPartner(ctx context.Context, id string) (*models.PartnerResponse, error) {
	partner, err := s.partnerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence("load partner", err)
	}
	if partner == nil || !partner.IsApproved() {
		return nil, apperrors.NotFound("partner")
	}
	return partner.ToResponse(), nil
}
