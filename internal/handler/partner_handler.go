package handler

import (
	"log/slog"
	"net/http"

	"github.com/aditya/ridequote/internal/service"
	"github.com/aditya/ridequote/pkg/utils"
	"github.com/go-chi/chi/v5"
)

type PartnerHandler struct {
	partners service.PartnerService
	logger   *slog.Logger
}

func NewPartnerHandler(partners service.PartnerService, logger *slog.Logger) *PartnerHandler {
	return &PartnerHandler{partners: partners, logger: logger}
}

func (h *PartnerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/partners", h.ListPartners)
	r.Get("/partners/{id}", h.GetPartner)
}

// GET /partners
func (h *PartnerHandler) ListPartners(w http.ResponseWriter, r *http.Request) {
	partners, err := h.partners.ListApproved(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	utils.Success(w, http.StatusOK, partners)
}

// GET /partners/{id}
func (h *PartnerHandler) GetPartner(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathID(w, r, "id", "partner")
	if !ok {
		return
	}

	partner, err := h.partners.GetPartner(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	utils.Success(w, http.StatusOK, partner)
}
