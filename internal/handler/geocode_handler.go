package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/aditya/ridequote/internal/errors"
	"github.com/aditya/ridequote/internal/geocode"
	"github.com/aditya/ridequote/pkg/utils"
	"github.com/go-chi/chi/v5"
)

type GeocodeHandler struct {
	geocoder geocode.Geocoder
	logger   *slog.Logger
}

func NewGeocodeHandler(geocoder geocode.Geocoder, logger *slog.Logger) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder, logger: logger}
}

func (h *GeocodeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/geocode", h.Geocode)
	r.Get("/geocode/reverse", h.Reverse)
}

// GET /geocode?address=
func (h *GeocodeHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		utils.BadRequest(w, "address is required")
		return
	}

	loc, err := h.geocoder.Geocode(r.Context(), address)
	if err != nil {
		h.geocodeError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, loc)
}

// GET /geocode/reverse?lat=&lng=
func (h *GeocodeHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		utils.BadRequest(w, "lat and lng are required")
		return
	}

	loc, err := h.geocoder.Reverse(r.Context(), lat, lng)
	if err != nil {
		h.geocodeError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, loc)
}

func (h *GeocodeHandler) geocodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, geocode.ErrNoResults) {
		utils.NotFound(w, "address")
		return
	}
	h.logger.Warn("geocoding failed", "error", err)
	utils.Error(w, apperrors.NewAPIError("geocoder_unavailable", "geocoding service unavailable", http.StatusBadGateway))
}
