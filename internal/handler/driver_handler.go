package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aditya/ridequote/internal/models"
	"github.com/aditya/ridequote/internal/service"
	"github.com/aditya/ridequote/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type DriverHandler struct {
	drivers       service.DriverService
	validate      *validator.Validate
	logger        *slog.Logger
	defaultRadius float64
}

func NewDriverHandler(drivers service.DriverService, defaultRadiusKm float64, logger *slog.Logger) *DriverHandler {
	return &DriverHandler{
		drivers:       drivers,
		validate:      validator.New(),
		logger:        logger,
		defaultRadius: defaultRadiusKm,
	}
}

func (h *DriverHandler) RegisterRoutes(r chi.Router) {
	r.Get("/drivers/nearby", h.Nearby)
	r.Get("/drivers/{id}", h.GetDriver)
	r.Put("/drivers/{id}/status", h.UpdateStatus)
	r.Post("/drivers/{id}/location", h.UpdateLocation)
	r.Get("/drivers/{id}/location", h.GetLocation)
}

// GET /drivers/nearby?lat=&lng=&radius=
func (h *DriverHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		utils.BadRequest(w, "lat is required")
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		utils.BadRequest(w, "lng is required")
		return
	}
	radius := h.defaultRadius
	if raw := q.Get("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			utils.BadRequest(w, "radius must be a number")
			return
		}
	}

	nearby, err := h.drivers.ListAvailable(r.Context(), lat, lng, radius)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	drivers := make([]*models.DriverResponse, 0, len(nearby))
	for _, d := range nearby {
		drivers = append(drivers, d.ToResponse())
	}
	utils.Success(w, http.StatusOK, map[string]interface{}{
		"drivers":   drivers,
		"radius_km": radius,
	})
}

// GET /drivers/{id}
func (h *DriverHandler) GetDriver(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathID(w, r, "id", "driver")
	if !ok {
		return
	}

	driver, err := h.drivers.GetDriver(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, driver)
}

// PUT /drivers/{id}/status
func (h *DriverHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathID(w, r, "id", "driver")
	if !ok {
		return
	}

	var req models.UpdateDriverStatusRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	driver, err := h.drivers.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, driver.ToResponse())
}

// POST /drivers/{id}/location
func (h *DriverHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathID(w, r, "id", "driver")
	if !ok {
		return
	}

	var req models.UpdateDriverLocationRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	loc, err := h.drivers.RecordLocation(r.Context(), id, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, loc)
}

// GET /drivers/{id}/location
func (h *DriverHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathID(w, r, "id", "driver")
	if !ok {
		return
	}

	loc, err := h.drivers.LatestLocation(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, loc)
}
