package handler

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/aditya/ridequote/internal/errors"
	"github.com/aditya/ridequote/internal/models"
	"github.com/aditya/ridequote/internal/service"
	"github.com/aditya/ridequote/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type RideHandler struct {
	dispatch service.DispatchService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewRideHandler(dispatch service.DispatchService, logger *slog.Logger) *RideHandler {
	return &RideHandler{
		dispatch: dispatch,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *RideHandler) RegisterRoutes(r chi.Router) {
	r.Post("/rides/request", h.SubmitRide)
	r.Post("/rides/estimate", h.Estimate)
	r.Get("/rides/quotes/{rideId}", h.ListQuotes)
	r.Post("/rides/accept/{quoteId}", h.AcceptQuote)
	r.Get("/rides/{id}", h.GetRide)
	r.Put("/rides/{id}/status", h.UpdateStatus)
}

// POST /rides/request
func (h *RideHandler) SubmitRide(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRideRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	resp, err := h.dispatch.Submit(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Created(w, resp)
}

// POST /rides/estimate
func (h *RideHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req models.EstimateRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	estimate, err := h.dispatch.Estimate(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, estimate)
}

// GET /rides/quotes/{rideId}
func (h *RideHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	rideID, ok := utils.PathID(w, r, "rideId", "ride request")
	if !ok {
		return
	}

	quotes, err := h.dispatch.GetQuotes(r.Context(), rideID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, quotes)
}

// POST /rides/accept/{quoteId}
func (h *RideHandler) AcceptQuote(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := utils.PathID(w, r, "quoteId", "quote")
	if !ok {
		return
	}

	resp, err := h.dispatch.AcceptQuote(r.Context(), quoteID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, resp)
}

// GET /rides/{id}
func (h *RideHandler) GetRide(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathID(w, r, "id", "ride request")
	if !ok {
		return
	}

	ride, err := h.dispatch.GetRide(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, ride)
}

// PUT /rides/{id}/status
func (h *RideHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathID(w, r, "id", "ride request")
	if !ok {
		return
	}

	var req models.UpdateRideStatusRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	ride, err := h.dispatch.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, ride)
}

func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *apperrors.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= http.StatusInternalServerError {
			logger.Error("request failed", "code", apiErr.Code, "error", apperrors.Cause(err))
		}
		utils.Error(w, apiErr)
		return
	}

	logger.Error("unhandled error", "error", err)
	utils.InternalError(w, "internal server error")
}
