package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aditya/ridequote/internal/cache"
	"github.com/aditya/ridequote/internal/realtime"
	"github.com/aditya/ridequote/internal/service"
	"github.com/aditya/ridequote/pkg/utils"
	"github.com/go-chi/chi/v5"
)

const defaultSSEHeartbeat = 20 * time.Second

// SSEHandler streams one ride's events to a browser that cannot hold a
// WebSocket. It is a read-only listener on the same hub.
type SSEHandler struct {
	hub         *realtime.Hub
	dispatch    service.DispatchService
	driverCache cache.DriverLocationCache
	logger      *slog.Logger
	heartbeat   time.Duration
}

// NewSSEHandler accepts a nil driverCache; the stream then starts without a
// location snapshot.
func NewSSEHandler(hub *realtime.Hub, dispatch service.DispatchService, driverCache cache.DriverLocationCache, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{
		hub:         hub,
		dispatch:    dispatch,
		driverCache: driverCache,
		logger:      logger,
		heartbeat:   defaultSSEHeartbeat,
	}
}

func (h *SSEHandler) RegisterRoutes(r chi.Router) {
	r.Get("/rides/{id}/track", h.TrackRide)
}

// GET /rides/{id}/track
func (h *SSEHandler) TrackRide(w http.ResponseWriter, r *http.Request) {
	rideID, ok := utils.PathID(w, r, "id", "ride")
	if !ok {
		return
	}

	ride, err := h.dispatch.GetRide(r.Context(), rideID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.InternalError(w, "streaming not supported")
		return
	}
	// The server-wide write timeout would otherwise cut the stream.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Warn("cannot lift write deadline, stream ends at the server write timeout", "ride_id", rideID, "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	client := realtime.NewClient(realtime.RideTopic(rideID))
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	now := time.Now().UTC()
	var driverID, quoteID string
	if ride.DriverID != nil {
		driverID = *ride.DriverID
	}
	if ride.AcceptedQuoteID != nil {
		quoteID = *ride.AcceptedQuoteID
	}
	h.writeEvent(w, realtime.RideStatusEvent(ride.ID, driverID, quoteID, ride.Status, now))

	if driverID != "" && h.driverCache != nil {
		if loc, err := h.driverCache.GetDriverLocation(r.Context(), driverID); err == nil && loc != nil {
			heading, speed := loc.Heading, loc.Speed
			h.writeEvent(w, realtime.LocationEvent(driverID, ride.ID, loc.Lat, loc.Lng, &heading, &speed, time.Unix(loc.UpdatedAt, 0).UTC()))
		}
	}
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-client.Send:
			if !ok {
				// Dropped by the hub as a slow listener.
				return
			}
			writeFrame(w, eventType(msg), msg)
			flusher.Flush()
		case t := <-ticker.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: {\"time\":%q}\n\n", t.UTC().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

func (h *SSEHandler) writeEvent(w http.ResponseWriter, e realtime.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("failed to encode event", "type", e.Type, "error", err)
		return
	}
	writeFrame(w, e.Type, data)
}

func writeFrame(w http.ResponseWriter, typ string, data []byte) {
	if typ == "" {
		typ = "message"
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", typ, data)
}

func eventType(data []byte) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ""
	}
	return head.Type
}
