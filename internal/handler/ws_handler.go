package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/aditya/ridequote/internal/errors"
	"github.com/aditya/ridequote/internal/models"
	"github.com/aditya/ridequote/internal/realtime"
	"github.com/aditya/ridequote/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
	wsCommandTimeout = 10 * time.Second
)

type WSHandler struct {
	hub      *realtime.Hub
	drivers  service.DriverService
	dispatch service.DispatchService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *realtime.Hub, drivers service.DriverService, dispatch service.DispatchService, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:      hub,
		drivers:  drivers,
		dispatch: dispatch,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.Serve)
}

// GET /ws
// Optional query parameters rideId, driverId and topic pre-subscribe the
// connection.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := realtime.NewClient()
	q := r.URL.Query()
	if id := q.Get("rideId"); id != "" {
		client.Subscribe(realtime.RideTopic(id))
	}
	if id := q.Get("driverId"); id != "" {
		client.Subscribe(realtime.DriverTopic(id))
	}
	if topic := q.Get("topic"); topic != "" {
		client.Subscribe(topic)
	}

	h.hub.Register(client)
	h.logger.Debug("websocket connected", "client_id", client.ID)

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

func (h *WSHandler) readPump(conn *websocket.Conn, client *realtime.Client) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
		h.logger.Debug("websocket disconnected", "client_id", client.ID, "driver_id", client.DriverID())
	}()

	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", "client_id", client.ID, "error", err)
			}
			return
		}

		var msg realtime.Event
		if err := json.Unmarshal(data, &msg); err != nil {
			h.replyError(client, "malformed message")
			continue
		}
		h.handleMessage(client, msg)
	}
}

// writePump is the only writer on conn.
func (h *WSHandler) writePump(conn *websocket.Conn, client *realtime.Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) handleMessage(client *realtime.Client, msg realtime.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), wsCommandTimeout)
	defer cancel()

	switch msg.Type {
	case realtime.EventDriverConnect:
		if msg.DriverID == "" {
			h.replyError(client, "driverId is required")
			return
		}
		h.hub.IdentifyDriver(client, msg.DriverID)
		h.hub.SendTo(client, realtime.Event{
			Type:     realtime.EventSubscribed,
			DriverID: msg.DriverID,
			Topic:    realtime.DriverTopic(msg.DriverID),
		})

	case realtime.EventSubscribe, realtime.EventUnsubscribe:
		topic := subscriptionTopic(msg)
		if topic == "" {
			h.replyError(client, "rideId, driverId or topic is required")
			return
		}
		reply := realtime.EventSubscribed
		if msg.Type == realtime.EventSubscribe {
			client.Subscribe(topic)
		} else {
			client.Unsubscribe(topic)
			reply = realtime.EventUnsubscribe
		}
		h.hub.SendTo(client, realtime.Event{Type: reply, Topic: topic})

	case realtime.EventLocationUpdate:
		driverID, ok := h.actingDriver(client, msg.DriverID)
		if !ok {
			return
		}
		if msg.Lat == nil || msg.Lng == nil {
			h.replyError(client, "lat and lng are required")
			return
		}
		_, err := h.drivers.RecordLocation(ctx, driverID, &models.UpdateDriverLocationRequest{
			Lat:     *msg.Lat,
			Lng:     *msg.Lng,
			Heading: msg.Heading,
			Speed:   msg.Speed,
		})
		if err != nil {
			h.replyServiceError(client, err)
		}

	case realtime.EventRideUpdate:
		if msg.RideID == "" || msg.Status == "" {
			h.replyError(client, "rideId and status are required")
			return
		}
		// Updates that name no driver at all, such as a rider cancelling,
		// skip the identity check.
		var driverID string
		if msg.DriverID != "" || client.DriverID() != "" {
			var ok bool
			if driverID, ok = h.actingDriver(client, msg.DriverID); !ok {
				return
			}
		}
		_, err := h.dispatch.UpdateStatus(ctx, msg.RideID, &models.UpdateRideStatusRequest{
			Status:   msg.Status,
			DriverID: driverID,
		})
		if err != nil {
			h.replyServiceError(client, err)
		}

	default:
		h.replyError(client, "unknown message type")
	}
}

// actingDriver resolves which driver a message speaks for. A connection
// identified as one driver cannot act for another.
func (h *WSHandler) actingDriver(client *realtime.Client, claimed string) (string, bool) {
	bound := client.DriverID()
	switch {
	case claimed == "" && bound == "":
		h.replyError(client, "driverId is required")
		return "", false
	case claimed == "":
		return bound, true
	case bound != "" && bound != claimed:
		h.replyError(client, "connection is identified as a different driver")
		return "", false
	}
	return claimed, true
}

func (h *WSHandler) replyError(client *realtime.Client, message string) {
	h.hub.SendTo(client, realtime.Event{Type: realtime.EventError, Message: message})
}

func (h *WSHandler) replyServiceError(client *realtime.Client, err error) {
	var apiErr *apperrors.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= http.StatusInternalServerError {
			h.logger.Error("websocket command failed", "code", apiErr.Code, "error", apperrors.Cause(err))
		}
		h.replyError(client, apiErr.Message)
		return
	}
	h.logger.Error("websocket command failed", "error", err)
	h.replyError(client, "internal server error")
}

func subscriptionTopic(msg realtime.Event) string {
	switch {
	case msg.Topic != "":
		return msg.Topic
	case msg.RideID != "":
		return realtime.RideTopic(msg.RideID)
	case msg.DriverID != "":
		return realtime.DriverTopic(msg.DriverID)
	}
	return ""
}
