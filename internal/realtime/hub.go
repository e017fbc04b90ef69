package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/aditya/ridequote/internal/observability"
)

// Hub fans events out to live clients by topic. It never blocks on a
// listener: a client whose buffer is full is dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	drivers map[string]*Client
	logger  *slog.Logger
	now     func() time.Time
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		drivers: make(map[string]*Client),
		logger:  logger,
		now:     time.Now,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	observability.WSConnections.Set(float64(len(h.clients)))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	if driverID := c.DriverID(); driverID != "" && h.drivers[driverID] == c {
		delete(h.drivers, driverID)
	}
	c.close()
	observability.WSConnections.Set(float64(len(h.clients)))
}

// IdentifyDriver binds a client to a driver identity and subscribes it to the
// driver's topic. A newer connection for the same driver takes over the identity.
func (h *Hub) IdentifyDriver(c *Client, driverID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev := c.DriverID(); prev != "" && prev != driverID && h.drivers[prev] == c {
		delete(h.drivers, prev)
		c.Unsubscribe(DriverTopic(prev))
	}
	c.setDriverID(driverID)
	c.Subscribe(DriverTopic(driverID))
	h.drivers[driverID] = c
}

func (h *Hub) Connected(driverID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.drivers[driverID]
	return ok
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish delivers on this instance only.
func (h *Hub) Publish(_ context.Context, e Event) {
	h.Deliver(e)
}

func (h *Hub) Deliver(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = h.now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("failed to encode event", "type", e.Type, "error", err)
		return
	}
	topics := e.Topics()

	var slow []*Client
	h.mu.RLock()
	for _, c := range h.clients {
		if !c.Wants(topics) {
			continue
		}
		select {
		case c.Send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	observability.EventsBroadcast.WithLabelValues(e.Type).Inc()
	for _, c := range slow {
		observability.EventsDropped.Inc()
		h.logger.Warn("dropping slow listener", "client_id", c.ID, "driver_id", c.DriverID())
		h.Unregister(c)
	}
}

// SendTo writes an event to a single client, used for direct replies.
func (h *Hub) SendTo(c *Client, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = h.now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}

	h.mu.RLock()
	_, live := h.clients[c.ID]
	if live {
		select {
		case c.Send <- data:
		default:
		}
	}
	h.mu.RUnlock()
}

// CloseAll disconnects every listener. Used on shutdown so long-lived
// streams end instead of holding the server open.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
	clear(h.drivers)
	observability.WSConnections.Set(0)
}
