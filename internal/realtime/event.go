package realtime

import (
	"context"
	"time"
)

// Event types
const (
	EventDriverConnect      = "driver_connect"
	EventLocationUpdate     = "location_update"
	EventRideStatusUpdate   = "ride_status_update"
	EventRideUpdate         = "ride_update"
	EventDriverStatusUpdate = "driver_status_update"
	EventSubscribe          = "subscribe"
	EventUnsubscribe        = "unsubscribe"
	EventSubscribed         = "subscribed"
	EventError              = "error"
)

// TopicAll receives every event.
const TopicAll = "*"

func RideTopic(rideID string) string {
	return "ride:" + rideID
}

func DriverTopic(driverID string) string {
	return "driver:" + driverID
}

// Event is both the inbound and outbound push channel message.
type Event struct {
	Type      string    `json:"type"`
	RideID    string    `json:"rideId,omitempty"`
	DriverID  string    `json:"driverId,omitempty"`
	QuoteID   string    `json:"quoteId,omitempty"`
	Status    string    `json:"status,omitempty"`
	Lat       *float64  `json:"lat,omitempty"`
	Lng       *float64  `json:"lng,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Topics lists the subscription topics an event is delivered to.
func (e *Event) Topics() []string {
	topics := make([]string, 0, 2)
	if e.RideID != "" {
		topics = append(topics, RideTopic(e.RideID))
	}
	if e.DriverID != "" {
		topics = append(topics, DriverTopic(e.DriverID))
	}
	return topics
}

// Publisher is how the dispatch core emits events. Implementations are best
// effort and never report delivery failures to the caller.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

func LocationEvent(driverID, rideID string, lat, lng float64, heading, speed *float64, at time.Time) Event {
	return Event{
		Type:      EventLocationUpdate,
		DriverID:  driverID,
		RideID:    rideID,
		Lat:       &lat,
		Lng:       &lng,
		Heading:   heading,
		Speed:     speed,
		Timestamp: at,
	}
}

func RideStatusEvent(rideID, driverID, quoteID, status string, at time.Time) Event {
	return Event{
		Type:      EventRideStatusUpdate,
		RideID:    rideID,
		DriverID:  driverID,
		QuoteID:   quoteID,
		Status:    status,
		Timestamp: at,
	}
}
