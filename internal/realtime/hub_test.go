package realtime

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/aditya/ridequote/internal/logging"
	"github.com/redis/go-redis/v9"
)

func receive(t *testing.T, c *Client) (Event, bool) {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		if !ok {
			return Event{}, false
		}
		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		return e, true
	default:
		return Event{}, false
	}
}

func TestHubDeliversByTopic(t *testing.T) {
	hub := NewHub(logging.Discard())

	rideWatcher := NewClient(RideTopic("r1"))
	otherRide := NewClient(RideTopic("r2"))
	dashboard := NewClient(TopicAll)
	driver := NewClient()
	for _, c := range []*Client{rideWatcher, otherRide, dashboard, driver} {
		hub.Register(c)
	}
	hub.IdentifyDriver(driver, "d1")

	hub.Deliver(RideStatusEvent("r1", "d1", "q1", "accepted", time.Time{}))

	tests := []struct {
		name   string
		client *Client
		want   bool
	}{
		{"ride subscriber", rideWatcher, true},
		{"other ride subscriber", otherRide, false},
		{"wildcard subscriber", dashboard, true},
		{"bound driver", driver, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, got := receive(t, tt.client)
			if got != tt.want {
				t.Fatalf("received = %v, want %v", got, tt.want)
			}
			if got && (e.Type != EventRideStatusUpdate || e.Timestamp.IsZero()) {
				t.Errorf("event = %+v", e)
			}
		})
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(logging.Discard())
	slow := NewClient(TopicAll)
	hub.Register(slow)

	for i := 0; i < clientSendBuffer+1; i++ {
		hub.Deliver(Event{Type: EventLocationUpdate, DriverID: "d1"})
	}

	if hub.Len() != 0 {
		t.Fatalf("slow client still registered, Len() = %d", hub.Len())
	}

	drained := 0
	for range slow.Send {
		drained++
	}
	if drained != clientSendBuffer {
		t.Errorf("drained %d events, want %d", drained, clientSendBuffer)
	}
}

func TestHubDriverIdentity(t *testing.T) {
	hub := NewHub(logging.Discard())

	first := NewClient()
	hub.Register(first)
	hub.IdentifyDriver(first, "d1")
	if !hub.Connected("d1") {
		t.Fatal("driver should be connected")
	}

	second := NewClient()
	hub.Register(second)
	hub.IdentifyDriver(second, "d1")

	// the stale connection closing must not drop the newer registration
	hub.Unregister(first)
	if !hub.Connected("d1") {
		t.Fatal("newer connection lost the driver identity")
	}

	hub.Unregister(second)
	if hub.Connected("d1") {
		t.Fatal("driver still connected after disconnect")
	}

	// double unregister is a no-op
	hub.Unregister(second)
}

func TestClientUnsubscribe(t *testing.T) {
	c := NewClient(RideTopic("r1"))
	if !c.Wants([]string{RideTopic("r1")}) {
		t.Fatal("expected subscription")
	}
	c.Unsubscribe(RideTopic("r1"))
	if c.Wants([]string{RideTopic("r1")}) {
		t.Fatal("still subscribed after Unsubscribe")
	}
}

func TestEventTopics(t *testing.T) {
	e := LocationEvent("d1", "", 51.5, -0.12, nil, nil, time.Now())
	topics := e.Topics()
	if len(topics) != 1 || topics[0] != DriverTopic("d1") {
		t.Errorf("Topics() = %v", topics)
	}
}

func TestRedisBrokerFansOut(t *testing.T) {
	addr := os.Getenv("RIDEQUOTE_TEST_REDIS")
	if addr == "" {
		t.Skip("RIDEQUOTE_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	hub := NewHub(logging.Discard())
	broker := NewRedisBroker(client, hub, logging.Discard())
	broker.channel = "dispatch:events:test"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go broker.Run(ctx)

	listener := NewClient(RideTopic("r9"))
	hub.Register(listener)

	// give the subscription time to become active
	time.Sleep(200 * time.Millisecond)
	broker.Publish(ctx, RideStatusEvent("r9", "", "", "completed", time.Time{}))

	select {
	case data := <-listener.Send:
		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			t.Fatal(err)
		}
		if e.Status != "completed" {
			t.Errorf("Status = %q", e.Status)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("event not relayed through redis")
	}
}

func TestHubCloseAll(t *testing.T) {
	hub := NewHub(logging.Discard())
	a, b := NewClient(TopicAll), NewClient()
	hub.Register(a)
	hub.Register(b)
	hub.IdentifyDriver(b, "d1")

	hub.CloseAll()

	if hub.Len() != 0 || hub.Connected("d1") {
		t.Fatalf("len = %d, d1 connected = %v", hub.Len(), hub.Connected("d1"))
	}
	for _, c := range []*Client{a, b} {
		if _, ok := <-c.Send; ok {
			t.Error("send channel should be closed")
		}
	}
	// Unregister after CloseAll must not double close.
	hub.Unregister(a)
}
