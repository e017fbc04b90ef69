package realtime

import (
	"sync"

	"github.com/google/uuid"
)

const clientSendBuffer = 64

// Client is one live listener. The hub writes encoded events to Send; the
// connection owner drains it.
type Client struct {
	ID   string
	Send chan []byte

	mu       sync.Mutex
	driverID string
	topics   map[string]struct{}
	closed   bool
}

func NewClient(topics ...string) *Client {
	c := &Client{
		ID:     uuid.New().String(),
		Send:   make(chan []byte, clientSendBuffer),
		topics: make(map[string]struct{}),
	}
	for _, t := range topics {
		c.topics[t] = struct{}{}
	}
	return c
}

func (c *Client) Subscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[topic] = struct{}{}
}

func (c *Client) Unsubscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.topics, topic)
}

func (c *Client) DriverID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.driverID
}

func (c *Client) setDriverID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.driverID = id
}

// Wants reports whether the client is subscribed to any of the topics.
func (c *Client) Wants(topics []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.topics[TopicAll]; ok {
		return true
	}
	for _, t := range topics {
		if _, ok := c.topics[t]; ok {
			return true
		}
	}
	return false
}

// close shuts Send exactly once. Callers hold the hub lock.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}
