package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aditya/ridequote/internal/models"
	"github.com/segmentio/kafka-go"
)

// LocationPublisher streams driver location observations to downstream consumers.
type LocationPublisher interface {
	PublishLocation(ctx context.Context, loc *models.DriverLocation) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer  messageWriter
	timeout time.Duration
}

// NewKafkaProducer keys messages by driver id so a driver's pings stay ordered
// within one partition.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaProducer{writer: w, timeout: 2 * time.Second}
}

func (k *KafkaProducer) PublishLocation(ctx context.Context, loc *models.DriverLocation) error {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	b, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(loc.DriverID),
		Value: b,
		Time:  loc.RecordedAt,
	})
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
