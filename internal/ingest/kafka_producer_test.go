package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aditya/ridequote/internal/models"
	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		panic("publish without deadline")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishLocationKeysByDriver(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaProducer{writer: w, timeout: time.Second}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	loc := &models.DriverLocation{DriverID: "d1", Lat: 51.5, Lng: -0.12, RecordedAt: at}
	if err := p.PublishLocation(context.Background(), loc); err != nil {
		t.Fatalf("PublishLocation() error = %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "d1" {
		t.Errorf("Key = %q, want d1", msg.Key)
	}
	if !msg.Time.Equal(at) {
		t.Errorf("Time = %v, want %v", msg.Time, at)
	}

	var decoded models.DriverLocation
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Lat != 51.5 || decoded.DriverID != "d1" {
		t.Errorf("decoded = %+v", decoded)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Close() = %v, closed = %v", err, w.closed)
	}
}
