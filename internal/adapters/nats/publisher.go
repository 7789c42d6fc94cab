package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/parkit/internal/core/domain"
)

const (
	availabilityStream  = "PARKIT_AVAILABILITY"
	availabilityPrefix  = "parkit.availability."
	availabilityPattern = availabilityPrefix + ">"
)

// AvailabilitySubject is the subject availability changes of a location are
// published on.
func AvailabilitySubject(locationID string) string {
	return availabilityPrefix + locationID
}

// Connect dials NATS with reconnects enabled.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("parkit"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher enables JetStream on conn and ensures the availability stream.
func NewPublisher(conn *nats.Conn) (*Publisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      availabilityStream,
		Subjects:  []string{availabilityPattern},
		Retention: nats.InterestPolicy,
		MaxAge:    time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishAvailabilityChanged implements ports.EventPublisher.
func (p *Publisher) PublishAvailabilityChanged(ctx context.Context, ev domain.AvailabilityChanged) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(AvailabilitySubject(ev.LocationID), data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
