package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/parkit/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber on a shared NATS connection.
func NewSubscriber(conn *nats.Conn) (*Subscriber, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeAvailability delivers every availability change published from
// now on. Each process gets its own ephemeral consumer so all instances see
// all events.
func (s *Subscriber) SubscribeAvailability(ctx context.Context, handler func(ctx context.Context, ev domain.AvailabilityChanged) error) error {
	sub, err := s.js.Subscribe(availabilityPattern, func(msg *nats.Msg) {
		var ev domain.AvailabilityChanged
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			// poison message, never redeliver
			_ = msg.Term()
			return
		}
		if err := handler(ctx, ev); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	s.mu.Lock()
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
	s.mu.Unlock()
	_ = s.conn.Drain()
}
