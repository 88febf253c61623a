package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSEventBus publishes events on core NATS subjects of the form
// <prefix>.<event type>, e.g. chat.events.message.appended.
type NATSEventBus struct {
	nc     *nats.Conn
	prefix string
}

func NewNATSEventBus(url, prefix, name string) (*NATSEventBus, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSEventBus{nc: nc, prefix: prefix}, nil
}

// Subject returns the subject an event of type t is published on.
func (b *NATSEventBus) Subject(t EventType) string {
	if b.prefix == "" {
		return string(t)
	}
	return b.prefix + "." + string(t)
}

func (b *NATSEventBus) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	envelope, err := NewEnvelope(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return b.nc.Publish(b.Subject(event.EventType()), data)
}

// Close flushes pending messages and closes the connection.
func (b *NATSEventBus) Close() error {
	if b.nc == nil {
		return nil
	}
	return b.nc.Drain()
}
