package events

import "context"

// EventBus delivers committed chat events to out-of-band consumers
// (push notifications, real-time gateways).
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopBus drops every event. Used when EVENTS_BACKEND=none.
type NoopBus struct{}

func NewNoopBus() *NoopBus {
	return &NoopBus{}
}

func (NoopBus) Publish(ctx context.Context, event Event) error { return nil }

func (NoopBus) Close() error { return nil }
