package events

import (
	"encoding/json"
	"time"
)

// Envelope is the wire shape of every published event.
type Envelope struct {
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps event in an Envelope.
func NewEnvelope(event Event) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, err
	}
	aggregateType := AggregateTypeChat
	if _, ok := event.(*MessageAppendedEvent); ok {
		aggregateType = AggregateTypeMessage
	}
	return Envelope{
		EventType:     string(event.EventType()),
		AggregateType: aggregateType,
		AggregateID:   event.ChatID().String(),
		OccurredAt:    event.Timestamp(),
		Payload:       payload,
	}, nil
}
