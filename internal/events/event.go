package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is a notification emitted after a chat mutation has been committed.
type Event interface {
	EventType() EventType
	ChatID() uuid.UUID
	ActorID() uuid.UUID
	// Recipients lists the users that should be notified out of band.
	Recipients() []uuid.UUID
	Timestamp() time.Time
}

type BaseEvent struct {
	EventTypeVal  EventType   `json:"event_type"`
	TimestampVal  time.Time   `json:"timestamp"`
	ActorIDVal    uuid.UUID   `json:"actor_id"`
	ChatIDVal     uuid.UUID   `json:"chat_id"`
	RecipientsVal []uuid.UUID `json:"recipients,omitempty"`
}

func (e BaseEvent) EventType() EventType    { return e.EventTypeVal }
func (e BaseEvent) ChatID() uuid.UUID       { return e.ChatIDVal }
func (e BaseEvent) ActorID() uuid.UUID      { return e.ActorIDVal }
func (e BaseEvent) Recipients() []uuid.UUID { return e.RecipientsVal }
func (e BaseEvent) Timestamp() time.Time    { return e.TimestampVal }

type ChatCreatedEvent struct {
	BaseEvent
	Participants []uuid.UUID `json:"participants"`
}

type MessageAppendedEvent struct {
	BaseEvent
	MessageID  uuid.UUID `json:"message_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	Preview    string    `json:"preview"`
	MediaCount int       `json:"media_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type MessagesReadEvent struct {
	BaseEvent
	ReaderID   uuid.UUID   `json:"reader_id"`
	MessageIDs []uuid.UUID `json:"message_ids"`
	ReadAt     time.Time   `json:"read_at"`
}

type ParticipantEvent struct {
	BaseEvent
	UserID uuid.UUID `json:"user_id"`
}

type ChatDeletedEvent struct {
	BaseEvent
}

const previewLength = 120

// Preview shortens message content for notification payloads.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "…"
}
