package events

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveChannels(t *testing.T) {
	chatID, sender, recipient := uuid.New(), uuid.New(), uuid.New()
	resolver := NewHybridChannelResolver()

	appended := &MessageAppendedEvent{BaseEvent: BaseEvent{
		EventTypeVal:  EventMessageAppended,
		ChatIDVal:     chatID,
		ActorIDVal:    sender,
		RecipientsVal: []uuid.UUID{recipient},
	}}
	assert.Equal(t, []string{
		ChannelPrefixChat + chatID.String(),
		ChannelPrefixUser + recipient.String(),
	}, resolver.ResolveChannels(appended))

	deleted := &ChatDeletedEvent{BaseEvent: BaseEvent{EventTypeVal: EventChatDeleted, ChatIDVal: chatID}}
	assert.Equal(t, []string{ChannelPrefixChat + chatID.String()}, resolver.ResolveChannels(deleted))
}

func TestNewEnvelope(t *testing.T) {
	chatID := uuid.New()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	env, err := NewEnvelope(&MessageAppendedEvent{
		BaseEvent: BaseEvent{EventTypeVal: EventMessageAppended, ChatIDVal: chatID, TimestampVal: at},
		Preview:   "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "message.appended", env.EventType)
	assert.Equal(t, AggregateTypeMessage, env.AggregateType)
	assert.Equal(t, chatID.String(), env.AggregateID)
	assert.True(t, at.Equal(env.OccurredAt))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "hello", payload["preview"])
	assert.Equal(t, chatID.String(), payload["chat_id"])

	env, err = NewEnvelope(&ChatCreatedEvent{BaseEvent: BaseEvent{EventTypeVal: EventChatCreated, ChatIDVal: chatID}})
	require.NoError(t, err)
	assert.Equal(t, AggregateTypeChat, env.AggregateType)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))

	long := strings.Repeat("ж", previewLength+5)
	got := Preview(long)
	assert.Equal(t, previewLength+1, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestNoopBus(t *testing.T) {
	bus := NewNoopBus()
	assert.NoError(t, bus.Publish(context.Background(), &ChatDeletedEvent{}))
	assert.NoError(t, bus.Close())
}

func TestNewAMQPEventBusRequiresURL(t *testing.T) {
	_, err := NewAMQPEventBus("", "chat.events")
	assert.Error(t, err)
}

func TestNATSSubject(t *testing.T) {
	bus := &NATSEventBus{prefix: "chat.events"}
	assert.Equal(t, "chat.events.message.appended", bus.Subject(EventMessageAppended))

	bare := &NATSEventBus{}
	assert.Equal(t, "chat.deleted", bare.Subject(EventChatDeleted))

	_, err := NewNATSEventBus("", "chat.events", "test")
	assert.Error(t, err)
}
