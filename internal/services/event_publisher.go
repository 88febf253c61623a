package services

import (
	"context"
	"time"

	"founders-chat/internal/domain/chat"
	"founders-chat/internal/events"
	"founders-chat/internal/observability"
	"founders-chat/pkg/logger"
	founders_errors "founders-chat/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher hands committed changes to the event bus. Delivery is best
// effort: failures are logged and counted but never undo the change.
type EventPublisher struct {
	bus events.EventBus
	log *logger.Logger
}

func NewEventPublisher(bus events.EventBus, l *logger.Logger) *EventPublisher {
	if bus == nil {
		bus = events.NewNoopBus()
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &EventPublisher{bus: bus, log: l}
}

func (p *EventPublisher) PublishChatCreated(ctx context.Context, c chat.Chat, actorID uuid.UUID) {
	p.publish(ctx, &events.ChatCreatedEvent{
		BaseEvent:    p.base(events.EventChatCreated, c.ID, actorID, c.Others(actorID)),
		Participants: c.Participants,
	})
}

func (p *EventPublisher) PublishParticipantRejoined(ctx context.Context, c chat.Chat, actorID, userID uuid.UUID) {
	p.publish(ctx, &events.ParticipantEvent{
		BaseEvent: p.base(events.EventParticipantRejoined, c.ID, actorID, []uuid.UUID{userID}),
		UserID:    userID,
	})
}

func (p *EventPublisher) PublishParticipantLeft(ctx context.Context, c chat.Chat, userID uuid.UUID) {
	p.publish(ctx, &events.ParticipantEvent{
		BaseEvent: p.base(events.EventParticipantLeft, c.ID, userID, c.Others(userID)),
		UserID:    userID,
	})
}

func (p *EventPublisher) PublishChatDeleted(ctx context.Context, chatID, actorID uuid.UUID) {
	p.publish(ctx, &events.ChatDeletedEvent{
		BaseEvent: p.base(events.EventChatDeleted, chatID, actorID, nil),
	})
}

func (p *EventPublisher) PublishMessageAppended(ctx context.Context, c chat.Chat, msg chat.Message) {
	p.publish(ctx, &events.MessageAppendedEvent{
		BaseEvent:  p.base(events.EventMessageAppended, c.ID, msg.SenderID, c.Others(msg.SenderID)),
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		Preview:    events.Preview(msg.Content),
		MediaCount: len(msg.Media),
		CreatedAt:  msg.CreatedAt,
	})
}

func (p *EventPublisher) PublishMessagesRead(ctx context.Context, c chat.Chat, readerID uuid.UUID, ids []uuid.UUID, readAt time.Time) {
	p.publish(ctx, &events.MessagesReadEvent{
		BaseEvent:  p.base(events.EventMessagesRead, c.ID, readerID, c.Others(readerID)),
		ReaderID:   readerID,
		MessageIDs: ids,
		ReadAt:     readAt,
	})
}

func (p *EventPublisher) base(t events.EventType, chatID, actorID uuid.UUID, recipients []uuid.UUID) events.BaseEvent {
	return events.BaseEvent{
		EventTypeVal:  t,
		TimestampVal:  founders_errors.Now(),
		ActorIDVal:    actorID,
		ChatIDVal:     chatID,
		RecipientsVal: recipients,
	}
}

func (p *EventPublisher) publish(ctx context.Context, event events.Event) {
	// Events outlive the request that committed them.
	if err := p.bus.Publish(context.WithoutCancel(ctx), event); err != nil {
		observability.IncEventPublishError(string(event.EventType()))
		p.log.WarnCtx(ctx, "event publish failed",
			zap.String("event", string(event.EventType())),
			zap.String("chat_id", event.ChatID().String()),
			zap.Error(err),
		)
	}
}
