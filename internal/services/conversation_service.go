package services

import (
	"context"
	"errors"
	"fmt"

	"founders-chat/internal/domain/chat"
	"founders-chat/internal/observability"
	"founders-chat/internal/proxy"
	"founders-chat/internal/repository"
	founders_errors "founders-chat/pkg/errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// maxCreateAttempts bounds the lookup/insert loop in FindOrCreate. A second
// lookup after a lost insert race always finds the winner unless the chat
// was deleted in between.
const maxCreateAttempts = 3

type ConversationService struct {
	repo      repository.ConversationRepository
	access    *proxy.AccessControl
	publisher *EventPublisher
}

func NewConversationService(repo repository.ConversationRepository, access *proxy.AccessControl, publisher *EventPublisher) *ConversationService {
	if access == nil {
		access = proxy.NewAccessControl(repo)
	}
	if publisher == nil {
		publisher = NewEventPublisher(nil, nil)
	}
	return &ConversationService{repo: repo, access: access, publisher: publisher}
}

// FindOrCreate returns the chat between callerID and otherID, creating it
// when none exists. isNew reports whether this call created it.
func (s *ConversationService) FindOrCreate(ctx context.Context, callerID, otherID uuid.UUID) (c chat.Chat, isNew bool, err error) {
	ctx, span := observability.StartSpan(ctx, "ConversationService.FindOrCreate")
	defer func() { observability.EndSpan(span, err) }()

	if callerID == uuid.Nil || otherID == uuid.Nil {
		return chat.Chat{}, false, founders_errors.ErrInvalidInput
	}
	if callerID == otherID {
		return chat.Chat{}, false, fmt.Errorf("%w: cannot start a chat with yourself", founders_errors.ErrInvalidInput)
	}

	pair := chat.CanonicalPair(callerID, otherID)
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		existing, err := s.repo.GetByPair(ctx, pair)
		if err == nil {
			restored, err := s.restoreMembers(ctx, existing, callerID)
			return restored, false, err
		}
		if !errors.Is(err, founders_errors.ErrNotFound) {
			return chat.Chat{}, false, err
		}

		now := founders_errors.Now()
		created := chat.Chat{
			ID:           uuid.New(),
			Participants: []uuid.UUID{pair.Low, pair.High},
			UnreadCount:  map[uuid.UUID]int{pair.Low: 0, pair.High: 0},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err = s.repo.CreateChat(ctx, &created)
		if err == nil {
			span.SetAttributes(attribute.String("chat.id", created.ID.String()))
			observability.IncChatCreated()
			s.publisher.PublishChatCreated(ctx, created, callerID)
			return created, true, nil
		}
		if !errors.Is(err, founders_errors.ErrAlreadyExists) {
			return chat.Chat{}, false, err
		}
		observability.IncChatCreateRace()
	}
	return chat.Chat{}, false, fmt.Errorf("%w: chat creation did not settle", founders_errors.ErrServiceUnavailable)
}

// restoreMembers re-adds pair members that left the chat earlier.
func (s *ConversationService) restoreMembers(ctx context.Context, c chat.Chat, actorID uuid.UUID) (chat.Chat, error) {
	if len(c.Participants) == 2 {
		return c, nil
	}
	restored, err := s.repo.RestoreParticipants(ctx, c.ID)
	if err != nil {
		return chat.Chat{}, err
	}
	for _, userID := range restored.Participants {
		if !c.HasParticipant(userID) {
			s.publisher.PublishParticipantRejoined(ctx, restored, actorID, userID)
		}
	}
	return restored, nil
}

// List returns the caller's chats, most recently active first.
func (s *ConversationService) List(ctx context.Context, callerID uuid.UUID, limit, skip int) ([]chat.Chat, error) {
	if callerID == uuid.Nil {
		return nil, founders_errors.ErrInvalidInput
	}
	skip, err := normalizeSkip(skip)
	if err != nil {
		return nil, err
	}
	return s.repo.ListForUser(ctx, callerID, normalizeLimit(limit, DefaultChatPageSize), skip)
}

// Get returns the chat if callerID is one of its participants.
func (s *ConversationService) Get(ctx context.Context, chatID, callerID uuid.UUID) (chat.Chat, error) {
	return s.access.EnsureParticipant(ctx, chatID, callerID)
}

// RemoveParticipant takes callerID out of the chat. The chat and its
// messages are deleted once nobody is left; deleted reports that case.
func (s *ConversationService) RemoveParticipant(ctx context.Context, chatID, callerID uuid.UUID) (deleted bool, err error) {
	ctx, span := observability.StartSpan(ctx, "ConversationService.RemoveParticipant",
		attribute.String("chat.id", chatID.String()))
	defer func() { observability.EndSpan(span, err) }()

	c, err := s.Get(ctx, chatID, callerID)
	if err != nil {
		return false, err
	}
	deleted, err = s.repo.RemoveParticipant(ctx, chatID, callerID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.publisher.PublishChatDeleted(ctx, chatID, callerID)
	} else {
		s.publisher.PublishParticipantLeft(ctx, c, callerID)
	}
	return deleted, nil
}

// Ping reports whether the store is reachable.
func (s *ConversationService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
