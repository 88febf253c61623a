package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"founders-chat/internal/domain/chat"
	"founders-chat/internal/observability"
	"founders-chat/internal/repository"
	founders_errors "founders-chat/pkg/errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const MaxContentLength = 4000

type MessageService struct {
	repo          repository.MessageRepository
	conversations *ConversationService
	media         *MediaService
	publisher     *EventPublisher
	readOnFetch   bool
}

func NewMessageService(repo repository.MessageRepository, conversations *ConversationService, media *MediaService, publisher *EventPublisher, readOnFetch bool) *MessageService {
	if media == nil {
		media = NewMediaService(nil, conversations)
	}
	if publisher == nil {
		publisher = NewEventPublisher(nil, nil)
	}
	return &MessageService{
		repo:          repo,
		conversations: conversations,
		media:         media,
		publisher:     publisher,
		readOnFetch:   readOnFetch,
	}
}

type AppendInput struct {
	ChatID   uuid.UUID
	SenderID uuid.UUID
	Content  string
	Media    []chat.Attachment
}

// Append stores a new message and bumps the unread counter of every other
// participant in the same store transaction.
func (s *MessageService) Append(ctx context.Context, in AppendInput) (msg chat.Message, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService.Append",
		attribute.String("chat.id", in.ChatID.String()))
	defer func() { observability.EndSpan(span, err) }()

	c, err := s.conversations.Get(ctx, in.ChatID, in.SenderID)
	if err != nil {
		return chat.Message{}, err
	}
	if err := validateContent(in.Content, in.Media); err != nil {
		return chat.Message{}, err
	}
	media, err := s.media.ResolveAttachments(c.ID, in.Media)
	if err != nil {
		return chat.Message{}, err
	}

	msg = chat.Message{
		ID:       uuid.New(),
		ChatID:   c.ID,
		SenderID: in.SenderID,
		Content:  in.Content,
		Media:    media,
	}
	updated, err := s.repo.Append(ctx, &msg)
	if err != nil {
		return chat.Message{}, err
	}

	observability.IncMessageAppended()
	s.publisher.PublishMessageAppended(ctx, updated, msg)
	return msg, nil
}

func validateContent(content string, media []chat.Attachment) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" && len(media) == 0 {
		return fmt.Errorf("%w: message has no content", founders_errors.ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return fmt.Errorf("%w: content exceeds %d characters", founders_errors.ErrInvalidInput, MaxContentLength)
	}
	return nil
}

// List returns a page of messages in ascending order. With before set only
// messages created strictly earlier are returned. When read-on-fetch is
// enabled the caller's unread messages in the page are marked read and
// their unread counter is reset to 0.
func (s *MessageService) List(ctx context.Context, chatID, callerID uuid.UUID, limit int, before *time.Time) (msgs []chat.Message, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService.List",
		attribute.String("chat.id", chatID.String()))
	defer func() { observability.EndSpan(span, err) }()

	c, err := s.conversations.Get(ctx, chatID, callerID)
	if err != nil {
		return nil, err
	}

	msgs, err = s.repo.List(ctx, chatID, normalizeLimit(limit, DefaultMessagePageSize), before)
	if err != nil {
		return nil, err
	}
	if !s.readOnFetch {
		return msgs, nil
	}

	var unread []uuid.UUID
	for _, m := range msgs {
		if m.SenderID != callerID && !m.IsRead {
			unread = append(unread, m.ID)
		}
	}

	// Fetching a page counts as reading the chat: the counter goes to 0
	// even when the page is shorter than the unread backlog.
	res, err := s.repo.MarkRead(ctx, chatID, callerID, repository.ReadScope{MessageIDs: unread, ResetUnread: true})
	if err != nil {
		return nil, err
	}
	applyRead(msgs, res)
	s.afterRead(ctx, c, callerID, res)
	return msgs, nil
}

// MarkRead acknowledges every message addressed to callerID created at or
// before through. A zero through means now. It returns how many messages
// changed state.
func (s *MessageService) MarkRead(ctx context.Context, chatID, callerID uuid.UUID, through time.Time) (marked int, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService.MarkRead",
		attribute.String("chat.id", chatID.String()))
	defer func() { observability.EndSpan(span, err) }()

	c, err := s.conversations.Get(ctx, chatID, callerID)
	if err != nil {
		return 0, err
	}
	res, err := s.repo.MarkRead(ctx, chatID, callerID, repository.ReadScope{Through: through.UTC()})
	if err != nil {
		return 0, err
	}
	s.afterRead(ctx, c, callerID, res)
	return len(res.Marked), nil
}

func (s *MessageService) afterRead(ctx context.Context, c chat.Chat, readerID uuid.UUID, res repository.ReadResult) {
	if len(res.Marked) == 0 {
		return
	}
	observability.AddMessagesRead(len(res.Marked))
	s.publisher.PublishMessagesRead(ctx, c, readerID, res.Marked, res.ReadAt)
}

func applyRead(msgs []chat.Message, res repository.ReadResult) {
	marked := make(map[uuid.UUID]struct{}, len(res.Marked))
	for _, id := range res.Marked {
		marked[id] = struct{}{}
	}
	for i := range msgs {
		if _, ok := marked[msgs[i].ID]; ok {
			readAt := res.ReadAt
			msgs[i].IsRead = true
			msgs[i].ReadAt = &readAt
		}
	}
}
