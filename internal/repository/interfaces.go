package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"founders-chat/internal/domain/chat"
)

type ConversationRepository interface {
	// CreateChat inserts c and its two participant rows. It returns
	// ErrAlreadyExists when a chat for the same canonical pair exists.
	CreateChat(ctx context.Context, c *chat.Chat) error
	GetByID(ctx context.Context, id uuid.UUID) (chat.Chat, error)
	GetByPair(ctx context.Context, pair chat.Pair) (chat.Chat, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, skip int) ([]chat.Chat, error)

	// RestoreParticipants re-adds members of the canonical pair that have
	// left, with their unread counter recomputed from message state.
	RestoreParticipants(ctx context.Context, chatID uuid.UUID) (chat.Chat, error)
	// RemoveParticipant drops userID from the chat and deletes the chat with
	// all of its messages once nobody is left.
	RemoveParticipant(ctx context.Context, chatID, userID uuid.UUID) (deleted bool, err error)

	Ping(ctx context.Context) error
}

type MessageRepository interface {
	// Append inserts m, moves the chat's last message pointer and increments
	// every other participant's unread counter as one unit. m.CreatedAt is
	// assigned by the store and is strictly increasing within a chat.
	Append(ctx context.Context, m *chat.Message) (chat.Chat, error)
	// List returns up to limit messages older than before (or the newest
	// ones when before is nil) in ascending CreatedAt order.
	List(ctx context.Context, chatID uuid.UUID, limit int, before *time.Time) ([]chat.Message, error)
	// MarkRead marks messages addressed to readerID as read and recomputes
	// the reader's unread counter.
	MarkRead(ctx context.Context, chatID, readerID uuid.UUID, scope ReadScope) (ReadResult, error)
}

// ReadScope selects the messages a read receipt covers. MessageIDs takes
// precedence over Through. With ResetUnread only MessageIDs are marked
// (possibly none) and the reader's counter is set to 0 instead of being
// recomputed.
type ReadScope struct {
	MessageIDs  []uuid.UUID
	Through     time.Time
	ResetUnread bool
}

type ReadResult struct {
	Marked []uuid.UUID
	ReadAt time.Time
	Unread int
}
