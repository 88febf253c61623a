package proxy

import (
	"context"

	"founders-chat/internal/domain/chat"
	"founders-chat/internal/repository"
	founders_errors "founders-chat/pkg/errors"

	"github.com/google/uuid"
)

// AccessControl gates every chat and message operation on membership.
type AccessControl struct {
	conversationRepo repository.ConversationRepository
}

func NewAccessControl(conversationRepo repository.ConversationRepository) *AccessControl {
	return &AccessControl{conversationRepo: conversationRepo}
}

// EnsureParticipant resolves the chat and checks that userID is a current
// member. Unknown chats yield ErrNotFound, non-members ErrForbidden.
func (a *AccessControl) EnsureParticipant(ctx context.Context, chatID, userID uuid.UUID) (chat.Chat, error) {
	if chatID == uuid.Nil || userID == uuid.Nil {
		return chat.Chat{}, founders_errors.ErrInvalidInput
	}
	if a.conversationRepo == nil {
		return chat.Chat{}, founders_errors.ErrForbidden
	}
	c, err := a.conversationRepo.GetByID(ctx, chatID)
	if err != nil {
		return chat.Chat{}, err
	}
	if !c.HasParticipant(userID) {
		return chat.Chat{}, founders_errors.ErrForbidden
	}
	return c, nil
}
