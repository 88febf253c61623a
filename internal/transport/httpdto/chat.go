package httpdto

import (
	"time"

	"founders-chat/internal/domain/chat"
)

type CreateChatRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

type ChatDTO struct {
	ID           string         `json:"id"`
	Participants []string       `json:"participants"`
	LastMessage  *MessageDTO    `json:"last_message,omitempty"`
	UnreadCount  map[string]int `json:"unread_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type CreateChatResponse struct {
	Chat  ChatDTO `json:"chat"`
	IsNew bool    `json:"is_new"`
}

type ChatResponse struct {
	Chat ChatDTO `json:"chat"`
}

type ListChatsResponse struct {
	Chats []ChatDTO `json:"chats"`
	Limit int       `json:"limit"`
	Skip  int       `json:"skip"`
}

type LeaveChatResponse struct {
	Message     string `json:"message"`
	ChatDeleted bool   `json:"chat_deleted"`
}

func FromChat(c chat.Chat) ChatDTO {
	participants := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		participants = append(participants, p.String())
	}
	unread := make(map[string]int, len(c.UnreadCount))
	for userID, n := range c.UnreadCount {
		unread[userID.String()] = n
	}
	dto := ChatDTO{
		ID:           c.ID.String(),
		Participants: participants,
		UnreadCount:  unread,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if c.LastMessage != nil {
		last := FromMessage(*c.LastMessage)
		dto.LastMessage = &last
	}
	return dto
}

func FromChatSlice(items []chat.Chat) []ChatDTO {
	out := make([]ChatDTO, 0, len(items))
	for _, item := range items {
		out = append(out, FromChat(item))
	}
	return out
}
