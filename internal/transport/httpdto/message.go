package httpdto

import (
	"time"

	"founders-chat/internal/domain/chat"
)

type AttachmentDTO struct {
	Key         string `json:"key"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

type SendMessageRequest struct {
	Content string          `json:"content"`
	Media   []AttachmentDTO `json:"media"`
}

type MarkReadRequest struct {
	Through *time.Time `json:"through"`
}

type MessageDTO struct {
	ID        string          `json:"id"`
	ChatID    string          `json:"chat_id"`
	SenderID  string          `json:"sender_id"`
	Content   string          `json:"content"`
	Media     []AttachmentDTO `json:"media"`
	IsRead    bool            `json:"is_read"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type SendMessageResponse struct {
	Message MessageDTO `json:"message"`
}

// ListMessagesResponse carries one page, oldest first. NextBefore is the
// cursor for the preceding page and is omitted once the page is short.
type ListMessagesResponse struct {
	Messages   []MessageDTO `json:"messages"`
	NextBefore *time.Time   `json:"next_before,omitempty"`
}

type MarkReadResponse struct {
	Marked int `json:"marked"`
}

type PresignRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"required"`
}

type PresignResponse struct {
	UploadURL string            `json:"upload_url"`
	Key       string            `json:"key"`
	URL       string            `json:"url,omitempty"`
	Headers   map[string]string `json:"headers"`
}

func FromMessage(m chat.Message) MessageDTO {
	return MessageDTO{
		ID:        m.ID.String(),
		ChatID:    m.ChatID.String(),
		SenderID:  m.SenderID.String(),
		Content:   m.Content,
		Media:     FromAttachments(m.Media),
		IsRead:    m.IsRead,
		ReadAt:    m.ReadAt,
		CreatedAt: m.CreatedAt,
	}
}

func FromMessageSlice(items []chat.Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(items))
	for _, item := range items {
		out = append(out, FromMessage(item))
	}
	return out
}

func FromAttachments(items []chat.Attachment) []AttachmentDTO {
	out := make([]AttachmentDTO, 0, len(items))
	for _, a := range items {
		out = append(out, AttachmentDTO(a))
	}
	return out
}

func (r SendMessageRequest) Attachments() []chat.Attachment {
	if len(r.Media) == 0 {
		return nil
	}
	out := make([]chat.Attachment, 0, len(r.Media))
	for _, a := range r.Media {
		out = append(out, chat.Attachment(a))
	}
	return out
}
