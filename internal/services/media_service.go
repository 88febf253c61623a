package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	"founders-chat/internal/domain/chat"
	founders_errors "founders-chat/pkg/errors"

	"github.com/google/uuid"
)

const (
	MaxAttachments = 10
	MaxMediaSize   = 25 << 20
	maxFileNameLen = 100
)

// MediaStore is the object storage used for attachments.
type MediaStore interface {
	PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, map[string]string, error)
	FileURL(key string) string
}

type MediaService struct {
	storage       MediaStore
	conversations *ConversationService
}

func NewMediaService(storage MediaStore, conversations *ConversationService) *MediaService {
	return &MediaService{storage: storage, conversations: conversations}
}

type PresignInput struct {
	ChatID      uuid.UUID
	CallerID    uuid.UUID
	FileName    string
	ContentType string
	Size        int64
}

type PresignResult struct {
	UploadURL string
	Key       string
	URL       string
	Headers   map[string]string
}

// Presign issues an upload URL for an attachment of chatID. The returned key
// is what the client later sends in a message's media list.
func (s *MediaService) Presign(ctx context.Context, in PresignInput) (PresignResult, error) {
	if s.storage == nil {
		return PresignResult{}, fmt.Errorf("%w: media storage is not configured", founders_errors.ErrServiceUnavailable)
	}
	if _, err := s.conversations.Get(ctx, in.ChatID, in.CallerID); err != nil {
		return PresignResult{}, err
	}
	if strings.TrimSpace(in.FileName) == "" || !strings.Contains(in.ContentType, "/") {
		return PresignResult{}, founders_errors.ErrInvalidInput
	}
	if in.Size <= 0 || in.Size > MaxMediaSize {
		return PresignResult{}, fmt.Errorf("%w: size must be between 1 and %d bytes", founders_errors.ErrInvalidInput, MaxMediaSize)
	}

	key := ObjectKey(in.ChatID, uuid.New(), in.FileName)
	uploadURL, headers, err := s.storage.PresignPut(ctx, key, in.ContentType, in.Size)
	if err != nil {
		return PresignResult{}, fmt.Errorf("%w: %v", founders_errors.ErrServiceUnavailable, err)
	}
	return PresignResult{
		UploadURL: uploadURL,
		Key:       key,
		URL:       s.storage.FileURL(key),
		Headers:   headers,
	}, nil
}

// ResolveAttachments checks that every key belongs to chatID and fills in
// the public URL.
func (s *MediaService) ResolveAttachments(chatID uuid.UUID, media []chat.Attachment) ([]chat.Attachment, error) {
	if len(media) == 0 {
		return nil, nil
	}
	if len(media) > MaxAttachments {
		return nil, fmt.Errorf("%w: at most %d attachments", founders_errors.ErrInvalidInput, MaxAttachments)
	}

	prefix := chatPrefix(chatID)
	out := make([]chat.Attachment, 0, len(media))
	for _, a := range media {
		if !strings.HasPrefix(a.Key, prefix) || len(a.Key) == len(prefix) || strings.Contains(a.Key, "..") {
			return nil, fmt.Errorf("%w: attachment key %q", founders_errors.ErrInvalidInput, a.Key)
		}
		if a.Size < 0 || a.Size > MaxMediaSize {
			return nil, fmt.Errorf("%w: attachment size", founders_errors.ErrInvalidInput)
		}
		a.URL = ""
		if s.storage != nil {
			a.URL = s.storage.FileURL(a.Key)
		}
		out = append(out, a)
	}
	return out, nil
}

func chatPrefix(chatID uuid.UUID) string {
	return "chats/" + chatID.String() + "/"
}

// ObjectKey builds chats/<chat>/<object>/<name>.
func ObjectKey(chatID, objectID uuid.UUID, fileName string) string {
	return chatPrefix(chatID) + objectID.String() + "/" + sanitizeFileName(fileName)
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	out = strings.Trim(out, ".")
	if len(out) > maxFileNameLen {
		out = out[len(out)-maxFileNameLen:]
	}
	if out == "" {
		return "file"
	}
	return out
}
