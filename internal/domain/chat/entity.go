package chat

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Chat is a direct conversation between two users.
type Chat struct {
	ID uuid.UUID
	// Participants holds the current members in canonical (byte) order.
	Participants []uuid.UUID
	LastMessage  *Message
	UnreadCount  map[uuid.UUID]int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message is an append-only entry in a chat.
type Message struct {
	ID        uuid.UUID
	ChatID    uuid.UUID
	SenderID  uuid.UUID
	Content   string
	Media     []Attachment
	IsRead    bool
	ReadAt    *time.Time
	CreatedAt time.Time
}

// Attachment describes an object uploaded through the media presign flow.
type Attachment struct {
	Key         string `json:"key"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Pair is the canonical, order-insensitive identity of a chat.
type Pair struct {
	Low  uuid.UUID
	High uuid.UUID
}

// CanonicalPair orders two user ids so that {a,b} and {b,a} map to the same Pair.
func CanonicalPair(a, b uuid.UUID) Pair {
	if Less(b, a) {
		a, b = b, a
	}
	return Pair{Low: a, High: b}
}

// Less reports whether a sorts before b in the canonical order.
func Less(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// SortIDs sorts ids in place in canonical order.
func SortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return Less(ids[i], ids[j]) })
}

func (c Chat) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Others returns the participants other than userID.
func (c Chat) Others(userID uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != userID {
			out = append(out, p)
		}
	}
	return out
}
