package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"founders-chat/internal/domain/chat"
	founders_errors "founders-chat/pkg/errors"
)

// MemoryStore keeps chats and messages in process. It implements both
// ConversationRepository and MessageRepository with the same atomicity as
// the Postgres store by holding a single lock per operation. Intended for
// local runs (STORE_DRIVER=memory) and tests.
type MemoryStore struct {
	mu       sync.Mutex
	chats    map[uuid.UUID]*memoryChat
	pairs    map[chat.Pair]uuid.UUID
	messages map[uuid.UUID][]chat.Message
	now      func() time.Time
}

type memoryChat struct {
	id          uuid.UUID
	pair        chat.Pair
	unread      map[uuid.UUID]int
	lastMessage *uuid.UUID
	lastAt      *time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:    make(map[uuid.UUID]*memoryChat),
		pairs:    make(map[chat.Pair]uuid.UUID),
		messages: make(map[uuid.UUID][]chat.Message),
		now:      time.Now,
	}
}

// WithClock replaces the time source. Tests use it to force timestamp
// collisions.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) CreateChat(ctx context.Context, c *chat.Chat) error {
	if len(c.Participants) != 2 || c.Participants[0] == c.Participants[1] {
		return founders_errors.ErrInvalidInput
	}
	pair := chat.CanonicalPair(c.Participants[0], c.Participants[1])

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pairs[pair]; ok {
		return founders_errors.ErrAlreadyExists
	}
	if _, ok := s.chats[c.ID]; ok {
		return founders_errors.ErrAlreadyExists
	}
	s.chats[c.ID] = &memoryChat{
		id:        c.ID,
		pair:      pair,
		unread:    map[uuid.UUID]int{pair.Low: 0, pair.High: 0},
		createdAt: c.CreatedAt,
		updatedAt: c.UpdatedAt,
	}
	s.pairs[pair] = c.ID
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mc, ok := s.chats[id]
	if !ok {
		return chat.Chat{}, founders_errors.ErrNotFound
	}
	return s.snapshot(mc), nil
}

func (s *MemoryStore) GetByPair(ctx context.Context, pair chat.Pair) (chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.pairs[pair]
	if !ok {
		return chat.Chat{}, founders_errors.ErrNotFound
	}
	return s.snapshot(s.chats[id]), nil
}

func (s *MemoryStore) ListForUser(ctx context.Context, userID uuid.UUID, limit, skip int) ([]chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*memoryChat
	for _, mc := range s.chats {
		if _, ok := mc.unread[userID]; ok {
			matched = append(matched, mc)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].updatedAt.Equal(matched[j].updatedAt) {
			return matched[i].updatedAt.After(matched[j].updatedAt)
		}
		return chat.Less(matched[j].id, matched[i].id)
	})

	if skip >= len(matched) {
		return []chat.Chat{}, nil
	}
	matched = matched[skip:]
	if limit < len(matched) {
		matched = matched[:limit]
	}

	out := make([]chat.Chat, 0, len(matched))
	for _, mc := range matched {
		out = append(out, s.snapshot(mc))
	}
	return out, nil
}

func (s *MemoryStore) RestoreParticipants(ctx context.Context, chatID uuid.UUID) (chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mc, ok := s.chats[chatID]
	if !ok {
		return chat.Chat{}, founders_errors.ErrNotFound
	}
	for _, userID := range []uuid.UUID{mc.pair.Low, mc.pair.High} {
		if _, ok := mc.unread[userID]; ok {
			continue
		}
		mc.unread[userID] = s.countUnread(chatID, userID)
	}
	return s.snapshot(mc), nil
}

func (s *MemoryStore) RemoveParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mc, ok := s.chats[chatID]
	if !ok {
		return false, founders_errors.ErrNotFound
	}
	if _, ok := mc.unread[userID]; !ok {
		return false, founders_errors.ErrForbidden
	}
	delete(mc.unread, userID)
	if len(mc.unread) > 0 {
		mc.updatedAt = s.now().UTC().Truncate(time.Microsecond)
		return false, nil
	}

	delete(s.chats, chatID)
	delete(s.pairs, mc.pair)
	delete(s.messages, chatID)
	return true, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Append(ctx context.Context, m *chat.Message) (chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mc, ok := s.chats[m.ChatID]
	if !ok {
		return chat.Chat{}, founders_errors.ErrNotFound
	}
	if _, ok := mc.unread[m.SenderID]; !ok {
		return chat.Chat{}, founders_errors.ErrForbidden
	}

	m.CreatedAt = NextTimestamp(s.now(), mc.lastAt)
	m.IsRead = false
	m.ReadAt = nil

	stored := *m
	stored.Media = append([]chat.Attachment(nil), m.Media...)
	s.messages[m.ChatID] = append(s.messages[m.ChatID], stored)

	if mc.lastAt == nil || mc.lastAt.Before(m.CreatedAt) {
		id, at := m.ID, m.CreatedAt
		mc.lastMessage = &id
		mc.lastAt = &at
		mc.updatedAt = at
	}
	for userID := range mc.unread {
		if userID != m.SenderID {
			mc.unread[userID]++
		}
	}
	return s.snapshot(mc), nil
}

func (s *MemoryStore) List(ctx context.Context, chatID uuid.UUID, limit int, before *time.Time) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.messages[chatID]
	end := len(all)
	if before != nil {
		end = sort.Search(len(all), func(i int) bool { return !all[i].CreatedAt.Before(*before) })
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	out := make([]chat.Message, 0, end-start)
	for _, msg := range all[start:end] {
		out = append(out, copyMessage(msg))
	}
	return out, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, chatID, readerID uuid.UUID, scope ReadScope) (ReadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mc, ok := s.chats[chatID]
	if !ok {
		return ReadResult{}, founders_errors.ErrNotFound
	}
	if _, ok := mc.unread[readerID]; !ok {
		return ReadResult{}, founders_errors.ErrForbidden
	}

	result := ReadResult{ReadAt: s.now().UTC().Truncate(time.Microsecond)}
	through := scope.Through
	if through.IsZero() {
		through = result.ReadAt
	}
	wanted := make(map[uuid.UUID]struct{}, len(scope.MessageIDs))
	for _, id := range scope.MessageIDs {
		wanted[id] = struct{}{}
	}

	msgs := s.messages[chatID]
	for i := range msgs {
		msg := &msgs[i]
		if msg.SenderID == readerID || msg.IsRead {
			continue
		}
		if len(wanted) > 0 || scope.ResetUnread {
			if _, ok := wanted[msg.ID]; !ok {
				continue
			}
		} else if msg.CreatedAt.After(through) {
			continue
		}
		readAt := result.ReadAt
		msg.IsRead = true
		msg.ReadAt = &readAt
		result.Marked = append(result.Marked, msg.ID)
	}

	if !scope.ResetUnread {
		result.Unread = s.countUnread(chatID, readerID)
	}
	mc.unread[readerID] = result.Unread
	return result, nil
}

// countUnread must be called with s.mu held.
func (s *MemoryStore) countUnread(chatID, userID uuid.UUID) int {
	n := 0
	for _, msg := range s.messages[chatID] {
		if msg.SenderID != userID && !msg.IsRead {
			n++
		}
	}
	return n
}

// snapshot must be called with s.mu held.
func (s *MemoryStore) snapshot(mc *memoryChat) chat.Chat {
	c := chat.Chat{
		ID:           mc.id,
		Participants: make([]uuid.UUID, 0, len(mc.unread)),
		UnreadCount:  make(map[uuid.UUID]int, len(mc.unread)),
		CreatedAt:    mc.createdAt,
		UpdatedAt:    mc.updatedAt,
	}
	for userID, n := range mc.unread {
		c.Participants = append(c.Participants, userID)
		c.UnreadCount[userID] = n
	}
	chat.SortIDs(c.Participants)

	if mc.lastMessage != nil {
		msgs := s.messages[mc.id]
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].ID == *mc.lastMessage {
				last := copyMessage(msgs[i])
				c.LastMessage = &last
				break
			}
		}
	}
	return c
}

func copyMessage(msg chat.Message) chat.Message {
	out := msg
	out.Media = append([]chat.Attachment(nil), msg.Media...)
	if msg.ReadAt != nil {
		readAt := *msg.ReadAt
		out.ReadAt = &readAt
	}
	return out
}
