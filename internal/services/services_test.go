package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"founders-chat/internal/events"
	"founders-chat/internal/proxy"
	"founders-chat/internal/repository"
	"founders-chat/pkg/logger"

	"github.com/google/uuid"
)

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) ofType(t events.EventType) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeMediaStore struct{}

func (fakeMediaStore) PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, map[string]string, error) {
	return "https://upload.example.com/" + key, map[string]string{"Content-Type": contentType}, nil
}

func (fakeMediaStore) FileURL(key string) string {
	return "https://cdn.example.com/" + key
}

type testEnv struct {
	store         *repository.MemoryStore
	bus           *recordingBus
	conversations *ConversationService
	messages      *MessageService
	media         *MediaService
}

func newTestEnv(t *testing.T, readOnFetch bool) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, repository.NewMemoryStore(), readOnFetch)
}

func newTestEnvWithStore(t *testing.T, store *repository.MemoryStore, readOnFetch bool) *testEnv {
	t.Helper()
	bus := &recordingBus{}
	publisher := NewEventPublisher(bus, logger.NewNop())
	conversations := NewConversationService(store, proxy.NewAccessControl(store), publisher)
	media := NewMediaService(fakeMediaStore{}, conversations)
	return &testEnv{
		store:         store,
		bus:           bus,
		conversations: conversations,
		messages:      NewMessageService(store, conversations, media, publisher, readOnFetch),
		media:         media,
	}
}

// fixedClock returns the same instant forever.
func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newUsers(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}
