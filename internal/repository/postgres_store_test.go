package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"founders-chat/internal/domain/chat"
	"founders-chat/internal/proxy"
	"founders-chat/internal/repository"
	"founders-chat/internal/services"
	"founders-chat/migrations"
	"founders-chat/pkg/database"
	founders_errors "founders-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestPool connects to TEST_DATABASE_URL and applies the schema. Tests
// using it are skipped when the variable is unset.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, database.MigrateUp(ctx, pool, migrations.FS))
	return pool
}

func newPostgresServices(pool *pgxpool.Pool, readOnFetch bool) (*services.ConversationService, *services.MessageService) {
	conversationRepo := repository.NewConversationRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	conversations := services.NewConversationService(conversationRepo, proxy.NewAccessControl(conversationRepo), nil)
	messages := services.NewMessageService(messageRepo, conversations, nil, nil, readOnFetch)
	return conversations, messages
}

func TestPostgresCreateChatConflict(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := repository.NewConversationRepository(pool)
	a, b := uuid.New(), uuid.New()

	now := founders_errors.Now()
	first := chat.Chat{ID: uuid.New(), Participants: []uuid.UUID{a, b}, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.CreateChat(ctx, &first))

	second := chat.Chat{ID: uuid.New(), Participants: []uuid.UUID{b, a}, CreatedAt: now, UpdatedAt: now}
	assert.ErrorIs(t, repo.CreateChat(ctx, &second), founders_errors.ErrAlreadyExists)

	got, err := repo.GetByPair(ctx, chat.CanonicalPair(a, b))
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Len(t, got.Participants, 2)
}

func TestPostgresConcurrentFindOrCreate(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	conversations, _ := newPostgresServices(pool, true)
	a, b := uuid.New(), uuid.New()

	const callers = 16
	ids := make([]uuid.UUID, callers)
	created := make([]bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller, other := a, b
			if i%2 == 1 {
				caller, other = b, a
			}
			c, isNew, err := conversations.FindOrCreate(ctx, caller, other)
			assert.NoError(t, err)
			ids[i] = c.ID
			created[i] = isNew
		}(i)
	}
	wg.Wait()

	newCount := 0
	for i := range ids {
		assert.Equal(t, ids[0], ids[i])
		if created[i] {
			newCount++
		}
	}
	assert.Equal(t, 1, newCount)
}

func TestPostgresConcurrentAppendAndRead(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	conversations, messages := newPostgresServices(pool, true)
	a, b := uuid.New(), uuid.New()

	c, _, err := conversations.FindOrCreate(ctx, a, b)
	require.NoError(t, err)

	const appends = 20
	var wg sync.WaitGroup
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := messages.Append(ctx, services.AppendInput{ChatID: c.ID, SenderID: a, Content: "hello"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := conversations.Get(ctx, c.ID, a)
	require.NoError(t, err)
	assert.Equal(t, appends, got.UnreadCount[b])
	assert.Equal(t, 0, got.UnreadCount[a])

	// Sender's view does not mark anything.
	all, err := messages.List(ctx, c.ID, a, 100, nil)
	require.NoError(t, err)
	require.Len(t, all, appends)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
	}
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, all[len(all)-1].ID, got.LastMessage.ID)

	page, err := messages.List(ctx, c.ID, b, 5, nil)
	require.NoError(t, err)
	require.Len(t, page, 5)
	got, err = conversations.Get(ctx, c.ID, b)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount[b])

	marked, err := messages.MarkRead(ctx, c.ID, b, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, appends-5, marked)

	deleted, err := conversations.RemoveParticipant(ctx, c.ID, a)
	require.NoError(t, err)
	assert.False(t, deleted)
	deleted, err = conversations.RemoveParticipant(ctx, c.ID, b)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = conversations.Get(ctx, c.ID, b)
	assert.ErrorIs(t, err, founders_errors.ErrNotFound)
}
