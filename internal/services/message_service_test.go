package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"founders-chat/internal/domain/chat"
	"founders-chat/internal/events"
	"founders-chat/internal/repository"
	founders_errors "founders-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupChat(t *testing.T, env *testEnv) (chat.Chat, uuid.UUID, uuid.UUID) {
	t.Helper()
	users := newUsers(2)
	c, _, err := env.conversations.FindOrCreate(context.Background(), users[0], users[1])
	require.NoError(t, err)
	return c, users[0], users[1]
}

func TestScenarioAppendReadConcurrentAppend(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	users := newUsers(2)
	a, b := users[0], users[1]

	c, isNew, err := env.conversations.FindOrCreate(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, isNew)

	again, isNew, err := env.conversations.FindOrCreate(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, c.ID, again.ID)

	_, err = env.messages.Append(ctx, AppendInput{ChatID: c.ID, SenderID: a, Content: "hi"})
	require.NoError(t, err)
	c, err = env.conversations.Get(ctx, c.ID, a)
	require.NoError(t, err)
	assert.Equal(t, 1, c.UnreadCount[b])

	msgs, err := env.messages.List(ctx, c.ID, b, 0, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsRead)
	require.NotNil(t, msgs[0].ReadAt)
	c, err = env.conversations.Get(ctx, c.ID, b)
	require.NoError(t, err)
	assert.Equal(t, 0, c.UnreadCount[b])

	var wg sync.WaitGroup
	sent := make([]chat.Message, 2)
	for i, content := range []string{"there", "you"} {
		wg.Add(1)
		go func(i int, content string) {
			defer wg.Done()
			msg, err := env.messages.Append(ctx, AppendInput{ChatID: c.ID, SenderID: a, Content: content})
			assert.NoError(t, err)
			sent[i] = msg
		}(i, content)
	}
	wg.Wait()

	c, err = env.conversations.Get(ctx, c.ID, a)
	require.NoError(t, err)
	assert.Equal(t, 2, c.UnreadCount[b])
	assert.Equal(t, 0, c.UnreadCount[a])

	latest := sent[0]
	if sent[1].CreatedAt.After(latest.CreatedAt) {
		latest = sent[1]
	}
	require.NotNil(t, c.LastMessage)
	assert.Equal(t, latest.ID, c.LastMessage.ID)

	all, err := env.store.List(ctx, c.ID, 100, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.NotEqual(t, all[1].CreatedAt, all[2].CreatedAt)
}

func TestAppendValidation(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	c, a, _ := setupChat(t, env)
	prefix := "chats/" + c.ID.String() + "/"

	tests := []struct {
		name  string
		input AppendInput
		err   error
	}{
		{name: "empty", input: AppendInput{Content: ""}, err: founders_errors.ErrInvalidInput},
		{name: "whitespace only", input: AppendInput{Content: " \n\t "}, err: founders_errors.ErrInvalidInput},
		{name: "too long", input: AppendInput{Content: strings.Repeat("é", MaxContentLength+1)}, err: founders_errors.ErrInvalidInput},
		{name: "max length", input: AppendInput{Content: strings.Repeat("é", MaxContentLength)}},
		{name: "media only", input: AppendInput{Media: []chat.Attachment{{Key: prefix + "obj/photo.png"}}}},
		{name: "foreign key", input: AppendInput{Media: []chat.Attachment{{Key: "chats/" + uuid.NewString() + "/obj/photo.png"}}}, err: founders_errors.ErrInvalidInput},
		{name: "traversal key", input: AppendInput{Media: []chat.Attachment{{Key: prefix + "../other/x.png"}}}, err: founders_errors.ErrInvalidInput},
		{name: "bare prefix", input: AppendInput{Media: []chat.Attachment{{Key: prefix}}}, err: founders_errors.ErrInvalidInput},
		{name: "too many attachments", input: AppendInput{Content: "x", Media: make([]chat.Attachment, MaxAttachments+1)}, err: founders_errors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input
			in.ChatID = c.ID
			in.SenderID = a
			msg, err := env.messages.Append(ctx, in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, msg.ID)
		})
	}
}

func TestAppendFillsAttachmentURL(t *testing.T) {
	env := newTestEnv(t, true)
	c, a, _ := setupChat(t, env)
	key := "chats/" + c.ID.String() + "/obj/photo.png"

	msg, err := env.messages.Append(context.Background(), AppendInput{
		ChatID:   c.ID,
		SenderID: a,
		Media:    []chat.Attachment{{Key: key, URL: "https://evil.example.com/x", ContentType: "image/png"}},
	})
	require.NoError(t, err)
	require.Len(t, msg.Media, 1)
	assert.Equal(t, "https://cdn.example.com/"+key, msg.Media[0].URL)
}

func TestAppendAccessControl(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	c, _, _ := setupChat(t, env)

	_, err := env.messages.Append(ctx, AppendInput{ChatID: c.ID, SenderID: uuid.New(), Content: "hi"})
	assert.ErrorIs(t, err, founders_errors.ErrForbidden)

	_, err = env.messages.Append(ctx, AppendInput{ChatID: uuid.New(), SenderID: uuid.New(), Content: "hi"})
	assert.ErrorIs(t, err, founders_errors.ErrNotFound)

	_, err = env.messages.List(ctx, c.ID, uuid.New(), 0, nil)
	assert.ErrorIs(t, err, founders_errors.ErrForbidden)

	_, err = env.messages.MarkRead(ctx, c.ID, uuid.New(), time.Time{})
	assert.ErrorIs(t, err, founders_errors.ErrForbidden)
}

func TestUnreadCounterTracksAppendsAndReads(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	c, a, b := setupChat(t, env)

	for i := 1; i <= 5; i++ {
		_, err := env.messages.Append(ctx, AppendInput{ChatID: c.ID, SenderID: a, Content: "ping"})
		require.NoError(t, err)
		got, err := env.conversations.Get(ctx, c.ID, a)
		require.NoError(t, err)
		assert.Equal(t, i, got.UnreadCount[b])
		assert.Equal(t, 0, got.UnreadCount[a])
	}

	// The reply does not touch the replier's own counter.
	_, err := env.messages.Append(ctx, AppendInput{ChatID: c.ID, SenderID: b, Content: "pong"})
	require.NoError(t, err)
	got, err := env.conversations.Get(ctx, c.ID, a)
	require.NoError(t, err)
	assert.Equal(t, 5, got.UnreadCount[b])
	assert.Equal(t, 1, got.UnreadCount[a])

	// A short page marks only what it returned but still clears the counter.
	page, err := env.messages.List(ctx, c.ID, b, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	got, err = env.conversations.Get(ctx, c.ID, b)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount[b])
	assert.Equal(t, 1, got.UnreadCount[a])

	older, err := env.messages.List(ctx, c.ID, b, 2, &page[0].CreatedAt)
	require.NoError(t, err)
	require.Len(t, older, 2)
	for _, m := range older {
		assert.True(t, m.IsRead, "older page is marked when fetched")
	}
	got, err = env.conversations.Get(ctx, c.ID, b)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount[b])

	assert.NotEmpty(t, env.bus.ofType(events.EventMessagesRead))
}

func TestListWithoutReadOnFetch(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	c, a, b := setupChat(t, env)

	_, err := env.messages.Append(ctx, AppendInput{ChatID: c.ID, SenderID: a, Content: "hi"})
	require.NoError(t, err)

	msgs, err := env.messages.List(ctx, c.ID, b, 0, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].IsRead)

	got, err := env.conversations.Get(ctx, c.ID, b)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UnreadCount[b])

	marked, err := env.messages.MarkRead(ctx, c.ID, b, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	got, err = env.conversations.Get(ctx, c.ID, b)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount[b])

	marked, err = env.messages.MarkRead(ctx, c.ID, b, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, marked)
}

func TestMarkReadThrough(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	c, a, b := setupChat(t, env)

	var sent []chat.Message
	for i := 0; i < 3; i++ {
		msg, err := env.messages.Append(ctx, AppendInput{ChatID: c.ID, SenderID: a, Content: "m"})
		require.NoError(t, err)
		sent = append(sent, msg)
	}

	marked, err := env.messages.MarkRead(ctx, c.ID, b, sent[1].CreatedAt)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	got, err := env.conversations.Get(ctx, c.ID, b)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UnreadCount[b])

	// The sender acknowledging does nothing to their own messages.
	marked, err = env.messages.MarkRead(ctx, c.ID, a, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, marked)
}

func TestPaginationWalkIsCompleteWithConcurrentAppends(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	c, a, b := setupChat(t, env)

	seen := map[uuid.UUID]bool{}
	var want []uuid.UUID
	for i := 0; i < 25; i++ {
		msg, err := env.messages.Append(ctx, AppendInput{ChatID: c.ID, SenderID: a, Content: "old"})
		require.NoError(t, err)
		want = append(want, msg.ID)
	}

	var before *time.Time
	var walked []chat.Message
	for {
		page, err := env.messages.List(ctx, c.ID, b, 10, before)
		require.NoError(t, err)
		for i := 1; i < len(page); i++ {
			assert.True(t, page[i].CreatedAt.After(page[i-1].CreatedAt))
		}
		walked = append(page, walked...)

		// New messages land after the walk's starting point and must not
		// disturb it.
		_, err = env.messages.Append(ctx, AppendInput{ChatID: c.ID, SenderID: b, Content: "new"})
		require.NoError(t, err)

		if len(page) < 10 {
			break
		}
		cursor := page[0].CreatedAt
		before = &cursor
	}

	for _, m := range walked {
		assert.False(t, seen[m.ID], "duplicate message in walk")
		seen[m.ID] = true
	}
	require.Len(t, walked, len(want))
	for i, id := range want {
		assert.Equal(t, id, walked[i].ID)
	}
}

func TestTimestampCollisionsAreBumped(t *testing.T) {
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := repository.NewMemoryStore().WithClock(fixedClock(frozen))
	env := newTestEnvWithStore(t, store, false)
	ctx := context.Background()
	c, a, b := setupChat(t, env)

	var last time.Time
	for i := 0; i < 5; i++ {
		sender := a
		if i%2 == 1 {
			sender = b
		}
		msg, err := env.messages.Append(ctx, AppendInput{ChatID: c.ID, SenderID: sender, Content: "tick"})
		require.NoError(t, err)
		if i > 0 {
			assert.Equal(t, last.Add(time.Microsecond), msg.CreatedAt)
		}
		last = msg.CreatedAt
	}

	got, err := env.conversations.Get(ctx, c.ID, a)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, last, got.LastMessage.CreatedAt)

	page, err := env.messages.List(ctx, c.ID, a, 2, &last)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, last.Add(-time.Microsecond), page[1].CreatedAt)
}

func TestAppendPublishesEvent(t *testing.T) {
	env := newTestEnv(t, true)
	c, a, b := setupChat(t, env)

	msg, err := env.messages.Append(context.Background(), AppendInput{ChatID: c.ID, SenderID: a, Content: "hello"})
	require.NoError(t, err)

	appended := env.bus.ofType(events.EventMessageAppended)
	require.Len(t, appended, 1)
	evt, ok := appended[0].(*events.MessageAppendedEvent)
	require.True(t, ok)
	assert.Equal(t, msg.ID, evt.MessageID)
	assert.Equal(t, "hello", evt.Preview)
	assert.Equal(t, []uuid.UUID{b}, evt.Recipients())
}

func TestListClearsCounterWhenPageHasNothingUnread(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	c, a, b := setupChat(t, env)

	var first chat.Message
	for i := 0; i < 3; i++ {
		msg, err := env.messages.Append(ctx, AppendInput{ChatID: c.ID, SenderID: a, Content: "old"})
		require.NoError(t, err)
		if i == 0 {
			first = msg
		}
	}
	_, err := env.messages.List(ctx, c.ID, b, 0, nil)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := env.messages.Append(ctx, AppendInput{ChatID: c.ID, SenderID: a, Content: "new"})
		require.NoError(t, err)
	}
	got, err := env.conversations.Get(ctx, c.ID, b)
	require.NoError(t, err)
	require.Equal(t, 4, got.UnreadCount[b])

	// A page of already read history still resets the counter.
	cursor := first.CreatedAt.Add(time.Microsecond)
	page, err := env.messages.List(ctx, c.ID, b, 10, &cursor)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	got, err = env.conversations.Get(ctx, c.ID, b)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount[b])

	// The explicit acknowledgement still marks the rest and recomputes.
	marked, err := env.messages.MarkRead(ctx, c.ID, b, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 4, marked)
}
