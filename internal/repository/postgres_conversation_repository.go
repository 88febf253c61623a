package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"founders-chat/internal/domain/chat"
	founders_errors "founders-chat/pkg/errors"
)

type PostgresConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *PostgresConversationRepository {
	return &PostgresConversationRepository{db: db}
}

const chatColumns = `
	c.id, c.created_at, c.updated_at,
	m.id, m.sender_id, m.content, m.media, m.is_read, m.read_at, m.created_at`

const chatFrom = `
	FROM chats c
	LEFT JOIN messages m ON m.id = c.last_message_id`

func (r *PostgresConversationRepository) CreateChat(ctx context.Context, c *chat.Chat) error {
	if len(c.Participants) != 2 {
		return fmt.Errorf("%w: a chat needs exactly two participants", founders_errors.ErrInvalidInput)
	}
	pair := chat.CanonicalPair(c.Participants[0], c.Participants[1])

	return WithTx(ctx, r.db, func(tx pgx.Tx) error {
		// ON CONFLICT waits for a concurrent insert of the same pair to settle,
		// so a losing writer sees zero rows instead of a constraint error.
		tag, err := tx.Exec(ctx, `
			INSERT INTO chats (id, user_low, user_high, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (user_low, user_high) DO NOTHING`,
			c.ID, pair.Low, pair.High, c.CreatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return founders_errors.ErrAlreadyExists
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO chat_participants (chat_id, user_id, unread_count, joined_at)
			VALUES ($1, $2, 0, $4), ($1, $3, 0, $4)`,
			c.ID, pair.Low, pair.High, c.CreatedAt)
		return err
	})
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (chat.Chat, error) {
	return r.getOne(ctx, r.db, `SELECT`+chatColumns+chatFrom+` WHERE c.id = $1`, id)
}

func (r *PostgresConversationRepository) GetByPair(ctx context.Context, pair chat.Pair) (chat.Chat, error) {
	return r.getOne(ctx, r.db, `SELECT`+chatColumns+chatFrom+` WHERE c.user_low = $1 AND c.user_high = $2`, pair.Low, pair.High)
}

func (r *PostgresConversationRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, skip int) ([]chat.Chat, error) {
	rows, err := r.db.Query(ctx, `SELECT`+chatColumns+chatFrom+`
		JOIN chat_participants p ON p.chat_id = c.id AND p.user_id = $1
		ORDER BY c.updated_at DESC, c.id DESC
		LIMIT $2 OFFSET $3`, userID, limit, skip)
	if err != nil {
		return nil, storeError(err)
	}
	chats, err := collectChats(rows)
	if err != nil {
		return nil, storeError(err)
	}
	if err := loadParticipants(ctx, r.db, chats); err != nil {
		return nil, storeError(err)
	}
	return chats, nil
}

func (r *PostgresConversationRepository) RestoreParticipants(ctx context.Context, chatID uuid.UUID) (chat.Chat, error) {
	var out chat.Chat
	err := WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM chats WHERE id = $1 FOR UPDATE`, chatID).Scan(&locked); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO chat_participants (chat_id, user_id, unread_count, joined_at)
			SELECT c.id, u.user_id,
				(SELECT count(*) FROM messages m
				 WHERE m.chat_id = c.id AND m.sender_id <> u.user_id AND NOT m.is_read),
				now()
			FROM chats c
			CROSS JOIN LATERAL (VALUES (c.user_low), (c.user_high)) AS u(user_id)
			WHERE c.id = $1
			ON CONFLICT (chat_id, user_id) DO NOTHING`, chatID)
		if err != nil {
			return err
		}
		out, err = r.getOne(ctx, tx, `SELECT`+chatColumns+chatFrom+` WHERE c.id = $1`, chatID)
		return err
	})
	return out, err
}

func (r *PostgresConversationRepository) RemoveParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	deleted := false
	err := WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM chats WHERE id = $1 FOR UPDATE`, chatID).Scan(&locked); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM chat_participants WHERE chat_id = $1 AND user_id = $2`, chatID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return founders_errors.ErrForbidden
		}

		var remaining int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM chat_participants WHERE chat_id = $1`, chatID).Scan(&remaining); err != nil {
			return err
		}
		if remaining > 0 {
			_, err = tx.Exec(ctx, `UPDATE chats SET updated_at = $2 WHERE id = $1`, chatID, founders_errors.Now())
			return err
		}

		// messages and participant rows cascade
		if _, err := tx.Exec(ctx, `DELETE FROM chats WHERE id = $1`, chatID); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (r *PostgresConversationRepository) Ping(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("%w: database not initialized", founders_errors.ErrServiceUnavailable)
	}
	return storeError(r.db.Ping(ctx))
}

func (r *PostgresConversationRepository) getOne(ctx context.Context, q DBTX, query string, args ...any) (chat.Chat, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return chat.Chat{}, storeError(err)
	}
	chats, err := collectChats(rows)
	if err != nil {
		return chat.Chat{}, storeError(err)
	}
	if len(chats) == 0 {
		return chat.Chat{}, founders_errors.ErrNotFound
	}
	if err := loadParticipants(ctx, q, chats); err != nil {
		return chat.Chat{}, storeError(err)
	}
	return chats[0], nil
}

func collectChats(rows pgx.Rows) ([]chat.Chat, error) {
	defer rows.Close()

	var chats []chat.Chat
	for rows.Next() {
		var (
			c         chat.Chat
			msgID     *uuid.UUID
			senderID  *uuid.UUID
			content   *string
			media     []byte
			isRead    *bool
			readAt    *time.Time
			createdAt *time.Time
		)
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt,
			&msgID, &senderID, &content, &media, &isRead, &readAt, &createdAt); err != nil {
			return nil, err
		}
		if msgID != nil {
			last := chat.Message{
				ID:        *msgID,
				ChatID:    c.ID,
				SenderID:  *senderID,
				Content:   derefString(content),
				IsRead:    isRead != nil && *isRead,
				ReadAt:    utcPtr(readAt),
				CreatedAt: createdAt.UTC(),
			}
			if err := decodeMedia(media, &last.Media); err != nil {
				return nil, err
			}
			c.LastMessage = &last
		}
		c.CreatedAt = c.CreatedAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func loadParticipants(ctx context.Context, q DBTX, chats []chat.Chat) error {
	if len(chats) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(chats))
	index := make(map[uuid.UUID]int, len(chats))
	for i := range chats {
		ids[i] = chats[i].ID
		index[chats[i].ID] = i
		chats[i].Participants = []uuid.UUID{}
		chats[i].UnreadCount = map[uuid.UUID]int{}
	}

	rows, err := q.Query(ctx, `
		SELECT chat_id, user_id, unread_count
		FROM chat_participants
		WHERE chat_id = ANY($1::uuid[])`, uuidStrings(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var chatID, userID uuid.UUID
		var unread int
		if err := rows.Scan(&chatID, &userID, &unread); err != nil {
			return err
		}
		c := &chats[index[chatID]]
		c.Participants = append(c.Participants, userID)
		c.UnreadCount[userID] = unread
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range chats {
		chat.SortIDs(chats[i].Participants)
	}
	return nil
}

func decodeMedia(raw []byte, out *[]chat.Attachment) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func encodeMedia(media []chat.Attachment) ([]byte, error) {
	if media == nil {
		media = []chat.Attachment{}
	}
	return json.Marshal(media)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
