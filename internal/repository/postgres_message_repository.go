package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"founders-chat/internal/domain/chat"
	founders_errors "founders-chat/pkg/errors"
)

type PostgresMessageRepository struct {
	db    *pgxpool.Pool
	chats *PostgresConversationRepository
}

func NewMessageRepository(db *pgxpool.Pool) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db, chats: NewConversationRepository(db)}
}

const messageColumns = `id, chat_id, sender_id, content, media, is_read, read_at, created_at`

func (r *PostgresMessageRepository) Append(ctx context.Context, m *chat.Message) (chat.Chat, error) {
	media, err := encodeMedia(m.Media)
	if err != nil {
		return chat.Chat{}, err
	}

	var out chat.Chat
	err = WithTx(ctx, r.db, func(tx pgx.Tx) error {
		// The row lock serializes appends per chat, which keeps created_at
		// strictly increasing and the last message pointer exact.
		var lastAt *time.Time
		if err := tx.QueryRow(ctx, `SELECT last_message_at FROM chats WHERE id = $1 FOR UPDATE`, m.ChatID).Scan(&lastAt); err != nil {
			return err
		}

		var member bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM chat_participants WHERE chat_id = $1 AND user_id = $2)`,
			m.ChatID, m.SenderID).Scan(&member); err != nil {
			return err
		}
		if !member {
			return founders_errors.ErrForbidden
		}

		m.CreatedAt = NextTimestamp(time.Now(), lastAt)
		m.IsRead = false
		m.ReadAt = nil

		if _, err := tx.Exec(ctx, `
			INSERT INTO messages (id, chat_id, sender_id, content, media, is_read, created_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, $6)`,
			m.ID, m.ChatID, m.SenderID, m.Content, media, m.CreatedAt); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE chats
			SET last_message_id = $2, last_message_at = $3, updated_at = $3
			WHERE id = $1 AND (last_message_at IS NULL OR last_message_at < $3)`,
			m.ChatID, m.ID, m.CreatedAt); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE chat_participants
			SET unread_count = unread_count + 1
			WHERE chat_id = $1 AND user_id <> $2`,
			m.ChatID, m.SenderID); err != nil {
			return err
		}

		updated, err := r.chats.getOne(ctx, tx, `SELECT`+chatColumns+chatFrom+` WHERE c.id = $1`, m.ChatID)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return chat.Chat{}, err
	}
	return out, nil
}

func (r *PostgresMessageRepository) List(ctx context.Context, chatID uuid.UUID, limit int, before *time.Time) ([]chat.Message, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if before != nil {
		rows, err = r.db.Query(ctx, `SELECT `+messageColumns+`
			FROM messages
			WHERE chat_id = $1 AND created_at < $2
			ORDER BY created_at DESC
			LIMIT $3`, chatID, before.UTC(), limit)
	} else {
		rows, err = r.db.Query(ctx, `SELECT `+messageColumns+`
			FROM messages
			WHERE chat_id = $1
			ORDER BY created_at DESC
			LIMIT $2`, chatID, limit)
	}
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var (
			msg   chat.Message
			media []byte
		)
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &media,
			&msg.IsRead, &msg.ReadAt, &msg.CreatedAt); err != nil {
			return nil, storeError(err)
		}
		if err := decodeMedia(media, &msg.Media); err != nil {
			return nil, err
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		msg.ReadAt = utcPtr(msg.ReadAt)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}

	// newest-first from the index, ascending for display
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *PostgresMessageRepository) MarkRead(ctx context.Context, chatID, readerID uuid.UUID, scope ReadScope) (ReadResult, error) {
	result := ReadResult{ReadAt: founders_errors.Now()}
	err := WithTx(ctx, r.db, func(tx pgx.Tx) error {
		// Locking the reader's row orders this against concurrent appends,
		// which increment the same row.
		var current int
		if err := tx.QueryRow(ctx, `
			SELECT unread_count FROM chat_participants
			WHERE chat_id = $1 AND user_id = $2
			FOR UPDATE`, chatID, readerID).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return founders_errors.ErrForbidden
			}
			return err
		}

		var (
			rows pgx.Rows
			err  error
		)
		switch {
		case len(scope.MessageIDs) > 0:
			rows, err = tx.Query(ctx, `
				UPDATE messages SET is_read = TRUE, read_at = $3
				WHERE chat_id = $1 AND sender_id <> $2 AND NOT is_read AND id = ANY($4::uuid[])
				RETURNING id`, chatID, readerID, result.ReadAt, uuidStrings(scope.MessageIDs))
		case !scope.ResetUnread:
			through := scope.Through
			if through.IsZero() {
				through = result.ReadAt
			}
			rows, err = tx.Query(ctx, `
				UPDATE messages SET is_read = TRUE, read_at = $3
				WHERE chat_id = $1 AND sender_id <> $2 AND NOT is_read AND created_at <= $4
				RETURNING id`, chatID, readerID, result.ReadAt, through.UTC())
		}
		if err != nil {
			return err
		}
		if rows != nil {
			marked, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
			if err != nil {
				return err
			}
			result.Marked = marked
		}

		if scope.ResetUnread {
			_, err := tx.Exec(ctx, `
				UPDATE chat_participants SET unread_count = 0
				WHERE chat_id = $1 AND user_id = $2`, chatID, readerID)
			return err
		}
		return tx.QueryRow(ctx, `
			UPDATE chat_participants
			SET unread_count = (
				SELECT count(*) FROM messages
				WHERE chat_id = $1 AND sender_id <> $2 AND NOT is_read)
			WHERE chat_id = $1 AND user_id = $2
			RETURNING unread_count`, chatID, readerID).Scan(&result.Unread)
	})
	if err != nil {
		return ReadResult{}, err
	}
	return result, nil
}
