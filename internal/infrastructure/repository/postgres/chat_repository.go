package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/aituberdev/answerd/internal/core/domain"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// ChatMessageRepository stores live-chat comments. MessageID carries the
// platform's own id, so re-fetching an already-saved window is a no-op.
type ChatMessageRepository struct {
	db *sql.DB
}

func NewChatMessageRepository(db *sql.DB) *ChatMessageRepository {
	return &ChatMessageRepository{db: db}
}

func (r *ChatMessageRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chat_messages (
	video_id TEXT NOT NULL,
	message_id TEXT NOT NULL,
	message_text TEXT NOT NULL,
	author_name TEXT NOT NULL DEFAULT '',
	author_image_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	seq BIGSERIAL,
	PRIMARY KEY (video_id, message_id)
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_video_seq ON chat_messages(video_id, seq);

CREATE TABLE IF NOT EXISTS chat_cursors (
	video_id TEXT PRIMARY KEY,
	message_id TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ChatMessageRepository) Save(ctx context.Context, msg domain.ChatMessage) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO chat_messages (video_id, message_id, message_text, author_name, author_image_url, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (video_id, message_id) DO NOTHING
`, msg.VideoID, msg.MessageID, msg.MessageText, msg.AuthorName, msg.AuthorImageURL, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (r *ChatMessageRepository) ListAfter(ctx context.Context, videoID, afterMessageID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	// seq orders by arrival; the cursor message's seq bounds the page.
	rows, err := r.db.QueryContext(ctx, `
SELECT video_id, message_id, message_text, author_name, author_image_url, created_at
FROM chat_messages
WHERE video_id = $1
  AND seq > COALESCE(
	(SELECT seq FROM chat_messages WHERE video_id = $1 AND message_id = $2), 0)
ORDER BY seq
LIMIT $3
`, videoID, afterMessageID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0, limit)
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(&msg.VideoID, &msg.MessageID, &msg.MessageText, &msg.AuthorName, &msg.AuthorImageURL, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return out, nil
}

// ChatCursorRepository tracks the read position per video.
type ChatCursorRepository struct {
	db *sql.DB
}

func NewChatCursorRepository(db *sql.DB) *ChatCursorRepository {
	return &ChatCursorRepository{db: db}
}

func (r *ChatCursorRepository) Get(ctx context.Context, videoID string) (domain.ChatMessageCursor, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT video_id, message_id FROM chat_cursors WHERE video_id = $1
`, videoID)

	var cursor domain.ChatMessageCursor
	if err := row.Scan(&cursor.VideoID, &cursor.MessageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ChatMessageCursor{}, domain.WrapError(domain.ErrNotFound, "get chat cursor", err)
		}
		return domain.ChatMessageCursor{}, fmt.Errorf("scan chat cursor: %w", err)
	}
	return cursor, nil
}

func (r *ChatCursorRepository) Upsert(ctx context.Context, cursor domain.ChatMessageCursor) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO chat_cursors (video_id, message_id, updated_at)
VALUES ($1,$2,$3)
ON CONFLICT (video_id) DO UPDATE SET message_id = EXCLUDED.message_id, updated_at = EXCLUDED.updated_at
`, cursor.VideoID, cursor.MessageID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert chat cursor: %w", err)
	}
	return nil
}
