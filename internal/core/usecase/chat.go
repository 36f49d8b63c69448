package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/core/ports"
)

const unreadPageSize = 50

// ChatMessages persists live-chat comments and hands each one out exactly
// once via a per-video read cursor.
type ChatMessages struct {
	messages ports.ChatMessageRepository
	cursors  ports.ChatCursorRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewChatMessages(messages ports.ChatMessageRepository, cursors ports.ChatCursorRepository, logger *slog.Logger) *ChatMessages {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatMessages{
		messages: messages,
		cursors:  cursors,
		logger:   logger,
		now:      time.Now,
	}
}

func (c *ChatMessages) SaveMessage(ctx context.Context, msg domain.ChatMessage) error {
	if msg.VideoID == "" || msg.MessageText == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save chat message", errMissingField)
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = c.now()
	}
	return c.messages.Save(ctx, msg)
}

// UnreadMessages returns the messages added since the previous call for the
// video and advances the cursor past them. A missing cursor means the video
// has never been read; the poll starts from the beginning.
func (c *ChatMessages) UnreadMessages(ctx context.Context, videoID string) ([]domain.ChatMessage, error) {
	if videoID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "unread chat messages", errMissingField)
	}

	cursor, err := c.cursors.Get(ctx, videoID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	msgs, err := c.messages.ListAfter(ctx, videoID, cursor.MessageID, unreadPageSize)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return []domain.ChatMessage{}, nil
	}

	next := domain.ChatMessageCursor{
		VideoID:   videoID,
		MessageID: msgs[len(msgs)-1].MessageID,
	}
	if err := c.cursors.Upsert(ctx, next); err != nil {
		// The same page will be served again next poll. Duplicates beat loss
		// for a read model, so only log it.
		c.logger.Warn("chat cursor advance failed", "video_id", videoID, "error", err)
	}
	return msgs, nil
}

var errMissingField = errEmptyField{}

type errEmptyField struct{}

func (errEmptyField) Error() string { return "required field is empty" }
