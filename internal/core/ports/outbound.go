package ports

import (
	"context"

	"github.com/aituberdev/answerd/internal/core/domain"
)

// TextGenerator is the external reasoning model. Replies are best-effort
// JSON-shaped text; transport failures surface as errors the caller degrades.
type TextGenerator interface {
	// GenerateJSON asks for a reply constrained to JSON output.
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	// GenerateText asks for a free-form reply (used by the one-best reranker,
	// which expects a bare integer).
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Embedder builds dense vectors for index build and query time.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher is nearest-neighbor retrieval over one corpus.
type VectorSearcher interface {
	TopK(ctx context.Context, query string, k int) ([]domain.RetrievalCandidate, error)
	// TopKWithScore populates Score with cosine relevance in [-1, 1].
	TopKWithScore(ctx context.Context, query string, k int) ([]domain.RetrievalCandidate, error)
}

// LexicalSearcher is term-overlap retrieval over the knowledge corpus.
type LexicalSearcher interface {
	TopK(ctx context.Context, query string, k int) ([]domain.RetrievalCandidate, error)
}

// InteractionLog receives one record per served query. Append is best-effort;
// callers log failures and move on.
type InteractionLog interface {
	Append(record domain.InteractionRecord) error
}

// ChatMessageRepository persists live-chat comments.
type ChatMessageRepository interface {
	Save(ctx context.Context, msg domain.ChatMessage) error
	// ListAfter returns messages for videoID newer than afterMessageID in
	// creation order. Empty afterMessageID means from the beginning.
	ListAfter(ctx context.Context, videoID, afterMessageID string, limit int) ([]domain.ChatMessage, error)
}

// ChatCursorRepository tracks the read position per video.
type ChatCursorRepository interface {
	// Get returns domain.ErrNotFound when no cursor exists yet.
	Get(ctx context.Context, videoID string) (domain.ChatMessageCursor, error)
	Upsert(ctx context.Context, cursor domain.ChatMessageCursor) error
}

// CommentQueue transports raw comment batches from the chat fetcher to the
// classification worker.
type CommentQueue interface {
	PublishCommentBatch(ctx context.Context, batch domain.CommentBatch) error
	SubscribeCommentBatches(ctx context.Context, handler func(context.Context, domain.CommentBatch) error) error
}
