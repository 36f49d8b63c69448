package ports

import (
	"context"

	"github.com/aituberdev/answerd/internal/core/domain"
)

// Responder is the inbound contract for answering one voter question.
type Responder interface {
	Answer(ctx context.Context, query string, mode domain.RetrievalMode, checkHallucination bool) (domain.Answer, error)
	CheckHallucination(ctx context.Context, query string, mode domain.RetrievalMode) (domain.HallucinationReport, error)
}

// CommentFilter reduces a raw comment batch to the answerable subset,
// order-preserving. Unlike the Responder, a classification failure
// propagates to the caller.
type CommentFilter interface {
	FilterComments(ctx context.Context, comments []string) ([]string, error)
}

// KnowledgeFinder exposes raw retrieval results for inspection tooling.
type KnowledgeFinder interface {
	Lookup(ctx context.Context, query string, k int) (knowledge []domain.RetrievalCandidate, qa []string, err error)
}

// ChatMessageService persists and pages live-chat comments for the avatar
// frontend.
type ChatMessageService interface {
	SaveMessage(ctx context.Context, msg domain.ChatMessage) error
	UnreadMessages(ctx context.Context, videoID string) ([]domain.ChatMessage, error)
}
