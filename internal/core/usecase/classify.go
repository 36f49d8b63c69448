package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/core/ports"
)

// CommentClassifier reduces a raw live-chat batch to the comments worth
// answering. Unlike the response gate it does not degrade: a model that
// cannot be reached or parsed fails the whole batch, and the caller retries
// the batch later.
type CommentClassifier struct {
	generator ports.TextGenerator
	logger    *slog.Logger
}

func NewCommentClassifier(generator ports.TextGenerator, logger *slog.Logger) *CommentClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentClassifier{generator: generator, logger: logger}
}

type classifyReply struct {
	QuestionIndex []flexInt `json:"question_index"`
}

// FilterComments returns the answerable subset of comments in their original
// order. Comments starting with # (half- or full-width) are operator commands
// and never reach the model.
func (c *CommentClassifier) FilterComments(ctx context.Context, comments []string) ([]string, error) {
	kept := make([]string, 0, len(comments))
	for _, comment := range comments {
		if isOperatorCommand(comment) {
			continue
		}
		kept = append(kept, comment)
	}
	if len(kept) == 0 {
		return []string{}, nil
	}

	payload, err := json.Marshal(kept)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode comment batch", err)
	}

	raw, err := c.generator.GenerateJSON(ctx, buildClassifyPrompt(string(payload)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalCall, "classify comments", err)
	}

	var reply classifyReply
	if err := decodeModelJSON(raw, &reply); err != nil {
		return nil, err
	}

	selected := make(map[int]bool, len(reply.QuestionIndex))
	for _, idx := range reply.QuestionIndex {
		i := int(idx)
		if i < 0 || i >= len(kept) {
			c.logger.Warn("classifier index out of range, dropped", "index", i, "comments", len(kept))
			continue
		}
		selected[i] = true
	}

	out := make([]string, 0, len(selected))
	for i, comment := range kept {
		if selected[i] {
			out = append(out, comment)
		}
	}
	return out, nil
}

func isOperatorCommand(comment string) bool {
	for _, r := range comment {
		return r == '#' || r == '＃'
	}
	return false
}
