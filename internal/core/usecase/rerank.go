package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/core/ports"
)

// Reranker asks the reasoning model to pick the most relevant candidates out
// of an already-retrieved bounded set. Its failures are always recoverable:
// every path returns at least one candidate, never an error.
type Reranker struct {
	generator ports.TextGenerator
	logger    *slog.Logger
}

func NewReranker(generator ports.TextGenerator, logger *slog.Logger) *Reranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reranker{generator: generator, logger: logger}
}

type rerankReply struct {
	Results []flexInt `json:"results"`
}

// SelectTopN returns up to topN candidates in the model's relevance order.
// Indices outside [1, len(candidates)] are dropped silently; an empty or
// unusable reply degrades to the single extraction-failure fallback.
func (r *Reranker) SelectTopN(ctx context.Context, query string, candidates []domain.RetrievalCandidate, topN int) []domain.RetrievalCandidate {
	if len(candidates) == 0 {
		return []domain.RetrievalCandidate{extractionFallbackCandidate()}
	}
	if topN <= 0 {
		topN = len(candidates)
	}

	prompt := buildRerankPrompt(query, candidates, topN)
	raw, err := r.generator.GenerateJSON(ctx, prompt)
	if err != nil {
		r.logger.Warn("rerank generation failed, using fallback", "error", err)
		return []domain.RetrievalCandidate{extractionFallbackCandidate()}
	}

	var reply rerankReply
	if err := decodeModelJSON(raw, &reply); err != nil {
		r.logger.Warn("rerank reply not parseable, using fallback", "error", err, "reply", raw)
		return []domain.RetrievalCandidate{extractionFallbackCandidate()}
	}

	out := make([]domain.RetrievalCandidate, 0, topN)
	for _, idx := range reply.Results {
		i := int(idx)
		if i < 1 || i > len(candidates) {
			r.logger.Warn("rerank index out of range, dropped", "index", i, "candidates", len(candidates))
			continue
		}
		out = append(out, candidates[i-1])
		if len(out) == topN {
			break
		}
	}
	if len(out) == 0 {
		return []domain.RetrievalCandidate{extractionFallbackCandidate()}
	}
	return out
}

var bareNumberRe = regexp.MustCompile(`-?\d+`)

// SelectBest is the one-best variant used by single-document flows. The model
// answers with a bare integer: 0 means no relevant document, anything the
// candidate list cannot honor degrades to a fallback.
func (r *Reranker) SelectBest(ctx context.Context, query string, candidates []domain.RetrievalCandidate, topK int) domain.RetrievalCandidate {
	if len(candidates) == 0 {
		return noKnowledgeFallbackCandidate()
	}
	if topK <= 0 {
		topK = len(candidates)
	}

	prompt := buildSelectBestPrompt(query, candidates, topK)
	raw, err := r.generator.GenerateText(ctx, prompt)
	if err != nil {
		r.logger.Warn("select-best generation failed, using fallback", "error", err)
		return noKnowledgeFallbackCandidate()
	}

	match := bareNumberRe.FindString(raw)
	if match == "" {
		r.logger.Warn("no number in select-best reply", "reply", raw)
		return noKnowledgeFallbackCandidate()
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		r.logger.Warn("select-best reply not an integer", "reply", raw, "error", err)
		return noKnowledgeFallbackCandidate()
	}

	switch {
	case n == 0 || n > topK:
		return noKnowledgeFallbackCandidate()
	case n < 0:
		r.logger.Warn("select-best index negative", "index", n)
		return extractionFallbackCandidate()
	case n > len(candidates):
		// Selected an id we offered but never retrieved. Schema drift on the
		// model side; degrade to the transient-error message.
		r.logger.Warn("select-best index beyond retrieved set", "index", n, "candidates", len(candidates))
		return extractionFallbackCandidate()
	default:
		return candidates[n-1]
	}
}

func extractionFallbackCandidate() domain.RetrievalCandidate {
	return domain.RetrievalCandidate{
		Content:  domain.ExtractionFailureText,
		Metadata: domain.DefaultFallbackKnowledgeMetadata,
	}
}

func noKnowledgeFallbackCandidate() domain.RetrievalCandidate {
	return domain.RetrievalCandidate{
		Content:  domain.NoRelevantKnowledgeText,
		Metadata: domain.DefaultFallbackKnowledgeMetadata,
	}
}
