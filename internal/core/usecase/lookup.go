package usecase

import (
	"context"

	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/core/ports"
)

// KnowledgeInspector exposes raw retrieval output, before any reranking or
// prompting, for debugging what the pipeline actually sees for a query.
type KnowledgeInspector struct {
	hybrid *HybridRetriever
	qa     ports.VectorSearcher
}

func NewKnowledgeInspector(hybrid *HybridRetriever, qa ports.VectorSearcher) *KnowledgeInspector {
	return &KnowledgeInspector{hybrid: hybrid, qa: qa}
}

func (k *KnowledgeInspector) Lookup(ctx context.Context, query string, topK int) ([]domain.RetrievalCandidate, []string, error) {
	if topK <= 0 {
		topK = 5
	}

	knowledge, err := k.hybrid.TopK(ctx, query, topK)
	if err != nil {
		return nil, nil, err
	}

	exemplars, err := k.qa.TopK(ctx, query, topK)
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrIndexUnavailable, "qa lookup", err)
	}
	qa := make([]string, 0, len(exemplars))
	for _, e := range exemplars {
		qa = append(qa, e.Content)
	}
	return knowledge, qa, nil
}
