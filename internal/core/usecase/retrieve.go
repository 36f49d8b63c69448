package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/core/ports"
)

// retrievedContext is the converged output shape of every retrieval
// strategy: QA exemplars and knowledge text ready for prompt interpolation,
// plus the metadata of the slide to display.
type retrievedContext struct {
	QAContext        string
	KnowledgeContext string
	Metadata         domain.DocumentMetadata
}

// retrievalStrategy is one way of turning a query into prompt context.
// Selected by configuration at gate construction, not branched per call, so
// each algorithm stays independently testable.
type retrievalStrategy interface {
	Mode() domain.RetrievalMode
	Retrieve(ctx context.Context, query string) (retrievedContext, error)
}

const qaExemplarCount = 5

// legacyStrategy takes the single nearest knowledge document and one QA
// exemplar, no scores, no reranking.
type legacyStrategy struct {
	qa        ports.VectorSearcher
	knowledge ports.VectorSearcher
}

func (s *legacyStrategy) Mode() domain.RetrievalMode { return domain.RetrievalLegacy }

func (s *legacyStrategy) Retrieve(ctx context.Context, query string) (retrievedContext, error) {
	qaContext, err := bestExemplar(ctx, s.qa, query)
	if err != nil {
		return retrievedContext{}, err
	}

	hits, err := s.knowledge.TopK(ctx, query, 1)
	if err != nil {
		return retrievedContext{}, fmt.Errorf("knowledge search: %w", err)
	}
	best := firstOrFallback(hits)
	return retrievedContext{
		QAContext:        qaContext,
		KnowledgeContext: best.Content,
		Metadata:         best.Metadata,
	}, nil
}

// cosineStrategy takes the single nearest knowledge document together with
// its cosine relevance, which is surfaced to the model so it can treat
// low-relevance hits as off-topic.
type cosineStrategy struct {
	qa        ports.VectorSearcher
	knowledge ports.VectorSearcher
}

func (s *cosineStrategy) Mode() domain.RetrievalMode { return domain.RetrievalCosine }

func (s *cosineStrategy) Retrieve(ctx context.Context, query string) (retrievedContext, error) {
	qaContext, err := bestExemplar(ctx, s.qa, query)
	if err != nil {
		return retrievedContext{}, err
	}

	hits, err := s.knowledge.TopKWithScore(ctx, query, 1)
	if err != nil {
		return retrievedContext{}, fmt.Errorf("knowledge search with score: %w", err)
	}
	best := firstOrFallback(hits)
	return retrievedContext{
		QAContext:        qaContext,
		KnowledgeContext: fmt.Sprintf("関連度（-1.0 ~ +1.0）: %.4f\n関連情報本文: %s", best.Score, best.Content),
		Metadata:         best.Metadata,
	}, nil
}

// multiStrategy runs hybrid retrieval plus LLM reranking and keeps several
// documents in the prompt, separated by --- so downstream parsing stays easy.
type multiStrategy struct {
	qa       ports.VectorSearcher
	hybrid   *HybridRetriever
	reranker *Reranker
	topK     int
	topN     int
}

func (s *multiStrategy) Mode() domain.RetrievalMode { return domain.RetrievalMulti }

func (s *multiStrategy) Retrieve(ctx context.Context, query string) (retrievedContext, error) {
	exemplars, err := s.qa.TopK(ctx, query, qaExemplarCount)
	if err != nil {
		return retrievedContext{}, fmt.Errorf("qa search: %w", err)
	}
	qaParts := make([]string, 0, len(exemplars))
	for _, e := range exemplars {
		qaParts = append(qaParts, e.Content)
	}

	candidates, err := s.hybrid.TopK(ctx, query, s.topK)
	if err != nil {
		return retrievedContext{}, err
	}
	// topN == 1 is the single-document flow and uses the bare-integer
	// selector; it distinguishes "nothing relevant" from a selection the
	// retriever cannot honor.
	var picked []domain.RetrievalCandidate
	if s.topN == 1 {
		picked = []domain.RetrievalCandidate{s.reranker.SelectBest(ctx, query, candidates, s.topK)}
	} else {
		picked = s.reranker.SelectTopN(ctx, query, candidates, s.topN)
	}

	knowledgeParts := make([]string, 0, len(picked))
	for _, c := range picked {
		knowledgeParts = append(knowledgeParts, "---\n"+c.Content)
	}
	return retrievedContext{
		QAContext:        strings.Join(qaParts, "\n"),
		KnowledgeContext: strings.Join(knowledgeParts, "\n"),
		// Only the first slide is displayed.
		Metadata: picked[0].Metadata,
	}, nil
}

func bestExemplar(ctx context.Context, qa ports.VectorSearcher, query string) (string, error) {
	exemplars, err := qa.TopK(ctx, query, 1)
	if err != nil {
		return "", fmt.Errorf("qa search: %w", err)
	}
	if len(exemplars) == 0 {
		return "", nil
	}
	return exemplars[0].Content, nil
}

func firstOrFallback(hits []domain.RetrievalCandidate) domain.RetrievalCandidate {
	if len(hits) == 0 {
		return noKnowledgeFallbackCandidate()
	}
	return hits[0]
}

// NewRetrievalStrategies builds the full strategy set once; the gate indexes
// into it per request.
func NewRetrievalStrategies(
	qa ports.VectorSearcher,
	knowledge ports.VectorSearcher,
	hybrid *HybridRetriever,
	reranker *Reranker,
	topK, topN int,
) map[domain.RetrievalMode]retrievalStrategy {
	if topK <= 0 {
		topK = 5
	}
	if topN <= 0 {
		topN = 5
	}
	return map[domain.RetrievalMode]retrievalStrategy{
		domain.RetrievalLegacy: &legacyStrategy{qa: qa, knowledge: knowledge},
		domain.RetrievalCosine: &cosineStrategy{qa: qa, knowledge: knowledge},
		domain.RetrievalMulti:  &multiStrategy{qa: qa, hybrid: hybrid, reranker: reranker, topK: topK, topN: topN},
	}
}
