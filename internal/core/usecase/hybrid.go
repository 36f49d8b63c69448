package usecase

import (
	"context"
	"sort"

	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/core/ports"
)

// HybridRetriever merges lexical and dense retrieval over the knowledge
// corpus with weighted rank fusion. One leg returning nothing is fine; both
// legs failing is an error.
type HybridRetriever struct {
	lexical ports.LexicalSearcher
	vector  ports.VectorSearcher

	lexicalWeight float64
	vectorWeight  float64
}

func NewHybridRetriever(lexical ports.LexicalSearcher, vector ports.VectorSearcher) *HybridRetriever {
	return &HybridRetriever{
		lexical:       lexical,
		vector:        vector,
		lexicalWeight: 0.5,
		vectorWeight:  0.5,
	}
}

func (h *HybridRetriever) TopK(ctx context.Context, query string, k int) ([]domain.RetrievalCandidate, error) {
	if k <= 0 {
		k = 5
	}

	lexicalHits, lexErr := h.lexical.TopK(ctx, query, k)
	vectorHits, vecErr := h.vector.TopK(ctx, query, k)
	if lexErr != nil && vecErr != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "hybrid retrieval", vecErr)
	}

	fused := fuseWeightedRank(lexicalHits, h.lexicalWeight, vectorHits, h.vectorWeight)
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused, nil
}

type fusedCandidate struct {
	candidate domain.RetrievalCandidate
	score     float64
}

// fuseWeightedRank assigns each candidate a normalized rank score per leg
// ((n-rank)/n, so the best hit of a leg scores 1) and sums the weighted legs.
// Candidates missing from a leg contribute 0 for it. Deduplication is by
// content equality; the first occurrence's metadata wins.
func fuseWeightedRank(lexical []domain.RetrievalCandidate, lexicalWeight float64, vector []domain.RetrievalCandidate, vectorWeight float64) []domain.RetrievalCandidate {
	acc := make(map[string]fusedCandidate, len(lexical)+len(vector))
	order := make([]string, 0, len(lexical)+len(vector))

	addLeg := func(hits []domain.RetrievalCandidate, weight float64) {
		n := len(hits)
		for rank, hit := range hits {
			entry, seen := acc[hit.Content]
			if !seen {
				entry.candidate = hit
				order = append(order, hit.Content)
			}
			entry.score += weight * float64(n-rank) / float64(n)
			acc[hit.Content] = entry
		}
	}

	addLeg(lexical, lexicalWeight)
	addLeg(vector, vectorWeight)

	out := make([]domain.RetrievalCandidate, 0, len(order))
	for _, key := range order {
		entry := acc[key]
		entry.candidate.Score = entry.score
		out = append(out, entry.candidate)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Metadata.Row < out[j].Metadata.Row
	})
	return out
}
