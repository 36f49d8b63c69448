package lexical

import (
	"context"
	"math"
	"sort"

	"github.com/aituberdev/answerd/internal/core/domain"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Index is an in-memory BM25 index over the knowledge corpus. The corpus is
// a few hundred slide-sized documents, so everything is built up front and
// queries are a linear scan over the matching postings.
type Index struct {
	tokenizer *Tokenizer
	docs      []domain.KnowledgeDocument

	termFreqs []map[string]int
	docLens   []int
	avgDocLen float64
	docFreq   map[string]int
}

func NewIndex(tokenizer *Tokenizer, docs []domain.KnowledgeDocument) *Index {
	idx := &Index{
		tokenizer: tokenizer,
		docs:      docs,
		termFreqs: make([]map[string]int, len(docs)),
		docLens:   make([]int, len(docs)),
		docFreq:   make(map[string]int),
	}

	totalLen := 0
	for i, doc := range docs {
		terms := tokenizer.Terms(doc.Content)
		tf := make(map[string]int, len(terms))
		for _, term := range terms {
			tf[term]++
		}
		for term := range tf {
			idx.docFreq[term]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(terms)
		totalLen += len(terms)
	}
	if len(docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(docs))
	}
	return idx
}

func (idx *Index) Size() int { return len(idx.docs) }

func (idx *Index) TopK(_ context.Context, query string, k int) ([]domain.RetrievalCandidate, error) {
	if len(idx.docs) == 0 {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "lexical search", errEmptyIndex)
	}
	if k <= 0 {
		k = 5
	}

	queryTerms := idx.tokenizer.Terms(query)
	if len(queryTerms) == 0 {
		return []domain.RetrievalCandidate{}, nil
	}

	scored := make([]domain.RetrievalCandidate, 0, k)
	for i, doc := range idx.docs {
		score := idx.score(queryTerms, i)
		if score <= 0 {
			continue
		}
		scored = append(scored, domain.RetrievalCandidate{
			Content:  doc.Content,
			Metadata: doc.Metadata,
			Score:    score,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Metadata.Row < scored[j].Metadata.Row
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (idx *Index) score(queryTerms []string, docID int) float64 {
	tf := idx.termFreqs[docID]
	docLen := float64(idx.docLens[docID])
	n := float64(len(idx.docs))

	var score float64
	for _, term := range queryTerms {
		freq := float64(tf[term])
		if freq == 0 {
			continue
		}
		df := float64(idx.docFreq[term])
		idf := math.Log(1.0 + (n-df+0.5)/(df+0.5))
		score += idf * (freq * (bm25K1 + 1)) / (freq + bm25K1*(1-bm25B+bm25B*docLen/idx.avgDocLen))
	}
	return score
}

var errEmptyIndex = emptyIndexError{}

type emptyIndexError struct{}

func (emptyIndexError) Error() string { return "index holds no documents" }
