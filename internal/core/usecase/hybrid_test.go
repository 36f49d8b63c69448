package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/aituberdev/answerd/internal/core/domain"
)

type fakeLexicalSearcher struct {
	hits []domain.RetrievalCandidate
	err  error
}

func (f *fakeLexicalSearcher) TopK(_ context.Context, _ string, k int) ([]domain.RetrievalCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

type fakeVectorSearcher struct {
	hits []domain.RetrievalCandidate
	err  error
}

func (f *fakeVectorSearcher) TopK(_ context.Context, _ string, k int) ([]domain.RetrievalCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

func (f *fakeVectorSearcher) TopKWithScore(ctx context.Context, query string, k int) ([]domain.RetrievalCandidate, error) {
	return f.TopK(ctx, query, k)
}

func candidate(content string, row int) domain.RetrievalCandidate {
	return domain.RetrievalCandidate{
		Content:  content,
		Metadata: domain.DocumentMetadata{Row: row, Image: "slide.png"},
	}
}

func TestHybridTopKFusesBothLegs(t *testing.T) {
	lexical := &fakeLexicalSearcher{hits: []domain.RetrievalCandidate{
		candidate("shared", 1),
		candidate("lexical only", 2),
	}}
	vector := &fakeVectorSearcher{hits: []domain.RetrievalCandidate{
		candidate("vector only", 3),
		candidate("shared", 1),
	}}

	fused, err := NewHybridRetriever(lexical, vector).TopK(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused candidates, got %d", len(fused))
	}
	// shared: 0.5*1.0 + 0.5*0.5 = 0.75, beats both single-leg firsts at 0.5.
	if fused[0].Content != "shared" {
		t.Fatalf("expected the candidate in both legs first, got %q", fused[0].Content)
	}
}

func TestHybridTopKMissingLegContributesZero(t *testing.T) {
	lexical := &fakeLexicalSearcher{err: errors.New("index offline")}
	vector := &fakeVectorSearcher{hits: []domain.RetrievalCandidate{
		candidate("a", 1),
		candidate("b", 2),
	}}

	fused, err := NewHybridRetriever(lexical, vector).TopK(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	if len(fused) != 2 {
		t.Fatalf("expected vector leg to carry the result, got %d candidates", len(fused))
	}
	if fused[0].Content != "a" {
		t.Fatalf("expected vector order preserved, got %q first", fused[0].Content)
	}
}

func TestHybridTopKBothLegsFailing(t *testing.T) {
	lexical := &fakeLexicalSearcher{err: errors.New("lexical down")}
	vector := &fakeVectorSearcher{err: errors.New("vector down")}

	_, err := NewHybridRetriever(lexical, vector).TopK(context.Background(), "q", 5)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error when both legs fail, got %v", err)
	}
}

func TestHybridTopKTruncatesToK(t *testing.T) {
	lexical := &fakeLexicalSearcher{hits: []domain.RetrievalCandidate{
		candidate("a", 1), candidate("b", 2), candidate("c", 3),
	}}
	vector := &fakeVectorSearcher{hits: []domain.RetrievalCandidate{
		candidate("d", 4), candidate("e", 5),
	}}

	fused, err := NewHybridRetriever(lexical, vector).TopK(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	if len(fused) != 2 {
		t.Fatalf("expected truncation to k=2, got %d", len(fused))
	}
}

func TestFuseWeightedRankTieBreaksByRow(t *testing.T) {
	lexical := []domain.RetrievalCandidate{candidate("high row", 9)}
	vector := []domain.RetrievalCandidate{candidate("low row", 2)}

	fused := fuseWeightedRank(lexical, 0.5, vector, 0.5)
	if len(fused) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(fused))
	}
	if fused[0].Content != "low row" {
		t.Fatalf("expected row tie-break, got %q first", fused[0].Content)
	}
}
