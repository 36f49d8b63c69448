package vector

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/aituberdev/answerd/internal/core/domain"
)

// fakeEmbedder maps known texts onto fixed vectors so similarity is under
// test control. Unknown texts get an orthogonal default.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, f.vector(text))
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) vector(text string) []float32 {
	if vec, ok := f.vectors[text]; ok {
		return vec
	}
	return []float32{0, 0, 1}
}

func buildTestArtifact(t *testing.T, embedder *fakeEmbedder, docs []domain.KnowledgeDocument) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knowledge.db")
	if err := Build(context.Background(), path, docs, embedder, "test-embedding"); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return path
}

func TestBuildAndSearchRoundTrip(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"有権者との対話集会を毎月開催します。":  {1, 0, 0},
		"防災備蓄を倍増します。":          {0, 1, 0},
		"どうやって有権者の声を聞くの？":      {0.9, 0.1, 0},
	}}
	docs := []domain.KnowledgeDocument{
		{Content: "有権者との対話集会を毎月開催します。", Metadata: domain.DocumentMetadata{Row: 1, Image: "slide_1.png"}},
		{Content: "防災備蓄を倍増します。", Metadata: domain.DocumentMetadata{Row: 2, Image: "slide_2.png"}},
	}
	path := buildTestArtifact(t, embedder, docs)

	store, err := Open(path, embedder)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if store.Info().DocumentCount != 2 || store.Info().Dimension != 3 {
		t.Fatalf("unexpected artifact info: %#v", store.Info())
	}

	hits, err := store.TopKWithScore(context.Background(), "どうやって有権者の声を聞くの？", 2)
	if err != nil {
		t.Fatalf("TopKWithScore() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Metadata.Row != 1 {
		t.Fatalf("expected the dialogue document first, got row %d", hits[0].Metadata.Row)
	}
	if hits[0].Score <= hits[1].Score {
		t.Fatalf("expected descending scores, got %f then %f", hits[0].Score, hits[1].Score)
	}
	if hits[0].Score < -1 || hits[0].Score > 1 {
		t.Fatalf("cosine score out of range: %f", hits[0].Score)
	}
}

func TestTopKClearsScores(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"政策資料です。": {1, 0, 0},
	}}
	docs := []domain.KnowledgeDocument{
		{Content: "政策資料です。", Metadata: domain.DocumentMetadata{Row: 1, Image: "slide_1.png"}},
	}
	store, err := Open(buildTestArtifact(t, embedder, docs), embedder)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	hits, err := store.TopK(context.Background(), "政策について", 1)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Score != 0 {
		t.Fatalf("expected unscored hits from TopK, got %#v", hits)
	}
}

func TestOpenMissingArtifact(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.db"), &fakeEmbedder{})
	if err == nil {
		t.Fatalf("expected an error for a missing artifact")
	}
}

func TestSearchEmbedderFailure(t *testing.T) {
	healthy := &fakeEmbedder{vectors: map[string][]float32{"doc": {1, 0, 0}}}
	docs := []domain.KnowledgeDocument{{Content: "doc", Metadata: domain.DocumentMetadata{Row: 1}}}
	path := buildTestArtifact(t, healthy, docs)

	store, err := Open(path, &fakeEmbedder{err: errors.New("embedder offline")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := store.TopK(context.Background(), "q", 1); !domain.IsKind(err, domain.ErrExternalCall) {
		t.Fatalf("expected external-call error, got %v", err)
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors: got %f", got)
	}
	if got := cosine([]float32{1, 0}, []float32{-1, 0}); math.Abs(got+1) > 1e-9 {
		t.Fatalf("opposite vectors: got %f", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 0}); got != 0 {
		t.Fatalf("degenerate vector: got %f", got)
	}
}
