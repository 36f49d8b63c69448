package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/core/ports"
)

var (
	bucketDocuments = []byte("documents")
	bucketMeta      = []byte("meta")
	keyInfo         = []byte("info")
)

type storedDocument struct {
	Content  string                  `json:"content"`
	Metadata domain.DocumentMetadata `json:"metadata"`
	Vector   []float32               `json:"vector"`
}

// ArtifactInfo describes one built index artifact.
type ArtifactInfo struct {
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	DocumentCount  int       `json:"document_count"`
	BuiltAt        time.Time `json:"built_at"`
}

// Store serves nearest-neighbor queries over one prebuilt index artifact.
// The corpus is small enough to hold in memory, so Open loads everything and
// releases the file; queries are exact cosine over all documents.
type Store struct {
	embedder ports.Embedder
	info     ArtifactInfo
	docs     []storedDocument
}

// Open loads the artifact at path. A missing or unreadable artifact is fatal
// for the caller: serving without an index is worse than not starting.
func Open(path string, embedder ports.Embedder) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("index artifact %s: %w", path, err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open index artifact %s: %w", path, err)
	}
	defer db.Close()

	store := &Store{embedder: embedder}
	err = db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return fmt.Errorf("artifact has no meta bucket")
		}
		if err := json.Unmarshal(meta.Get(keyInfo), &store.info); err != nil {
			return fmt.Errorf("decode artifact info: %w", err)
		}

		docs := tx.Bucket(bucketDocuments)
		if docs == nil {
			return fmt.Errorf("artifact has no documents bucket")
		}
		return docs.ForEach(func(_, value []byte) error {
			var doc storedDocument
			if err := json.Unmarshal(value, &doc); err != nil {
				return fmt.Errorf("decode stored document: %w", err)
			}
			store.docs = append(store.docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read index artifact %s: %w", path, err)
	}
	if len(store.docs) == 0 {
		return nil, fmt.Errorf("index artifact %s holds no documents", path)
	}
	return store, nil
}

func (s *Store) Info() ArtifactInfo { return s.info }

func (s *Store) TopK(ctx context.Context, query string, k int) ([]domain.RetrievalCandidate, error) {
	hits, err := s.search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	for i := range hits {
		hits[i].Score = 0
	}
	return hits, nil
}

func (s *Store) TopKWithScore(ctx context.Context, query string, k int) ([]domain.RetrievalCandidate, error) {
	return s.search(ctx, query, k)
}

func (s *Store) search(ctx context.Context, query string, k int) ([]domain.RetrievalCandidate, error) {
	if k <= 0 {
		k = 5
	}

	queryVec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalCall, "embed query", err)
	}
	if len(queryVec) != s.info.Dimension {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "vector search",
			fmt.Errorf("query dimension %d does not match artifact dimension %d", len(queryVec), s.info.Dimension))
	}

	hits := make([]domain.RetrievalCandidate, 0, len(s.docs))
	for _, doc := range s.docs {
		hits = append(hits, domain.RetrievalCandidate{
			Content:  doc.Content,
			Metadata: doc.Metadata,
			Score:    cosine(queryVec, doc.Vector),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Metadata.Row < hits[j].Metadata.Row
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// cosine similarity in [-1, 1]; zero for degenerate vectors.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
