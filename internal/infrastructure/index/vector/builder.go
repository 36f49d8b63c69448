package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/core/ports"
)

const embedBatchSize = 64

// Build embeds docs and writes a fresh index artifact to path, replacing any
// previous content. The artifact is self-describing; Open validates query
// vectors against the dimension recorded here.
func Build(ctx context.Context, path string, docs []domain.KnowledgeDocument, embedder ports.Embedder, embeddingModel string) error {
	if len(docs) == 0 {
		return fmt.Errorf("build index artifact: no documents")
	}

	vectors, err := embedAll(ctx, embedder, docs)
	if err != nil {
		return err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("open index artifact %s: %w", path, err)
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketDocuments, bucketMeta} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return fmt.Errorf("reset bucket %s: %w", name, err)
				}
			}
		}

		docBucket, err := tx.CreateBucket(bucketDocuments)
		if err != nil {
			return fmt.Errorf("create documents bucket: %w", err)
		}
		for i, doc := range docs {
			value, err := json.Marshal(storedDocument{
				Content:  doc.Content,
				Metadata: doc.Metadata,
				Vector:   vectors[i],
			})
			if err != nil {
				return fmt.Errorf("encode document %d: %w", i, err)
			}
			if err := docBucket.Put(itob(uint64(i)), value); err != nil {
				return fmt.Errorf("store document %d: %w", i, err)
			}
		}

		metaBucket, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		info, err := json.Marshal(ArtifactInfo{
			EmbeddingModel: embeddingModel,
			Dimension:      len(vectors[0]),
			DocumentCount:  len(docs),
			BuiltAt:        time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("encode artifact info: %w", err)
		}
		return metaBucket.Put(keyInfo, info)
	})
}

func embedAll(ctx context.Context, embedder ports.Embedder, docs []domain.KnowledgeDocument) ([][]float32, error) {
	vectors := make([][]float32, 0, len(docs))
	for start := 0; start < len(docs); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		texts := make([]string, 0, end-start)
		for _, doc := range docs[start:end] {
			texts = append(texts, doc.Content)
		}

		batch, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed documents %d..%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embed documents %d..%d: got %d vectors for %d texts", start, end-1, len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
	}

	dim := len(vectors[0])
	for i, vec := range vectors {
		if len(vec) != dim || dim == 0 {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(vec), dim)
		}
	}
	return vectors, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
