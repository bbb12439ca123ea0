package ingest

import (
	"context"

	"github.com/reelrank/reelrank/internal/domain"
)

// SparseWriter feeds the lexical index. Add performs a full statistics
// rebuild, so ingestion batches movies and calls it once per batch.
type SparseWriter interface {
	BuildIndex(movies []*domain.Movie)
	Add(movies []*domain.Movie)
}

// DenseWriter feeds the vector index incrementally.
type DenseWriter interface {
	Add(m *domain.Movie, vector []float32) error
	Contains(id string) bool
}

// Embedder vectorizes movie text, one batched call per ingestion batch.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
