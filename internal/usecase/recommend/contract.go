package recommend

import (
	"context"

	"github.com/reelrank/reelrank/internal/domain"
)

// SparseSearcher is the lexical retrieval contract. The index is in-memory
// and lock-free for readers, so the call takes no context.
type SparseSearcher interface {
	Search(query string, k int) []domain.Candidate
}

// DenseSearcher is the vector retrieval boundary. This is a true suspension
// point: implementations may call a remote index, so timeouts and
// cancellation apply here.
type DenseSearcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]domain.Candidate, error)
}

// Embedder vectorizes the query and, during diversity selection, candidate
// texts in one batched call.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
