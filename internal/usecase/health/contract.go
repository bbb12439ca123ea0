package health

import "context"

// CachePinger checks the shared embedding cache store availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexSizer reports how many movies an index holds.
type IndexSizer interface {
	Size() int
}
