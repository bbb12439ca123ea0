// Package ingest loads catalog records into both retrieval indexes.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
)

// Result reports one batch ingestion outcome.
type Result struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// Service normalizes, embeds and indexes movie batches.
type Service struct {
	sparse SparseWriter
	dense  DenseWriter
	embed  Embedder
	logger *zap.Logger
}

// New creates an ingestion service.
func New(sparse SparseWriter, dense DenseWriter, embed Embedder, logger *zap.Logger) *Service {
	return &Service{sparse: sparse, dense: dense, embed: embed, logger: logger}
}

// AddMovies appends a batch to both indexes. Records without an id are
// skipped and counted, not fatal. Movies already present in the dense index
// are skipped as duplicates. The sparse index rebuilds once per batch.
func (s *Service) AddMovies(ctx context.Context, movies []*domain.Movie) (Result, error) {
	accepted, skipped := s.normalize(movies, true)
	if len(accepted) == 0 {
		return Result{Skipped: skipped}, nil
	}

	if err := s.indexDense(ctx, accepted); err != nil {
		return Result{Skipped: skipped}, err
	}

	s.sparse.Add(accepted)
	s.logger.Info("Ingested movie batch",
		zap.Int("added", len(accepted)),
		zap.Int("skipped", skipped),
	)
	return Result{Added: len(accepted), Skipped: skipped}, nil
}

// BuildIndex replaces the sparse corpus with the given movies and fills the
// dense index. Used for initial catalog load.
func (s *Service) BuildIndex(ctx context.Context, movies []*domain.Movie) (Result, error) {
	accepted, skipped := s.normalize(movies, false)

	if err := s.indexDense(ctx, accepted); err != nil {
		return Result{Skipped: skipped}, err
	}

	s.sparse.BuildIndex(accepted)
	s.logger.Info("Built catalog indexes",
		zap.Int("movies", len(accepted)),
		zap.Int("skipped", skipped),
	)
	return Result{Added: len(accepted), Skipped: skipped}, nil
}

// normalize validates and canonicalizes records. dedupe additionally drops
// movies already present in the dense index.
func (s *Service) normalize(movies []*domain.Movie, dedupe bool) (accepted []*domain.Movie, skipped int) {
	for _, m := range movies {
		if m == nil || m.ID == "" {
			s.logger.Warn("Skipping movie without id")
			skipped++
			continue
		}
		if dedupe && s.dense.Contains(m.ID) {
			skipped++
			continue
		}
		accepted = append(accepted, m.Normalize())
	}
	return accepted, skipped
}

// indexDense embeds all movie texts in one call and adds them to the vector
// index.
func (s *Service) indexDense(ctx context.Context, movies []*domain.Movie) error {
	if len(movies) == 0 {
		return nil
	}

	texts := make([]string, len(movies))
	for i, m := range movies {
		texts[i] = m.SearchText()
	}

	res, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed movie batch: %w", err)
	}
	if len(res.Embeddings) != len(movies) {
		return fmt.Errorf("embedding count %d for %d movies: %w",
			len(res.Embeddings), len(movies), domain.ErrEmbeddingProviderError)
	}

	for i, m := range movies {
		if err := s.dense.Add(m, res.Embeddings[i]); err != nil {
			return fmt.Errorf("index movie %s: %w", m.ID, err)
		}
	}
	return nil
}
