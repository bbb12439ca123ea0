// Package recommend implements the hybrid retrieval, re-ranking and
// diversity-selection pipeline: BM25 + vector search fused by Reciprocal
// Rank Fusion, a weighted composite re-ranker, and Maximal Marginal
// Relevance top-K selection.
package recommend

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/metrics"
)

const (
	defaultTopK            = 10
	defaultFetchMultiplier = 2
)

// Service orchestrates one recommendation request. The pipeline after
// retrieval is pure and CPU-bound over tens of candidates, so concurrent
// requests need no locking; only embed/dense calls suspend.
type Service struct {
	sparse SparseSearcher
	dense  DenseSearcher
	embed  Embedder
	ranker *Ranker
	logger *zap.Logger

	rrfK        int
	lambda      float64
	fetchMult   int
	maxPerGenre int // 0 disables the genre-cap filter
}

// New creates a recommendation service with default tuning.
func New(sparse SparseSearcher, dense DenseSearcher, embed Embedder, ranker *Ranker, logger *zap.Logger) *Service {
	return &Service{
		sparse:    sparse,
		dense:     dense,
		embed:     embed,
		ranker:    ranker,
		logger:    logger,
		rrfK:      defaultRRFK,
		lambda:    defaultLambda,
		fetchMult: defaultFetchMultiplier,
	}
}

// WithTuning overrides fusion and diversity parameters. Zero values keep the
// defaults.
func (s *Service) WithTuning(rrfK int, lambda float64, fetchMultiplier int) *Service {
	if rrfK > 0 {
		s.rrfK = rrfK
	}
	if lambda > 0 {
		s.lambda = lambda
	}
	if fetchMultiplier > 0 {
		s.fetchMult = fetchMultiplier
	}
	return s
}

// WithGenreCap enables the greedy genre-cap filter between re-ranking and
// MMR selection.
func (s *Service) WithGenreCap(maxPerGenre int) *Service {
	s.maxPerGenre = maxPerGenre
	return s
}

// Recommend runs the full pipeline for a free-text query with an optional
// genre constraint and returns up to k candidates scored by composite
// relevance. An unavailable or empty retrieval source contributes an empty
// list; both empty is a normal "no matches" outcome, not an error.
func (s *Service) Recommend(ctx context.Context, query string, genres []string, k int) ([]domain.Candidate, error) {
	if k <= 0 {
		k = defaultTopK
	}
	fetchK := k * s.fetchMult
	degraded := false

	start := time.Now()
	sparseHits := s.sparse.Search(query, fetchK)
	observeStage("sparse", start, len(sparseHits))

	start = time.Now()
	denseHits := s.searchDense(ctx, query, fetchK, &degraded)
	observeStage("dense", start, len(denseHits))

	if len(sparseHits) == 0 && len(denseHits) == 0 {
		metrics.RecommendRequestsTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}

	start = time.Now()
	fused := fuseRRF(sparseHits, denseHits, s.rrfK, s.logger)
	observeStage("fuse", start, len(fused))

	start = time.Now()
	reranked := s.ranker.Rerank(fused, query, genres, fetchK)
	observeStage("rerank", start, len(reranked))

	if s.maxPerGenre > 0 {
		reranked = filterGenreCap(reranked, s.maxPerGenre)
	}

	start = time.Now()
	selected := s.selectDiverse(ctx, reranked, k, &degraded)
	observeStage("mmr", start, len(selected))

	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	metrics.RecommendRequestsTotal.WithLabelValues(outcome).Inc()

	s.logger.Debug("Recommendation pipeline complete",
		zap.String("query", query),
		zap.Int("sparse", len(sparseHits)),
		zap.Int("dense", len(denseHits)),
		zap.Int("fused", len(fused)),
		zap.Int("selected", len(selected)),
		zap.Bool("degraded", degraded),
	)
	return selected, nil
}

// searchDense embeds the query and runs vector search. Any failure degrades
// the request to sparse-only retrieval.
func (s *Service) searchDense(ctx context.Context, query string, k int, degraded *bool) []domain.Candidate {
	if s.dense == nil || s.embed == nil {
		return nil
	}

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("Query embedding failed, continuing sparse-only", zap.Error(err))
		*degraded = true
		return nil
	}

	hits, err := s.dense.Search(ctx, domain.Normalize(emb.Embedding), k)
	if err != nil {
		s.logger.Warn("Dense search failed, continuing sparse-only", zap.Error(err))
		*degraded = true
		return nil
	}
	return hits
}

// selectDiverse applies MMR over lazily obtained candidate embeddings.
// A failed batch embedding falls back to relevance-only ordering.
func (s *Service) selectDiverse(ctx context.Context, candidates []domain.Candidate, k int, degraded *bool) []domain.Candidate {
	if len(candidates) <= k {
		return candidates
	}
	if s.embed == nil {
		return candidates[:k]
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Movie.SearchText()
	}

	res, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		s.logger.Warn("Candidate embedding failed, diversity selection degraded to relevance order", zap.Error(err))
		*degraded = true
		return candidates[:k]
	}

	vectors := make(map[string][]float32, len(candidates))
	for i, c := range candidates {
		if i < len(res.Embeddings) && len(res.Embeddings[i]) > 0 {
			vectors[c.ID()] = domain.Normalize(res.Embeddings[i])
		}
	}

	return selectMMR(candidates, k, s.lambda, vectors)
}

func observeStage(stage string, start time.Time, count int) {
	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	metrics.PipelineCandidates.WithLabelValues(stage).Observe(float64(count))
}
