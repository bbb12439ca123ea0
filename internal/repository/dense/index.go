// Package dense implements an in-memory vector index with brute-force
// cosine scoring. It stands in for the dense-retriever boundary: stored and
// query vectors are unit-normalized, so inner product equals cosine
// similarity. Unlike the sparse index, additions are incremental.
package dense

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/reelrank/reelrank/internal/domain"
)

// Index is a flat inner-product vector index.
type Index struct {
	dimensions int

	mu      sync.RWMutex
	movies  []*domain.Movie
	vectors [][]float32
	byID    map[string]int
}

// New creates an empty index for vectors of the given dimensionality.
func New(dimensions int) *Index {
	return &Index{
		dimensions: dimensions,
		byID:       make(map[string]int),
	}
}

// Add stores a movie with its embedding. The vector is normalized on the
// way in. Re-adding an existing id replaces its vector.
func (idx *Index) Add(m *domain.Movie, vector []float32) error {
	if m == nil || m.ID == "" {
		return domain.ErrInvalidMovie
	}
	if len(vector) != idx.dimensions {
		return fmt.Errorf("vector len %d for movie %s: %w", len(vector), m.ID, domain.ErrVectorDimMismatch)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	domain.Normalize(vec)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if i, ok := idx.byID[m.ID]; ok {
		idx.movies[i] = m
		idx.vectors[i] = vec
		return nil
	}
	idx.byID[m.ID] = len(idx.movies)
	idx.movies = append(idx.movies, m)
	idx.vectors = append(idx.vectors, vec)
	return nil
}

// Contains reports whether the movie id is already indexed.
func (idx *Index) Contains(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.byID[id]
	return ok
}

// Size returns the number of indexed vectors.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.movies)
}

// Vector returns the stored unit vector for a movie id.
func (idx *Index) Vector(id string) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	i, ok := idx.byID[id]
	if !ok {
		return nil, false
	}
	return idx.vectors[i], true
}

// Search scans all vectors and returns the k nearest by cosine similarity,
// descending. The query vector is normalized before scoring.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("query len %d: %w", len(query), domain.ErrVectorDimMismatch)
	}
	if k <= 0 {
		return nil, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	domain.Normalize(q)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]domain.Candidate, 0, len(idx.movies))
	for i, m := range idx.movies {
		sim := domain.Cosine(q, idx.vectors[i])
		results = append(results, domain.Candidate{Movie: m, Score: sim, DenseScore: sim})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
