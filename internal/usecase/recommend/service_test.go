package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
)

// --- Mocks ---

type mockSparse struct {
	hits []domain.Candidate
}

func (m *mockSparse) Search(_ string, k int) []domain.Candidate {
	if len(m.hits) > k {
		return m.hits[:k]
	}
	return m.hits
}

type mockDense struct {
	hits []domain.Candidate
	err  error
}

func (m *mockDense) Search(_ context.Context, _ []float32, k int) ([]domain.Candidate, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.hits) > k {
		return m.hits[:k], nil
	}
	return m.hits, nil
}

type mockEmbedder struct {
	embedErr error
	batchErr error
	vecs     map[string][]float32 // per-text vectors; fallback is axis 0
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedErr != nil {
		return domain.EmbeddingResult{}, m.embedErr
	}
	return domain.EmbeddingResult{Embedding: m.vec(text)}, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vec(t)
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

func (m *mockEmbedder) vec(text string) []float32 {
	if v, ok := m.vecs[text]; ok {
		return v
	}
	return []float32{1, 0, 0}
}

func newTestService(sparse *mockSparse, dense *mockDense, embed *mockEmbedder) *Service {
	ranker := NewRanker(DefaultWeights()).WithClock(func() time.Time { return testNow })
	return New(sparse, dense, embed, ranker, zap.NewNop())
}

func movie(id, title string) *domain.Movie {
	return &domain.Movie{ID: id, Title: title, VoteAverage: 7, Popularity: 50}
}

// --- Tests ---

func TestService_Recommend_BothSourcesEmpty(t *testing.T) {
	svc := newTestService(&mockSparse{}, &mockDense{}, &mockEmbedder{})

	got, err := svc.Recommend(context.Background(), "no such movie", nil, 5)
	if err != nil {
		t.Fatalf("both-empty must not error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d results, want 0", len(got))
	}
}

func TestService_Recommend_HappyPath(t *testing.T) {
	sparse := &mockSparse{hits: []domain.Candidate{
		domain.NewCandidate(movie("1", "The Matrix"), 6.2),
		domain.NewCandidate(movie("2", "Heat"), 2.1),
	}}
	dense := &mockDense{hits: []domain.Candidate{
		domain.NewCandidate(movie("1", "The Matrix"), 0.91),
		domain.NewCandidate(movie("3", "Blade Runner"), 0.77),
	}}
	svc := newTestService(sparse, dense, &mockEmbedder{})

	got, err := svc.Recommend(context.Background(), "matrix", nil, 3)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	// Movie 1 appears in both lists: highest fused relevance, and every other
	// signal is identical across the mocks, so it must rank first.
	if got[0].ID() != "1" {
		t.Errorf("top = %s, want 1", got[0].ID())
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("not descending at %d", i)
		}
	}
}

func TestService_Recommend_EmbedFailureDegradesToSparse(t *testing.T) {
	sparse := &mockSparse{hits: []domain.Candidate{
		domain.NewCandidate(movie("1", "The Matrix"), 6.2),
	}}
	dense := &mockDense{hits: []domain.Candidate{
		domain.NewCandidate(movie("3", "Blade Runner"), 0.77),
	}}
	embed := &mockEmbedder{embedErr: errors.New("provider down")}
	svc := newTestService(sparse, dense, embed)

	got, err := svc.Recommend(context.Background(), "matrix", nil, 5)
	if err != nil {
		t.Fatalf("degraded request must not error: %v", err)
	}
	if len(got) != 1 || got[0].ID() != "1" {
		t.Errorf("results = %v, want sparse-only [1]", idsOf(got))
	}
}

func TestService_Recommend_DenseFailureDegradesToSparse(t *testing.T) {
	sparse := &mockSparse{hits: []domain.Candidate{
		domain.NewCandidate(movie("1", "The Matrix"), 6.2),
	}}
	dense := &mockDense{err: errors.New("index down")}
	svc := newTestService(sparse, dense, &mockEmbedder{})

	got, err := svc.Recommend(context.Background(), "matrix", nil, 5)
	if err != nil {
		t.Fatalf("degraded request must not error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
}

func TestService_Recommend_MMRBatchFailureFallsBackToRelevance(t *testing.T) {
	var hits []domain.Candidate
	for i := 0; i < 6; i++ {
		hits = append(hits, domain.NewCandidate(movie(string(rune('1'+i)), "Movie"), float64(6-i)))
	}
	sparse := &mockSparse{hits: hits}
	embed := &mockEmbedder{batchErr: errors.New("provider down")}
	svc := newTestService(sparse, &mockDense{}, embed)

	got, err := svc.Recommend(context.Background(), "movie", nil, 3)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want relevance-ordered top 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("fallback not in relevance order at %d", i)
		}
	}
}

func TestService_Recommend_GenreFilterBiasesRanking(t *testing.T) {
	action := movie("1", "Movie A")
	action.Genres = []string{"action"}
	romance := movie("2", "Movie B")
	romance.Genres = []string{"romance"}

	sparse := &mockSparse{hits: []domain.Candidate{
		domain.NewCandidate(romance, 3.0),
		domain.NewCandidate(action, 2.9),
	}}
	svc := newTestService(sparse, &mockDense{}, &mockEmbedder{})

	got, err := svc.Recommend(context.Background(), "movie", []string{"action"}, 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if got[0].ID() != "1" {
		t.Errorf("top = %s, want genre-matching 1", got[0].ID())
	}
}

func TestService_Recommend_DefaultK(t *testing.T) {
	var hits []domain.Candidate
	for i := 0; i < 30; i++ {
		hits = append(hits, domain.NewCandidate(movie(string(rune('A'+i)), "Movie"), float64(30-i)))
	}
	svc := newTestService(&mockSparse{hits: hits}, &mockDense{}, &mockEmbedder{})

	got, err := svc.Recommend(context.Background(), "movie", nil, 0)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != defaultTopK {
		t.Errorf("got %d results, want default %d", len(got), defaultTopK)
	}
}

func TestService_WithGenreCap(t *testing.T) {
	mk := func(id string, genre string, score float64) domain.Candidate {
		m := movie(id, "Movie "+id)
		m.Genres = []string{genre}
		return domain.NewCandidate(m, score)
	}
	sparse := &mockSparse{hits: []domain.Candidate{
		mk("1", "action", 5), mk("2", "action", 4), mk("3", "action", 3), mk("4", "drama", 2),
	}}
	svc := newTestService(sparse, &mockDense{}, &mockEmbedder{}).WithGenreCap(1)

	got, err := svc.Recommend(context.Background(), "movie", nil, 4)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %v, want one per genre", idsOf(got))
	}
}

func idsOf(cands []domain.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ID()
	}
	return out
}
