package dense

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/reelrank/reelrank/internal/domain"
)

func TestIndex_AddAndSearch(t *testing.T) {
	idx := New(2)
	ctx := context.Background()

	movies := []*domain.Movie{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	vectors := [][]float32{{1, 0}, {0.9, 0.1}, {0, 1}}
	for i, m := range movies {
		if err := idx.Add(m, vectors[i]); err != nil {
			t.Fatalf("Add(%s): %v", m.ID, err)
		}
	}

	results, err := idx.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID() != "a" || results[1].ID() != "b" {
		t.Errorf("order = %s,%s, want a,b", results[0].ID(), results[1].ID())
	}
	if math.Abs(results[0].Score-1.0) > 1e-6 {
		t.Errorf("self similarity = %f, want 1", results[0].Score)
	}
	if results[0].DenseScore != results[0].Score {
		t.Errorf("dense diagnostic score mismatch")
	}
}

func TestIndex_Add_NormalizesVectors(t *testing.T) {
	idx := New(2)
	if err := idx.Add(&domain.Movie{ID: "a"}, []float32{3, 4}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	vec, ok := idx.Vector("a")
	if !ok {
		t.Fatal("vector not stored")
	}
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("stored vector not unit length: %f", sum)
	}
}

func TestIndex_Add_Replace(t *testing.T) {
	idx := New(2)
	m := &domain.Movie{ID: "a"}
	_ = idx.Add(m, []float32{1, 0})
	_ = idx.Add(m, []float32{0, 1})
	if idx.Size() != 1 {
		t.Fatalf("size = %d, want 1", idx.Size())
	}
	vec, _ := idx.Vector("a")
	if vec[1] != 1 {
		t.Errorf("vector not replaced: %v", vec)
	}
}

func TestIndex_Add_Invalid(t *testing.T) {
	idx := New(2)
	if err := idx.Add(&domain.Movie{}, []float32{1, 0}); !errors.Is(err, domain.ErrInvalidMovie) {
		t.Errorf("missing id error = %v, want ErrInvalidMovie", err)
	}
	if err := idx.Add(&domain.Movie{ID: "a"}, []float32{1, 0, 0}); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("dim error = %v, want ErrVectorDimMismatch", err)
	}
}

func TestIndex_Search_Empty(t *testing.T) {
	idx := New(2)
	results, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("empty index returned %d results", len(results))
	}
}

func TestIndex_Search_CanceledContext(t *testing.T) {
	idx := New(2)
	_ = idx.Add(&domain.Movie{ID: "a"}, []float32{1, 0})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.Search(ctx, []float32{1, 0}, 5); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestIndex_Contains(t *testing.T) {
	idx := New(2)
	_ = idx.Add(&domain.Movie{ID: "a"}, []float32{1, 0})
	if !idx.Contains("a") {
		t.Error("expected Contains(a)")
	}
	if idx.Contains("b") {
		t.Error("unexpected Contains(b)")
	}
}
