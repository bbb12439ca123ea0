package domain

import (
	"strings"
	"testing"
	"time"
)

func TestMovie_Normalize(t *testing.T) {
	m := &Movie{
		ID:        "603",
		Title:     "The Matrix",
		Genres:    []string{" Action", "Science Fiction", "action", ""},
		Keywords:  []string{"simulation ", "simulation", "dystopia"},
		Cast:      []string{"Keanu Reeves", "Laurence Fishburne", "Carrie-Anne Moss", "Hugo Weaving", "Joe Pantoliano", "Gloria Foster"},
		Directors: []string{"Lana Wachowski", "Lilly Wachowski"},
	}
	m.Normalize()

	wantGenres := []string{"action", "science fiction"}
	if len(m.Genres) != len(wantGenres) {
		t.Fatalf("genres = %v, want %v", m.Genres, wantGenres)
	}
	for i, g := range wantGenres {
		if m.Genres[i] != g {
			t.Errorf("genres[%d] = %q, want %q", i, m.Genres[i], g)
		}
	}
	if len(m.Keywords) != 2 {
		t.Errorf("keywords = %v, want deduplicated pair", m.Keywords)
	}
	if len(m.Cast) != 5 {
		t.Errorf("cast len = %d, want 5 (top cast cut)", len(m.Cast))
	}
}

func TestMovie_SearchText(t *testing.T) {
	m := &Movie{
		ID:        "603",
		Title:     "The Matrix",
		Overview:  "A hacker discovers reality is a simulation.",
		Genres:    []string{"action"},
		Keywords:  []string{"simulation"},
		Cast:      []string{"Keanu Reeves"},
		Directors: []string{"Lana Wachowski"},
	}

	text := m.SearchText()
	for _, want := range []string{"The Matrix", "action", "simulation", "Keanu Reeves", "Lana Wachowski", "hacker"} {
		if !strings.Contains(text, want) {
			t.Errorf("search text missing %q: %s", want, text)
		}
	}
}

func TestMovie_SearchText_SparseFields(t *testing.T) {
	m := &Movie{ID: "1", Title: "Solo"}
	if got := m.SearchText(); got != "Solo" {
		t.Errorf("search text = %q, want title only", got)
	}
}

func TestMovie_HasGenre(t *testing.T) {
	m := (&Movie{ID: "1", Genres: []string{"Drama", "Crime"}}).Normalize()
	if !m.HasGenre("Drama") {
		t.Error("expected case-insensitive genre match")
	}
	if m.HasGenre("comedy") {
		t.Error("unexpected genre match")
	}
}

func TestCandidate_ID(t *testing.T) {
	c := NewCandidate(&Movie{ID: "42"}, 0.9)
	if c.ID() != "42" {
		t.Errorf("id = %q, want 42", c.ID())
	}
	empty := Candidate{}
	if empty.ID() != "" {
		t.Errorf("id = %q, want empty", empty.ID())
	}
}

func TestMovie_ReleaseDateZero(t *testing.T) {
	m := Movie{ID: "1"}
	if !m.ReleaseDate.IsZero() {
		t.Error("zero value release date expected")
	}
	m.ReleaseDate = time.Date(1999, 3, 31, 0, 0, 0, 0, time.UTC)
	if m.ReleaseDate.IsZero() {
		t.Error("release date should be set")
	}
}
