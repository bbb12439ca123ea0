package domain

import (
	"strings"
	"time"
)

// topCastSize limits how many cast names feed the searchable text.
const topCastSize = 5

// Movie is a single catalog record. Records are created once by ingestion
// and treated as immutable afterwards; embeddings are cached outside the
// record, keyed by ID.
type Movie struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview,omitempty"`
	Genres      []string  `json:"genres,omitempty"`
	ReleaseDate time.Time `json:"release_date,omitzero"`
	VoteAverage float64   `json:"vote_average,omitempty"`
	VoteCount   int       `json:"vote_count,omitempty"`
	Popularity  float64   `json:"popularity,omitempty"`

	// Keywords, Cast and Directors only contribute to the searchable text.
	Keywords  []string `json:"keywords,omitempty"`
	Cast      []string `json:"cast,omitempty"`
	Directors []string `json:"directors,omitempty"`
}

// Normalize canonicalizes string collections in place: genres are lower-cased,
// trimmed and deduplicated, keywords/cast/directors are trimmed, and cast is
// cut to the top entries. Returns the movie for chaining.
func (m *Movie) Normalize() *Movie {
	m.Genres = normalizeSet(m.Genres, true)
	m.Keywords = normalizeSet(m.Keywords, false)
	m.Cast = normalizeSet(m.Cast, false)
	if len(m.Cast) > topCastSize {
		m.Cast = m.Cast[:topCastSize]
	}
	m.Directors = normalizeSet(m.Directors, false)
	return m
}

// SearchText composes the lexical document for the movie: title, genres,
// keywords, top cast, directors and overview, space-joined.
func (m *Movie) SearchText() string {
	parts := make([]string, 0, 8)
	if m.Title != "" {
		parts = append(parts, m.Title)
	}
	parts = append(parts, m.Genres...)
	parts = append(parts, m.Keywords...)
	cast := m.Cast
	if len(cast) > topCastSize {
		cast = cast[:topCastSize]
	}
	parts = append(parts, cast...)
	parts = append(parts, m.Directors...)
	if m.Overview != "" {
		parts = append(parts, m.Overview)
	}
	return strings.Join(parts, " ")
}

// HasGenre reports whether the movie carries the given genre.
// Comparison is case-insensitive; genres are lower-cased at ingestion.
func (m *Movie) HasGenre(genre string) bool {
	genre = strings.ToLower(genre)
	for _, g := range m.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

func normalizeSet(values []string, lower bool) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
