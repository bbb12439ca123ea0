// Package sparse implements an in-memory BM25 index over movie text.
//
// The index state lives in an immutable snapshot behind an atomic pointer:
// rebuilds produce a fresh snapshot and swap it in, so readers never observe
// partially recomputed statistics. Corpus statistics are global; any corpus
// change triggers a full recompute (ingestion is batch, not per-query).
package sparse

import (
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/reelrank/reelrank/internal/domain"
)

// BM25 parameters (Okapi defaults).
const (
	defaultK1 = 1.5
	defaultB  = 0.75
)

// Index is a BM25 lexical index with copy-on-write rebuild semantics.
type Index struct {
	k1 float64
	b  float64

	mu   sync.Mutex // serializes writers; readers go through snap only
	snap atomic.Pointer[snapshot]
}

// snapshot holds one immutable generation of corpus statistics.
type snapshot struct {
	movies []*domain.Movie
	freqs  []map[string]int // term frequency per document
	docLen []float64
	avgdl  float64
	idf    map[string]float64
}

// New creates an empty index with default BM25 parameters.
func New() *Index {
	return NewWithParams(defaultK1, defaultB)
}

// NewWithParams creates an empty index with explicit k1 and b.
func NewWithParams(k1, b float64) *Index {
	idx := &Index{k1: k1, b: b}
	idx.snap.Store(buildSnapshot(nil))
	return idx
}

// BuildIndex replaces the corpus with the given movies.
func (idx *Index) BuildIndex(movies []*domain.Movie) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.snap.Store(buildSnapshot(movies))
}

// Add appends movies to the corpus and rebuilds statistics in full.
// O(corpus size); in-flight searches keep reading the previous snapshot.
func (idx *Index) Add(movies []*domain.Movie) {
	if len(movies) == 0 {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	cur := idx.snap.Load()
	merged := make([]*domain.Movie, 0, len(cur.movies)+len(movies))
	merged = append(merged, cur.movies...)
	merged = append(merged, movies...)
	idx.snap.Store(buildSnapshot(merged))
}

// Size returns the number of indexed movies.
func (idx *Index) Size() int {
	return len(idx.snap.Load().movies)
}

// Search scores every document against the query and returns up to k
// candidates with strictly positive BM25 score, descending. Ties keep the
// original insertion order. An empty corpus or an empty query yields an
// empty result.
func (idx *Index) Search(query string, k int) []domain.Candidate {
	snap := idx.snap.Load()
	terms := Tokenize(query)
	if len(snap.movies) == 0 || len(terms) == 0 || k <= 0 {
		return nil
	}

	scored := make([]domain.Candidate, 0, len(snap.movies))
	for i, m := range snap.movies {
		score := snap.score(terms, i, idx.k1, idx.b)
		if score > 0 {
			scored = append(scored, domain.Candidate{Movie: m, Score: score, SparseScore: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// score computes the BM25 score of document i for the query terms.
func (s *snapshot) score(terms []string, i int, k1, b float64) float64 {
	var score float64
	freq := s.freqs[i]
	norm := k1 * (1 - b + b*s.docLen[i]/s.avgdl)
	for _, t := range terms {
		tf := float64(freq[t])
		if tf == 0 {
			continue
		}
		score += s.idf[t] * tf * (k1 + 1) / (tf + norm)
	}
	return score
}

// buildSnapshot tokenizes every movie and computes global statistics.
func buildSnapshot(movies []*domain.Movie) *snapshot {
	s := &snapshot{
		movies: movies,
		freqs:  make([]map[string]int, len(movies)),
		docLen: make([]float64, len(movies)),
		idf:    make(map[string]float64),
	}

	df := make(map[string]int)
	var totalLen float64
	for i, m := range movies {
		tokens := Tokenize(m.SearchText())
		freq := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freq[t]++
		}
		for t := range freq {
			df[t]++
		}
		s.freqs[i] = freq
		s.docLen[i] = float64(len(tokens))
		totalLen += float64(len(tokens))
	}

	if len(movies) > 0 {
		s.avgdl = totalLen / float64(len(movies))
	} else {
		s.avgdl = 1
	}

	// Lucene-style IDF: positive by construction, so the "score > 0" cut in
	// Search needs no epsilon handling for very common terms.
	n := float64(len(movies))
	for t, d := range df {
		s.idf[t] = math.Log(1 + (n-float64(d)+0.5)/(float64(d)+0.5))
	}
	return s
}

// Tokenize lower-cases text and splits it on non-alphanumeric runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
