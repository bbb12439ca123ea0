package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/reelrank/reelrank/internal/domain"
)

// Weights blends the re-ranking signals. Each weight is non-negative and the
// sum must be 1.0, so the composite stays in [0,1] as long as every signal is
// clamped to [0,1].
type Weights struct {
	Fused      float64 `yaml:"fused"`
	Genre      float64 `yaml:"genre"`
	Rating     float64 `yaml:"rating"`
	Recency    float64 `yaml:"recency"`
	Popularity float64 `yaml:"popularity"`
	Keyword    float64 `yaml:"keyword"`
}

// DefaultWeights returns the standard signal blend.
func DefaultWeights() Weights {
	return Weights{
		Fused:      0.25,
		Genre:      0.20,
		Rating:     0.20,
		Recency:    0.15,
		Popularity: 0.10,
		Keyword:    0.10,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Fused + w.Genre + w.Rating + w.Recency + w.Popularity + w.Keyword
}

// Validate checks that weights are non-negative and sum to 1.0.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Fused, w.Genre, w.Rating, w.Recency, w.Popularity, w.Keyword} {
		if v < 0 {
			return fmt.Errorf("ranking weight must be non-negative, got %f", v)
		}
	}
	if math.Abs(w.Sum()-1.0) > 1e-9 {
		return fmt.Errorf("ranking weights must sum to 1.0, got %f", w.Sum())
	}
	return nil
}

// Breakdown exposes the per-signal values behind a composite score.
type Breakdown struct {
	Fused      float64 `json:"fused"`
	Genre      float64 `json:"genre"`
	Rating     float64 `json:"rating"`
	Recency    float64 `json:"recency"`
	Popularity float64 `json:"popularity"`
	Keyword    float64 `json:"keyword"`
	Composite  float64 `json:"composite"`
}

// stopWords are dropped from the query before keyword matching.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "and": {}, "or": {}, "but": {}, "me": {}, "about": {},
}

// Ranker computes composite relevance scores from heterogeneous signals.
type Ranker struct {
	weights Weights
	now     func() time.Time
}

// NewRanker creates a ranker with the given weights.
func NewRanker(w Weights) *Ranker {
	return &Ranker{weights: w, now: time.Now}
}

// WithClock overrides the time source (recency scoring).
func (r *Ranker) WithClock(now func() time.Time) *Ranker {
	r.now = now
	return r
}

// Rerank scores every candidate, sorts descending by composite and truncates
// to max (max <= 0 means no truncation). The incoming stage score is consumed
// as the fused-relevance signal.
func (r *Ranker) Rerank(candidates []domain.Candidate, query string, queryGenres []string, max int) []domain.Candidate {
	queryWords := contentWords(query)

	out := make([]domain.Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = c
		out[i].Score = r.composite(c, queryWords, queryGenres)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// Explain returns the signal breakdown for one candidate. Diagnostics only;
// Rerank recomputes the same values.
func (r *Ranker) Explain(c domain.Candidate, query string, queryGenres []string) Breakdown {
	words := contentWords(query)
	b := Breakdown{
		Fused:      c.Score,
		Genre:      genreOverlap(c.Movie, queryGenres),
		Rating:     ratingScore(c.Movie),
		Recency:    r.recencyScore(c.Movie),
		Popularity: popularityScore(c.Movie),
		Keyword:    keywordMatchScore(c.Movie, words),
	}
	w := r.weights
	b.Composite = w.Fused*b.Fused + w.Genre*b.Genre + w.Rating*b.Rating +
		w.Recency*b.Recency + w.Popularity*b.Popularity + w.Keyword*b.Keyword
	return b
}

func (r *Ranker) composite(c domain.Candidate, queryWords map[string]struct{}, queryGenres []string) float64 {
	w := r.weights
	return w.Fused*c.Score +
		w.Genre*genreOverlap(c.Movie, queryGenres) +
		w.Rating*ratingScore(c.Movie) +
		w.Recency*r.recencyScore(c.Movie) +
		w.Popularity*popularityScore(c.Movie) +
		w.Keyword*keywordMatchScore(c.Movie, queryWords)
}

// genreOverlap is |movie genres ∩ query genres| / |query genres|.
// An empty query-genre set emits the neutral 0.5 sentinel: absence of the
// signal must not reward or penalize.
func genreOverlap(m *domain.Movie, queryGenres []string) float64 {
	if len(queryGenres) == 0 {
		return 0.5
	}
	if m == nil || len(m.Genres) == 0 {
		return 0
	}
	overlap := 0
	seen := make(map[string]struct{}, len(queryGenres))
	for _, g := range queryGenres {
		g = strings.ToLower(g)
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		if m.HasGenre(g) {
			overlap++
		}
	}
	return clamp01(float64(overlap) / float64(len(seen)))
}

func ratingScore(m *domain.Movie) float64 {
	if m == nil {
		return 0
	}
	return clamp01(m.VoteAverage / 10.0)
}

// recencyScore decays exponentially with age: current year ≈ 1.0, ten years
// ago ≈ 0.37. Movies without a release date score 0.
func (r *Ranker) recencyScore(m *domain.Movie) float64 {
	if m == nil || m.ReleaseDate.IsZero() {
		return 0
	}
	ageYears := r.now().Sub(m.ReleaseDate).Hours() / (24 * 365.25)
	if ageYears < 0 {
		ageYears = 0
	}
	return clamp01(math.Exp(-ageYears / 10.0))
}

// popularityScore is log-normalized: saturates around popularity 1000.
func popularityScore(m *domain.Movie) float64 {
	if m == nil || m.Popularity <= 0 {
		return 0
	}
	return clamp01(math.Log10(m.Popularity+1) / 3.0)
}

// keywordMatchScore rewards query content-words appearing in the title (60%)
// and the overview (40%). Zero content words score 0.
func keywordMatchScore(m *domain.Movie, queryWords map[string]struct{}) float64 {
	if m == nil || len(queryWords) == 0 {
		return 0
	}

	titleWords := wordSet(m.Title)
	overviewWords := wordSet(m.Overview)

	var titleMatches, overviewMatches int
	for w := range queryWords {
		if _, ok := titleWords[w]; ok {
			titleMatches++
		}
		if _, ok := overviewWords[w]; ok {
			overviewMatches++
		}
	}

	n := float64(len(queryWords))
	score := float64(titleMatches)/n*0.6 + float64(overviewMatches)/n*0.4
	return clamp01(score)
}

// contentWords tokenizes the query and removes stop-words.
func contentWords(query string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range tokenize(query) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func wordSet(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range tokenize(text) {
		out[w] = struct{}{}
	}
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
