package domain

// Candidate is a movie paired with a stage-local score. Score semantics
// differ per pipeline stage (raw BM25, cosine similarity, fused RRF score,
// composite score); callers must not compare scores across stages.
type Candidate struct {
	Movie *Movie
	Score float64

	// Per-source raw scores survive fusion for diagnostics only.
	SparseScore float64
	DenseScore  float64
}

// NewCandidate creates a candidate for the given movie and stage score.
func NewCandidate(m *Movie, score float64) Candidate {
	return Candidate{Movie: m, Score: score}
}

// ID returns the movie identifier, or "" when the record is missing one.
func (c *Candidate) ID() string {
	if c.Movie == nil {
		return ""
	}
	return c.Movie.ID
}
