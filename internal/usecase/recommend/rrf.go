package recommend

import (
	"sort"

	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
)

// defaultRRFK is the Reciprocal Rank Fusion constant (standard value from
// Cormack et al. 2009). It dampens the influence of any single list while
// keeping low ranks non-negligible.
const defaultRRFK = 60

// fuseRRF merges the sparse and dense rankings via Reciprocal Rank Fusion.
// score(d) = sum of 1/(K + rank) over the lists where d appears, rank
// 1-based. Only rank positions matter, never raw score magnitudes, so fusion
// is invariant to any order-preserving rescaling of either input.
//
// Duplicates across lists merge into one record keyed by id; per-source raw
// scores survive on the merged candidate for diagnostics. Candidates without
// an id cannot be deduplicated and are skipped. Ties in fused score resolve
// to sparse-list order (dense-only items follow in dense order).
func fuseRRF(sparse, dense []domain.Candidate, rrfK int, logger *zap.Logger) []domain.Candidate {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	type entry struct {
		cand  domain.Candidate
		score float64
	}

	merged := make(map[string]*entry, len(sparse)+len(dense))
	order := make([]string, 0, len(sparse)+len(dense))

	for rank, c := range sparse {
		id := c.ID()
		if id == "" {
			logger.Warn("Dropping sparse candidate without id before fusion")
			continue
		}
		if _, ok := merged[id]; ok {
			continue
		}
		e := &entry{cand: c, score: 1.0 / float64(rrfK+rank+1)}
		e.cand.SparseScore = c.Score
		merged[id] = e
		order = append(order, id)
	}

	for rank, c := range dense {
		id := c.ID()
		if id == "" {
			logger.Warn("Dropping dense candidate without id before fusion")
			continue
		}
		s := 1.0 / float64(rrfK+rank+1)
		if e, ok := merged[id]; ok {
			e.score += s
			e.cand.DenseScore = c.Score
			continue
		}
		e := &entry{cand: c, score: s}
		e.cand.DenseScore = c.Score
		merged[id] = e
		order = append(order, id)
	}

	out := make([]domain.Candidate, 0, len(order))
	for _, id := range order {
		e := merged[id]
		e.cand.Score = e.score
		out = append(out, e.cand)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
