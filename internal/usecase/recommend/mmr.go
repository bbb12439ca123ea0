package recommend

import (
	"math"

	"github.com/reelrank/reelrank/internal/domain"
)

// defaultLambda balances relevance against novelty. λ=1 degenerates to pure
// relevance order, λ=0 to pure novelty.
const defaultLambda = 0.7

// selectMMR picks up to k candidates by Maximal Marginal Relevance:
//
//	mmr = λ·relevance − (1−λ)·maxSimilarityToSelected
//
// candidates must arrive in descending composite order; relevance is the
// composite score. vectors maps candidate id to a unit-normalized embedding;
// candidates without a vector are dropped from selection; whole-batch
// embedding failures are handled by the caller. Ties resolve to the earlier
// candidate, i.e. original composite order.
func selectMMR(candidates []domain.Candidate, k int, lambda float64, vectors map[string][]float32) []domain.Candidate {
	if len(candidates) <= k {
		return candidates
	}
	if lambda < 0 {
		lambda = 0
	} else if lambda > 1 {
		lambda = 1
	}

	remaining := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := vectors[c.ID()]; ok {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		return nil
	}

	selected := make([]domain.Candidate, 0, k)

	// Highest composite is selected unconditionally.
	selected = append(selected, remaining[0])
	remaining = remaining[1:]

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestScore := 0.0

		for i, cand := range remaining {
			// Cosine ranges over [-1,1]; anti-similar candidates earn a
			// novelty bonus, so the max must not start at zero.
			maxSim := math.Inf(-1)
			for _, sel := range selected {
				sim := domain.Cosine(vectors[cand.ID()], vectors[sel.ID()])
				if sim > maxSim {
					maxSim = sim
				}
			}

			score := lambda*cand.Score - (1-lambda)*maxSim
			// Strict > keeps the earlier (higher-composite) candidate on ties.
			if bestIdx < 0 || score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// filterGenreCap greedily drops candidates once any of their genres already
// has maxPerGenre picks, preserving input order. A cheaper diversity
// alternative to MMR when embeddings are unavailable.
func filterGenreCap(candidates []domain.Candidate, maxPerGenre int) []domain.Candidate {
	if maxPerGenre <= 0 {
		return candidates
	}

	counts := make(map[string]int)
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Movie == nil {
			continue
		}
		over := false
		for _, g := range c.Movie.Genres {
			if counts[g] >= maxPerGenre {
				over = true
				break
			}
		}
		if over {
			continue
		}
		out = append(out, c)
		for _, g := range c.Movie.Genres {
			counts[g]++
		}
	}
	return out
}
