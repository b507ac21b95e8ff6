package scoring

import (
	"sort"

	"github.com/sells-group/dealscout/internal/model"
)

// Rank orders scored offers by score, highest first. The sort is stable:
// offers with equal scores keep their discovery order, which is the only
// tie-break policy (no explicit rule exists upstream). The input slice is
// not mutated.
func Rank(scored []model.ScoredOffer) []model.ScoredOffer {
	ranked := make([]model.ScoredOffer, len(scored))
	copy(ranked, scored)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}

// Top returns the first k entries of a ranked slice, or the whole slice if
// it is shorter than k.
func Top(ranked []model.ScoredOffer, k int) []model.ScoredOffer {
	if k < 0 {
		k = 0
	}
	if len(ranked) <= k {
		return ranked
	}
	return ranked[:k]
}
