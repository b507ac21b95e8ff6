package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/dealscout/internal/model"
)

func scored(store string, score float64) model.ScoredOffer {
	return model.NewScored(model.Offer{Store: store}, 0, score)
}

func TestRank_DescendingByScore(t *testing.T) {
	ranked := Rank([]model.ScoredOffer{
		scored("low", 10),
		scored("high", 90),
		scored("mid", 50),
	})

	assert.Equal(t, []string{"high", "mid", "low"}, stores(ranked))
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	ranked := Rank([]model.ScoredOffer{
		scored("first", 50),
		scored("second", 50),
		scored("top", 80),
		scored("third", 50),
	})

	// Equal scores keep discovery order.
	assert.Equal(t, []string{"top", "first", "second", "third"}, stores(ranked))
}

func TestRank_FailedOffersSinkTogether(t *testing.T) {
	ranked := Rank([]model.ScoredOffer{
		model.NewFailed(model.Offer{Store: "bad-a"}, "scoring timed out"),
		scored("good", 12.5),
		model.NewFailed(model.Offer{Store: "bad-b"}, "scoring timed out"),
	})

	assert.Equal(t, []string{"good", "bad-a", "bad-b"}, stores(ranked))
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := []model.ScoredOffer{scored("a", 1), scored("b", 99)}
	_ = Rank(in)
	assert.Equal(t, []string{"a", "b"}, stores(in))
}

func TestTop(t *testing.T) {
	ranked := []model.ScoredOffer{scored("a", 3), scored("b", 2), scored("c", 1)}

	assert.Len(t, Top(ranked, 2), 2)
	assert.Len(t, Top(ranked, 3), 3)
	assert.Len(t, Top(ranked, 10), 3)
	assert.Empty(t, Top(ranked, 0))
}

func stores(offers []model.ScoredOffer) []string {
	out := make([]string, len(offers))
	for i, s := range offers {
		out[i] = s.Offer.Store
	}
	return out
}
