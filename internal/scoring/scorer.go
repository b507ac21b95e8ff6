// Package scoring computes and ranks offer scores.
//
// The score is a fixed linear blend of three bounded sub-scores:
//
//	final_price = base_price + shipping + tax
//	price_score = max(0, 100 - final_price)
//	trust_score = rating * 20
//	age_score   = min(store_age * 10, 50)
//	score       = round(price_score*0.4 + trust_score*0.4 + age_score*0.2, 2)
//
// Every sub-score floors at zero and the weights sum to 1.0, so the final
// score is never negative. The age contribution is capped so very old stores
// cannot dominate the blend.
package scoring

import (
	"math"

	"github.com/sells-group/dealscout/internal/model"
)

const (
	priceWeight = 0.4
	trustWeight = 0.4
	ageWeight   = 0.2

	priceBaseline = 100
	ratingScale   = 20
	agePerYear    = 10
	ageCap        = 50
)

// Score computes the ScoredOffer for a single offer. It is pure and
// idempotent: the same offer always yields the same result. Malformed
// numeric fields return a *model.ValidationError.
func Score(o model.Offer) (model.ScoredOffer, error) {
	if err := o.Validate(); err != nil {
		return model.ScoredOffer{}, err
	}

	finalPrice := o.BasePrice + o.Shipping + o.Tax
	priceScore := math.Max(0, priceBaseline-finalPrice)
	trustScore := o.Rating * ratingScale
	ageScore := math.Min(o.StoreAgeYears*agePerYear, ageCap)

	total := priceScore*priceWeight + trustScore*trustWeight + ageScore*ageWeight

	return model.NewScored(o, finalPrice, round2(total)), nil
}

// round2 rounds to 2 decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
