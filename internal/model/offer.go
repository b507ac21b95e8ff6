// Package model defines the core data shapes shared across the pipeline.
package model

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Offer is a raw candidate purchase record returned by a discovery source.
// Offers are immutable once produced; scoring derives new values instead of
// mutating them.
type Offer struct {
	Store         string  `json:"store"`
	BasePrice     float64 `json:"base_price"`
	Shipping      float64 `json:"shipping"`
	Tax           float64 `json:"tax"`
	Rating        float64 `json:"rating"`
	Reviews       int     `json:"reviews"`
	StoreAgeYears float64 `json:"store_age"`
	ReturnPolicy  bool    `json:"return_policy"`
}

// ValidationError reports a malformed offer or malformed summarizer input.
// It indicates a caller bug and is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// Validate checks that all numeric fields are well-formed: money fields
// non-negative, rating within [0,5], counts non-negative, no NaN/Inf.
func (o Offer) Validate() error {
	money := map[string]float64{
		"base_price": o.BasePrice,
		"shipping":   o.Shipping,
		"tax":        o.Tax,
	}
	for field, v := range money {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Field: field, Reason: "is not a finite number"}
		}
		if v < 0 {
			return &ValidationError{Field: field, Reason: "is negative"}
		}
	}
	if math.IsNaN(o.Rating) || o.Rating < 0 || o.Rating > 5 {
		return &ValidationError{Field: "rating", Reason: "must be in [0,5]"}
	}
	if o.Reviews < 0 {
		return &ValidationError{Field: "reviews", Reason: "is negative"}
	}
	if math.IsNaN(o.StoreAgeYears) || math.IsInf(o.StoreAgeYears, 0) || o.StoreAgeYears < 0 {
		return &ValidationError{Field: "store_age", Reason: "must be a non-negative number"}
	}
	return nil
}

// ScoredOffer is an Offer augmented with its computed final price and
// ranking score. It is a tagged variant: a valid result carries FinalPrice
// and Score together, while a failed result carries only the original offer
// and the reason scoring did not complete. Downstream code branches on
// Failed explicitly rather than relying on a zero score.
type ScoredOffer struct {
	Offer      Offer   `json:"offer"`
	FinalPrice float64 `json:"final_price"`
	Score      float64 `json:"score"`
	Failed     bool    `json:"failed,omitempty"`
	FailReason string  `json:"fail_reason,omitempty"`
}

// NewScored builds a valid ScoredOffer.
func NewScored(o Offer, finalPrice, score float64) ScoredOffer {
	return ScoredOffer{Offer: o, FinalPrice: finalPrice, Score: score}
}

// NewFailed builds the sentinel variant for an offer whose scoring timed out
// or failed validation. A failed offer ranks with score 0 so a single bad
// record degrades the ranking instead of aborting the request.
func NewFailed(o Offer, reason string) ScoredOffer {
	return ScoredOffer{Offer: o, Failed: true, FailReason: reason}
}

// Request is the ephemeral per-message context of one user query. It is
// created on message receipt, destroyed once a terminal reply is delivered,
// and never shared across requests or users.
type Request struct {
	ID         string    `json:"id"`
	Product    string    `json:"product"`
	Requester  string    `json:"requester,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewRequest builds a Request for a product query.
func NewRequest(product, requester string) Request {
	return Request{
		ID:         uuid.NewString(),
		Product:    product,
		Requester:  requester,
		ReceivedAt: time.Now().UTC(),
	}
}
