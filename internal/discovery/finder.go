// Package discovery gathers candidate purchase offers for a product query.
package discovery

import (
	"context"

	"github.com/sells-group/dealscout/internal/model"
)

// Finder returns candidate offers for a product name. Implementations must
// respect ctx cancellation; the orchestrator bounds every call with a
// deadline.
type Finder interface {
	FetchOffers(ctx context.Context, product string) ([]model.Offer, error)
}

// FinderFunc adapts a function to the Finder interface.
type FinderFunc func(ctx context.Context, product string) ([]model.Offer, error)

// FetchOffers calls f.
func (f FinderFunc) FetchOffers(ctx context.Context, product string) ([]model.Offer, error) {
	return f(ctx, product)
}

// StaticFinder returns a fixed set of demo offers regardless of product.
// It backs the `ask` command when no marketplace sources are configured.
type StaticFinder struct{}

// FetchOffers returns the built-in demo offers.
func (StaticFinder) FetchOffers(ctx context.Context, product string) ([]model.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []model.Offer{
		{
			Store:         "Store A",
			BasePrice:     100,
			Shipping:      10,
			Tax:           5,
			Rating:        4.6,
			Reviews:       1200,
			StoreAgeYears: 5,
			ReturnPolicy:  true,
		},
		{
			Store:         "Store B",
			BasePrice:     85,
			Shipping:      25,
			Tax:           8,
			Rating:        3.8,
			Reviews:       300,
			StoreAgeYears: 1,
			ReturnPolicy:  false,
		},
	}, nil
}
