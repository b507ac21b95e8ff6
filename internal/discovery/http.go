package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealscout/internal/model"
	"github.com/sells-group/dealscout/internal/resilience"
)

// HTTPFinder queries marketplace JSON endpoints in parallel and merges their
// offers in source order. Each source is guarded by its own circuit breaker
// so a flapping marketplace stops being queried instead of slowing every
// request down. Partial source failure degrades the result; the finder
// errors only when every source fails.
type HTTPFinder struct {
	sources  []Source
	breakers []*resilience.CircuitBreaker
	http     *http.Client
}

// HTTPFinderOption configures an HTTPFinder.
type HTTPFinderOption func(*HTTPFinder)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) HTTPFinderOption {
	return func(f *HTTPFinder) {
		f.http = hc
	}
}

// NewHTTPFinder creates a finder over the given sources.
func NewHTTPFinder(sources []Source, cbCfg resilience.CircuitBreakerConfig, opts ...HTTPFinderOption) *HTTPFinder {
	f := &HTTPFinder{
		sources: sources,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, src := range sources {
		cfg := cbCfg
		cfg.OnStateChange = breakerLogger(src.Name)
		f.breakers = append(f.breakers, resilience.NewCircuitBreaker(cfg))
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchOffers queries all sources concurrently and returns the merged
// offers in source order.
func (f *HTTPFinder) FetchOffers(ctx context.Context, product string) ([]model.Offer, error) {
	if len(f.sources) == 0 {
		return nil, eris.New("discovery: no sources configured")
	}

	var (
		mu        sync.Mutex
		bySource  = make([][]model.Offer, len(f.sources))
		lastErr   error
		succeeded int
	)

	g, gCtx := errgroup.WithContext(ctx)
	for i, src := range f.sources {
		g.Go(func() error {
			offers, err := resilience.ExecuteVal(gCtx, f.breakers[i], func(ctx context.Context) ([]model.Offer, error) {
				return f.query(ctx, src, product)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zap.L().Warn("discovery: source failed",
					zap.String("source", src.Name),
					zap.Error(err),
				)
				lastErr = err
				return nil // partial failure degrades, never aborts
			}
			bySource[i] = offers
			succeeded++
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if succeeded == 0 {
		return nil, eris.Wrap(lastErr, "discovery: all sources failed")
	}

	var merged []model.Offer
	for _, offers := range bySource {
		merged = append(merged, offers...)
	}
	return merged, nil
}

// query fetches and decodes one source's offers.
func (f *HTTPFinder) query(ctx context.Context, src Source, product string) ([]model.Offer, error) {
	u := fmt.Sprintf("%s%s?q=%s", src.BaseURL, src.Path, url.QueryEscape(product))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("discovery: build request for %s", src.Name))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("discovery: query %s", src.Name))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		srcErr := eris.Errorf("discovery: %s returned status %d", src.Name, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(srcErr, resp.StatusCode)
		}
		return nil, srcErr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("discovery: read %s response", src.Name))
	}

	var offers []model.Offer
	if err := json.Unmarshal(data, &offers); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("discovery: decode %s response", src.Name))
	}
	return offers, nil
}

func breakerLogger(source string) func(from, to resilience.CircuitState) {
	return func(from, to resilience.CircuitState) {
		zap.L().Warn("discovery: circuit state change",
			zap.String("source", source),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
}
