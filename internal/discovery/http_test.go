package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealscout/internal/model"
	"github.com/sells-group/dealscout/internal/resilience"
)

func offersServer(t *testing.T, offers []model.Offer) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(offers))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func statusServer(t *testing.T, code int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func breakerCfg() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{FailureThreshold: 5, ResetTimeout: time.Minute}
}

func TestHTTPFinderMergesSourcesInOrder(t *testing.T) {
	first := offersServer(t, []model.Offer{{Store: "alpha-1", BasePrice: 10, Rating: 4}})
	second := offersServer(t, []model.Offer{
		{Store: "beta-1", BasePrice: 20, Rating: 3},
		{Store: "beta-2", BasePrice: 30, Rating: 5},
	})

	f := NewHTTPFinder([]Source{
		{Name: "alpha", BaseURL: first.URL},
		{Name: "beta", BaseURL: second.URL},
	}, breakerCfg())

	offers, err := f.FetchOffers(context.Background(), "usb hub")
	require.NoError(t, err)
	require.Len(t, offers, 3)
	assert.Equal(t, "alpha-1", offers[0].Store)
	assert.Equal(t, "beta-1", offers[1].Store)
	assert.Equal(t, "beta-2", offers[2].Store)
}

func TestHTTPFinderPartialFailureDegrades(t *testing.T) {
	healthy := offersServer(t, []model.Offer{{Store: "ok", BasePrice: 5, Rating: 4}})
	broken := statusServer(t, http.StatusInternalServerError)

	f := NewHTTPFinder([]Source{
		{Name: "broken", BaseURL: broken.URL},
		{Name: "healthy", BaseURL: healthy.URL},
	}, breakerCfg())

	offers, err := f.FetchOffers(context.Background(), "p")
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "ok", offers[0].Store)
}

func TestHTTPFinderAllSourcesFailed(t *testing.T) {
	broken := statusServer(t, http.StatusBadGateway)

	f := NewHTTPFinder([]Source{{Name: "broken", BaseURL: broken.URL}}, breakerCfg())

	_, err := f.FetchOffers(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all sources failed")
}

func TestHTTPFinderTransientStatusIsRetryable(t *testing.T) {
	broken := statusServer(t, http.StatusTooManyRequests)

	f := NewHTTPFinder([]Source{{Name: "limited", BaseURL: broken.URL}}, breakerCfg())

	_, err := f.query(context.Background(), f.sources[0], "p")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestHTTPFinderClientErrorIsPermanent(t *testing.T) {
	broken := statusServer(t, http.StatusNotFound)

	f := NewHTTPFinder([]Source{{Name: "gone", BaseURL: broken.URL}}, breakerCfg())

	_, err := f.query(context.Background(), f.sources[0], "p")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestHTTPFinderCircuitOpensOnRepeatedFailure(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	f := NewHTTPFinder([]Source{{Name: "flappy", BaseURL: srv.URL}},
		resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})

	for range 5 {
		_, _ = f.FetchOffers(context.Background(), "p")
	}

	// After the threshold the breaker rejects without touching the network.
	assert.Equal(t, 2, hits)
}

func TestHTTPFinderMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	t.Cleanup(srv.Close)

	f := NewHTTPFinder([]Source{{Name: "garbled", BaseURL: srv.URL}}, breakerCfg())

	_, err := f.FetchOffers(context.Background(), "p")
	require.Error(t, err)
}

func TestHTTPFinderNoSources(t *testing.T) {
	f := NewHTTPFinder(nil, breakerCfg())
	_, err := f.FetchOffers(context.Background(), "p")
	assert.Error(t, err)
}
