package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealscout/internal/discovery"
	"github.com/sells-group/dealscout/internal/model"
)

type stubRecommender struct {
	text string
	err  error

	mu    sync.Mutex
	calls int
	top   []model.ScoredOffer
}

func (s *stubRecommender) Recommend(ctx context.Context, product string, top []model.ScoredOffer) (string, error) {
	s.mu.Lock()
	s.calls++
	s.top = top
	s.mu.Unlock()
	return s.text, s.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(ctx context.Context, text string) {
	n.mu.Lock()
	n.messages = append(n.messages, text)
	n.mu.Unlock()
}

func (n *recordingNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1]
}

func testConfig() Config {
	return Config{
		MaxOffers:     20,
		TopK:          3,
		Workers:       5,
		FetchTimeout:  100 * time.Millisecond,
		ScoreTimeout:  50 * time.Millisecond,
		AdviseTimeout: 100 * time.Millisecond,
		ProgressEvery: 5,
	}
}

func offersFinder(offers []model.Offer) discovery.Finder {
	return discovery.FinderFunc(func(ctx context.Context, product string) ([]model.Offer, error) {
		return offers, nil
	})
}

func makeOffers(n int) []model.Offer {
	offers := make([]model.Offer, n)
	for i := range offers {
		offers[i] = model.Offer{
			Store:         fmt.Sprintf("store-%02d", i),
			BasePrice:     float64(10 + i),
			Rating:        4,
			StoreAgeYears: 2,
		}
	}
	return offers
}

func TestRun_HappyPath(t *testing.T) {
	adv := &stubRecommender{text: "Buy from store-00."}
	notifier := &recordingNotifier{}

	o := New(offersFinder(makeOffers(4)), adv, testConfig())
	out := o.Run(context.Background(), model.NewRequest("headphones", "u"), notifier)

	assert.Equal(t, StatusDelivered, out.Status)
	assert.Equal(t, "Buy from store-00.", out.Text)
	assert.False(t, out.Degraded)
	assert.Len(t, out.Ranking, 4)
	assert.Equal(t, "Buy from store-00.", notifier.last())
	assert.Len(t, adv.top, 3)
}

func TestRun_FetchTimeout(t *testing.T) {
	finder := discovery.FinderFunc(func(ctx context.Context, product string) ([]model.Offer, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	notifier := &recordingNotifier{}

	cfg := testConfig()
	cfg.FetchTimeout = 20 * time.Millisecond

	out := New(finder, &stubRecommender{}, cfg).Run(context.Background(), model.NewRequest("p", "u"), notifier)

	assert.Equal(t, StatusReportedError, out.Status)
	assert.Equal(t, MsgFetchTimeout, out.Text)
	assert.Equal(t, MsgFetchTimeout, notifier.last())
	assert.Empty(t, out.Ranking)
}

func TestRun_FetchFailure(t *testing.T) {
	finder := discovery.FinderFunc(func(ctx context.Context, product string) ([]model.Offer, error) {
		return nil, errors.New("source exploded")
	})
	notifier := &recordingNotifier{}

	out := New(finder, &stubRecommender{}, testConfig()).Run(context.Background(), model.NewRequest("p", "u"), notifier)

	assert.Equal(t, StatusReportedError, out.Status)
	assert.Equal(t, MsgFetchFailed, out.Text)
}

func TestRun_NoOffers(t *testing.T) {
	adv := &stubRecommender{text: "should not be called"}
	notifier := &recordingNotifier{}

	out := New(offersFinder(nil), adv, testConfig()).Run(context.Background(), model.NewRequest("p", "u"), notifier)

	assert.Equal(t, StatusReportedError, out.Status)
	assert.Equal(t, MsgNoOffers, out.Text)
	assert.Zero(t, adv.calls)
}

func TestRun_TruncatesToMaxOffers(t *testing.T) {
	adv := &stubRecommender{text: "ok"}

	out := New(offersFinder(makeOffers(25)), adv, testConfig()).Run(context.Background(), model.NewRequest("p", "u"), &recordingNotifier{})

	require.Equal(t, StatusDelivered, out.Status)
	assert.Len(t, out.Ranking, 20)

	// Truncation keeps the first offers in discovery order.
	seen := map[string]bool{}
	for _, s := range out.Ranking {
		seen[s.Offer.Store] = true
	}
	assert.True(t, seen["store-00"])
	assert.False(t, seen["store-24"])
}

func TestRun_ScoringTimeoutYieldsSentinel(t *testing.T) {
	offers := makeOffers(3)
	adv := &stubRecommender{text: "ok"}

	cfg := testConfig()
	cfg.ScoreTimeout = 10 * time.Millisecond

	slowStore := offers[1].Store
	o := New(offersFinder(offers), adv, cfg, WithScoreFunc(func(offer model.Offer) (model.ScoredOffer, error) {
		if offer.Store == slowStore {
			time.Sleep(100 * time.Millisecond)
		}
		return model.NewScored(offer, offer.BasePrice, 50), nil
	}))

	out := o.Run(context.Background(), model.NewRequest("p", "u"), &recordingNotifier{})

	require.Equal(t, StatusDelivered, out.Status)
	require.Len(t, out.Ranking, 3)

	var failed *model.ScoredOffer
	for i := range out.Ranking {
		if out.Ranking[i].Failed {
			failed = &out.Ranking[i]
		}
	}
	require.NotNil(t, failed, "expected one failed sentinel")
	assert.Equal(t, slowStore, failed.Offer.Store)
	assert.Equal(t, "scoring timed out", failed.FailReason)
	assert.Zero(t, failed.Score)

	// Failed entries rank below every scored entry.
	assert.True(t, out.Ranking[len(out.Ranking)-1].Failed)
}

func TestRun_ScoringErrorDegradesOnlyThatOffer(t *testing.T) {
	offers := makeOffers(3)
	offers[2].BasePrice = -5 // fails validation inside the default scorer

	out := New(offersFinder(offers), &stubRecommender{text: "ok"}, testConfig()).
		Run(context.Background(), model.NewRequest("p", "u"), &recordingNotifier{})

	require.Equal(t, StatusDelivered, out.Status)
	require.Len(t, out.Ranking, 3)

	failed := 0
	for _, s := range out.Ranking {
		if s.Failed {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestRun_AdvisorFailureFallsBackToApology(t *testing.T) {
	adv := &stubRecommender{err: errors.New("model unavailable")}
	notifier := &recordingNotifier{}

	out := New(offersFinder(makeOffers(2)), adv, testConfig()).Run(context.Background(), model.NewRequest("p", "u"), notifier)

	assert.Equal(t, StatusDelivered, out.Status)
	assert.Equal(t, MsgApology, out.Text)
	assert.True(t, out.Degraded)
	assert.Len(t, out.Ranking, 2)
	assert.Equal(t, MsgApology, notifier.last())
}

func TestRun_ProgressNotifications(t *testing.T) {
	notifier := &recordingNotifier{}

	out := New(offersFinder(makeOffers(10)), &stubRecommender{text: "ok"}, testConfig()).
		Run(context.Background(), model.NewRequest("p", "u"), notifier)

	require.Equal(t, StatusDelivered, out.Status)

	progress := 0
	sawFinal := false
	notifier.mu.Lock()
	for _, m := range notifier.messages {
		if strings.HasPrefix(m, "⏳ Scored ") {
			progress++
		}
		if m == "⏳ Scored 10/10 offers..." {
			sawFinal = true
		}
	}
	notifier.mu.Unlock()
	assert.GreaterOrEqual(t, progress, 1)
	// The final completion notifies even when it lands inside the throttle
	// window of an earlier progress message.
	assert.True(t, sawFinal)
}

func TestRun_TopKSmallerThanRanking(t *testing.T) {
	adv := &stubRecommender{text: "ok"}

	cfg := testConfig()
	cfg.TopK = 2

	out := New(offersFinder(makeOffers(5)), adv, cfg).Run(context.Background(), model.NewRequest("p", "u"), &recordingNotifier{})

	require.Equal(t, StatusDelivered, out.Status)
	assert.Len(t, adv.top, 2)
	assert.Len(t, out.Ranking, 5)
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)

	partial := Config{MaxOffers: 7}.withDefaults()
	assert.Equal(t, 7, partial.MaxOffers)
	assert.Equal(t, 3, partial.TopK)
	assert.Equal(t, 5*time.Second, partial.ScoreTimeout)
}
