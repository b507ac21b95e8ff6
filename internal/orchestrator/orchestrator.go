// Package orchestrator sequences the per-request pipeline: discovery,
// parallel scoring, ranking, and AI summarization, each stage bounded by a
// timeout with a graceful fallback. Every request ends with a terminal
// user-visible message.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/dealscout/internal/discovery"
	"github.com/sells-group/dealscout/internal/model"
	"github.com/sells-group/dealscout/internal/scoring"
)

// Fixed user-facing terminal and progress strings.
const (
	MsgAnalyzing    = "🔎 Analyzing the market..."
	MsgFetchTimeout = "⚠️ Market analysis took too long. Please try again."
	MsgFetchFailed  = "⚠️ Something went wrong while fetching offers. Please try again."
	MsgNoOffers     = "No offers found for this product."
	MsgApology      = "Sorry — I couldn't produce a recommendation right now. Please try again later."
)

// Status is the terminal state of a request.
type Status string

const (
	// StatusDelivered means a result was shown, possibly a degraded or
	// apology text.
	StatusDelivered Status = "delivered"
	// StatusReportedError means a specific user-facing diagnostic was shown
	// and the pipeline stopped early.
	StatusReportedError Status = "reported_error"
)

// Outcome is the terminal result of one request.
type Outcome struct {
	Status   Status              `json:"status"`
	Text     string              `json:"text"`
	Degraded bool                `json:"degraded,omitempty"`
	Ranking  []model.ScoredOffer `json:"ranking,omitempty"`
}

// Recommender produces the final natural-language recommendation.
type Recommender interface {
	Recommend(ctx context.Context, product string, top []model.ScoredOffer) (string, error)
}

// Config bounds the per-request pipeline.
type Config struct {
	// MaxOffers is the admission-control bound on discovered offers.
	MaxOffers int
	// TopK is how many ranked offers reach the summarizer.
	TopK int
	// Workers bounds concurrent scoring tasks.
	Workers int
	// FetchTimeout bounds the discovery stage.
	FetchTimeout time.Duration
	// ScoreTimeout bounds each individual scoring task.
	ScoreTimeout time.Duration
	// AdviseTimeout bounds the summarization stage.
	AdviseTimeout time.Duration
	// ProgressEvery emits a progress notification every Nth completion.
	ProgressEvery int
}

// DefaultConfig returns the reference pipeline bounds.
func DefaultConfig() Config {
	return Config{
		MaxOffers:     20,
		TopK:          3,
		Workers:       5,
		FetchTimeout:  15 * time.Second,
		ScoreTimeout:  5 * time.Second,
		AdviseTimeout: 10 * time.Second,
		ProgressEvery: 5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxOffers <= 0 {
		c.MaxOffers = d.MaxOffers
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.ScoreTimeout <= 0 {
		c.ScoreTimeout = d.ScoreTimeout
	}
	if c.AdviseTimeout <= 0 {
		c.AdviseTimeout = d.AdviseTimeout
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = d.ProgressEvery
	}
	return c
}

// ScoreFunc scores a single offer.
type ScoreFunc func(model.Offer) (model.ScoredOffer, error)

// Orchestrator drives the fetch → score → rank → summarize pipeline.
type Orchestrator struct {
	finder  discovery.Finder
	advisor Recommender
	cfg     Config
	score   ScoreFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithScoreFunc overrides the scoring function.
func WithScoreFunc(fn ScoreFunc) Option {
	return func(o *Orchestrator) {
		o.score = fn
	}
}

// New creates an Orchestrator with the given collaborators.
func New(finder discovery.Finder, advisor Recommender, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		finder:  finder,
		advisor: advisor,
		cfg:     cfg.withDefaults(),
		score:   scoring.Score,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the pipeline for one request. It always delivers a terminal
// message through the notifier before returning; callers that render the
// outcome themselves can use the returned Outcome instead.
func (o *Orchestrator) Run(ctx context.Context, req model.Request, notify Notifier) Outcome {
	log := zap.L().With(
		zap.String("request_id", req.ID),
		zap.String("product", req.Product),
	)
	log.Info("pipeline: starting request")
	start := time.Now()

	// Stage 1: acquire offers, bounded by the discovery timeout. No retry:
	// timeouts and failures terminate with a diagnostic.
	offers, err := o.fetch(ctx, req.Product)
	if err != nil {
		text := MsgFetchFailed
		if errors.Is(err, context.DeadlineExceeded) {
			text = MsgFetchTimeout
		}
		log.Warn("pipeline: discovery failed", zap.Error(err))
		notify.Notify(ctx, text)
		return Outcome{Status: StatusReportedError, Text: text}
	}

	// Admission control: bound the fan-out before parallel scoring.
	if len(offers) > o.cfg.MaxOffers {
		log.Info("pipeline: truncating offers",
			zap.Int("found", len(offers)),
			zap.Int("max", o.cfg.MaxOffers),
		)
		offers = offers[:o.cfg.MaxOffers]
	}

	// Stage 2: empty check.
	if len(offers) == 0 {
		log.Info("pipeline: no offers found")
		notify.Notify(ctx, MsgNoOffers)
		return Outcome{Status: StatusReportedError, Text: MsgNoOffers}
	}

	// Stage 3: parallel scoring with per-offer timeout and sentinel
	// fallback; a single bad offer degrades the ranking, never the request.
	scored := o.scoreAll(ctx, offers, notify)

	// Stage 4: rank.
	ranked := scoring.Rank(scored)

	// Stage 5: summarize the top offers; timeout or failure substitutes the
	// fixed apology. The orchestrator's own call is at-most-once — retries
	// live inside the advisor.
	top := scoring.Top(ranked, o.cfg.TopK)
	text, degraded := o.advise(ctx, req.Product, top, log)

	// Stage 6: deliver.
	notify.Notify(ctx, text)
	log.Info("pipeline: request complete",
		zap.Int("offers", len(offers)),
		zap.Bool("degraded", degraded),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return Outcome{Status: StatusDelivered, Text: text, Degraded: degraded, Ranking: ranked}
}

func (o *Orchestrator) fetch(ctx context.Context, product string) ([]model.Offer, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.FetchTimeout)
	defer cancel()
	return o.finder.FetchOffers(ctx, product)
}

// scoreAll scores every offer concurrently on a bounded worker pool. Tasks
// share no mutable state: each reads one offer and writes one slot. Progress
// notifications go out every Nth completion, throttled so a burst of
// completions cannot flood the outbound channel; the last completion always
// notifies.
func (o *Orchestrator) scoreAll(ctx context.Context, offers []model.Offer, notify Notifier) []model.ScoredOffer {
	scored := make([]model.ScoredOffer, len(offers))

	limiter := rate.NewLimiter(rate.Every(time.Second), 1)
	var (
		mu   sync.Mutex
		done int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for i, offer := range offers {
		g.Go(func() error {
			result := o.scoreOne(gCtx, offer)

			mu.Lock()
			scored[i] = result
			done++
			n := done
			notifyNow := n == len(offers) || (n%o.cfg.ProgressEvery == 0 && limiter.Allow())
			mu.Unlock()

			if notifyNow {
				notify.Notify(gCtx, fmt.Sprintf("⏳ Scored %d/%d offers...", n, len(offers)))
			}
			return nil
		})
	}
	_ = g.Wait()

	return scored
}

// scoreOne scores a single offer under its own deadline. A timeout or
// validation error yields the failed sentinel carrying the original offer.
func (o *Orchestrator) scoreOne(ctx context.Context, offer model.Offer) model.ScoredOffer {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ScoreTimeout)
	defer cancel()

	type result struct {
		scored model.ScoredOffer
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := o.score(offer)
		ch <- result{s, err}
	}()

	select {
	case <-ctx.Done():
		zap.L().Warn("pipeline: scoring timed out",
			zap.String("store", offer.Store),
		)
		return model.NewFailed(offer, "scoring timed out")
	case r := <-ch:
		if r.err != nil {
			zap.L().Warn("pipeline: scoring failed",
				zap.String("store", offer.Store),
				zap.Error(r.err),
			)
			return model.NewFailed(offer, r.err.Error())
		}
		return r.scored
	}
}

// advise calls the summarizer under the summarization deadline and maps any
// failure to the fixed apology.
func (o *Orchestrator) advise(ctx context.Context, product string, top []model.ScoredOffer, log *zap.Logger) (text string, degraded bool) {
	adviseCtx, cancel := context.WithTimeout(ctx, o.cfg.AdviseTimeout)
	defer cancel()

	reply, err := o.advisor.Recommend(adviseCtx, product, top)
	if err != nil {
		log.Warn("pipeline: summarization failed", zap.Error(err))
		return MsgApology, true
	}
	return reply, false
}
