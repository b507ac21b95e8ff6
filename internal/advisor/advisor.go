// Package advisor wraps the remote model call that turns ranked offers into
// a natural-language recommendation.
package advisor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealscout/internal/model"
	"github.com/sells-group/dealscout/internal/resilience"
	"github.com/sells-group/dealscout/pkg/anthropic"
)

// MaxOffers is the upper bound on offers accepted per recommendation.
const MaxOffers = 5

// ErrEmptyCompletion marks a completion whose text was empty or whitespace.
// It is treated exactly like a transport-level failure: retried, then
// surfaced.
var ErrEmptyCompletion = eris.New("advisor: model returned empty completion")

// Advisor validates inputs, calls the model with a fixed prompt, and
// retries transient failures with exponential backoff.
type Advisor struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	retry       resilience.RetryConfig
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(a *Advisor) {
		a.retry = cfg
	}
}

// New creates an Advisor around an injected model client.
func New(client anthropic.Client, modelID string, maxTokens int64, temperature float64, opts ...Option) *Advisor {
	a := &Advisor{
		client:      client,
		model:       modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 4 * time.Second,
			MaxBackoff:     10 * time.Second,
			Multiplier:     2.0,
			ShouldRetry: func(err error) bool {
				return resilience.IsTransient(err) || errors.Is(err, ErrEmptyCompletion)
			},
			OnRetry: resilience.RetryLogger("anthropic", "recommend"),
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Recommend asks the model for a recommendation over the top ranked offers.
// Preconditions are checked before any remote call; violations return a
// *model.ValidationError and are never retried.
func (a *Advisor) Recommend(ctx context.Context, product string, top []model.ScoredOffer) (string, error) {
	if err := validate(product, top); err != nil {
		return "", err
	}

	req := anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      systemPrompt,
		Temperature: &a.temperature,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildUserPrompt(product, top)},
		},
	}

	text, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (string, error) {
		resp, callErr := a.client.CreateMessage(ctx, req)
		if callErr != nil {
			return "", callErr
		}

		out := strings.TrimSpace(resp.Text())
		if out == "" {
			return "", ErrEmptyCompletion
		}

		resp.Usage.LogCost(a.model, "recommend")
		return out, nil
	})
	if err != nil {
		return "", eris.Wrap(err, "advisor: recommendation failed")
	}

	zap.L().Debug("advisor: recommendation produced",
		zap.String("product", product),
		zap.Int("offers", len(top)),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

func validate(product string, top []model.ScoredOffer) error {
	if strings.TrimSpace(product) == "" {
		return &model.ValidationError{Field: "product", Reason: "must not be empty"}
	}
	if len(top) == 0 {
		return &model.ValidationError{Field: "offers", Reason: "must not be empty"}
	}
	if len(top) > MaxOffers {
		return &model.ValidationError{Field: "offers", Reason: "exceed the allowed count"}
	}
	for _, s := range top {
		if !s.Failed && s.Offer == (model.Offer{}) {
			return &model.ValidationError{Field: "offers", Reason: "contain an empty entry"}
		}
	}
	return nil
}
