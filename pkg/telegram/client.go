// Package telegram is a minimal Telegram Bot API client covering the calls
// the bot needs: long-polling for updates, sending messages, and editing
// sent messages in place.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/dealscout/internal/resilience"
)

const defaultBaseURL = "https://api.telegram.org"

// Client defines the Bot API operations used by this application.
type Client interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSecs int) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) (*Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithSendRate overrides the outbound message rate limit (default 25 req/s,
// under Telegram's ~30 msg/s bot-wide cap).
func WithSendRate(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Bot API client for the given bot token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			// Long-poll requests hold the connection open for up to the
			// poll timeout; keep the client timeout above it.
			Timeout: 65 * time.Second,
		},
		limiter: rate.NewLimiter(25, 25),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetUpdates long-polls for inbound updates after the given offset.
func (c *httpClient) GetUpdates(ctx context.Context, offset int64, timeoutSecs int) ([]Update, error) {
	body := map[string]any{
		"offset":          offset,
		"timeout":         timeoutSecs,
		"allowed_updates": []string{"message"},
	}
	return call[[]Update](ctx, c, "getUpdates", body)
}

// SendMessage sends a text message to a chat and returns the sent message,
// whose ID can be used for later in-place edits.
func (c *httpClient) SendMessage(ctx context.Context, chatID int64, text string) (*Message, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "telegram: rate limit")
	}
	msg, err := call[Message](ctx, c, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText replaces the text of a previously sent message.
func (c *httpClient) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "telegram: rate limit")
	}
	_, err := call[Message](ctx, c, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	})
	return err
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// call posts a JSON body to a Bot API method and decodes the enveloped
// result. Rate-limit and server-side failures come back as transient errors.
func call[T any](ctx context.Context, c *httpClient, method string, body map[string]any) (T, error) {
	var zero T

	payload, err := json.Marshal(body)
	if err != nil {
		return zero, eris.Wrap(err, "telegram: marshal request")
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return zero, eris.Wrap(err, "telegram: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, eris.Wrap(err, fmt.Sprintf("telegram: %s", method))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, eris.Wrap(err, fmt.Sprintf("telegram: %s read body", method))
	}

	var env apiResponse[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return zero, eris.Wrap(err, fmt.Sprintf("telegram: %s decode response", method))
	}

	if !env.OK {
		apiErr := eris.Errorf("telegram: %s failed: %s (code %d)", method, env.Description, env.ErrorCode)
		if resilience.IsTransientHTTPStatus(env.ErrorCode) || resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return zero, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return zero, apiErr
	}

	return env.Result, nil
}

// IsNotModified reports whether an editMessageText error means the message
// content was already identical. Callers treat this as a benign no-op.
func IsNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
