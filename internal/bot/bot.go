// Package bot runs the Telegram front-end: it long-polls for user messages,
// dispatches commands through an explicit handler table, and drives the
// offer pipeline for product queries.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealscout/internal/model"
	"github.com/sells-group/dealscout/internal/orchestrator"
	"github.com/sells-group/dealscout/pkg/telegram"
)

// welcomeTemplate greets a user by display name on /start.
const welcomeTemplate = "👋 Hi %s! Send me a product name and I'll compare offers across stores and recommend the best deal."

// Handler processes one inbound message.
type Handler func(ctx context.Context, msg telegram.Message)

// Bot wires the chat transport to the orchestrator.
type Bot struct {
	client      telegram.Client
	orch        *orchestrator.Orchestrator
	pollTimeout int
	maxInFlight int

	// handlers maps a leading command token to its handler; unmatched text
	// falls through to the product query handler.
	handlers map[string]Handler
}

// New creates a Bot. maxInFlight bounds concurrently handled messages.
func New(client telegram.Client, orch *orchestrator.Orchestrator, pollTimeoutSecs, maxInFlight int) *Bot {
	if maxInFlight <= 0 {
		maxInFlight = 16
	}
	b := &Bot{
		client:      client,
		orch:        orch,
		pollTimeout: pollTimeoutSecs,
		maxInFlight: maxInFlight,
	}
	b.handlers = map[string]Handler{
		"/start": b.handleStart,
	}
	return b
}

// Run long-polls for updates until ctx is cancelled. Poll failures back off
// and retry; they never stop the loop.
func (b *Bot) Run(ctx context.Context) error {
	zap.L().Info("bot: starting update loop")

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.maxInFlight)

	var offset int64
	for {
		if ctx.Err() != nil {
			break
		}

		updates, err := b.client.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			zap.L().Warn("bot: getUpdates failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil || strings.TrimSpace(u.Message.Text) == "" {
				continue
			}
			msg := *u.Message
			g.Go(func() error {
				b.dispatch(gCtx, msg)
				return nil
			})
		}
	}

	_ = g.Wait()
	zap.L().Info("bot: update loop stopped")
	return nil
}

// dispatch routes a message through the handler table.
func (b *Bot) dispatch(ctx context.Context, msg telegram.Message) {
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		cmd := strings.ToLower(strings.Fields(text)[0])
		if h, ok := b.handlers[cmd]; ok {
			h(ctx, msg)
			return
		}
	}

	b.handleQuery(ctx, msg)
}

func (b *Bot) handleStart(ctx context.Context, msg telegram.Message) {
	name := displayName(msg)
	if _, err := b.client.SendMessage(ctx, msg.Chat.ID, fmt.Sprintf(welcomeTemplate, name)); err != nil {
		zap.L().Warn("bot: welcome send failed",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Error(err),
		)
	}
}

// handleQuery treats the message text as a product name and runs the
// pipeline, streaming progress into one edited-in-place chat message.
func (b *Bot) handleQuery(ctx context.Context, msg telegram.Message) {
	req := model.NewRequest(strings.TrimSpace(msg.Text), displayName(msg))

	var messageID int64
	sent, err := b.client.SendMessage(ctx, msg.Chat.ID, orchestrator.MsgAnalyzing)
	if err != nil {
		zap.L().Warn("bot: progress message send failed",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Error(err),
		)
	} else {
		messageID = sent.MessageID
	}

	b.orch.Run(ctx, req, newEditNotifier(b.client, msg.Chat.ID, messageID))
}

func displayName(msg telegram.Message) string {
	if msg.From != nil && msg.From.FirstName != "" {
		return msg.From.FirstName
	}
	return "there"
}
