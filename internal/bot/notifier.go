package bot

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/dealscout/pkg/telegram"
)

// editNotifier delivers progress and terminal texts by editing one in-flight
// chat message in place. When no in-flight message exists (the initial send
// failed) it falls back to sending new messages. Transport failures never
// propagate: an "unchanged content" edit is a benign no-op, anything else is
// logged and swallowed.
type editNotifier struct {
	client    telegram.Client
	chatID    int64
	messageID int64
}

// newEditNotifier creates a notifier bound to the message being edited.
// messageID zero means "send instead of edit".
func newEditNotifier(client telegram.Client, chatID, messageID int64) *editNotifier {
	return &editNotifier{client: client, chatID: chatID, messageID: messageID}
}

// Notify implements orchestrator.Notifier.
func (n *editNotifier) Notify(ctx context.Context, text string) {
	if n.messageID == 0 {
		if _, err := n.client.SendMessage(ctx, n.chatID, text); err != nil {
			zap.L().Warn("bot: send failed",
				zap.Int64("chat_id", n.chatID),
				zap.Error(err),
			)
		}
		return
	}

	err := n.client.EditMessageText(ctx, n.chatID, n.messageID, text)
	if err == nil || telegram.IsNotModified(err) {
		return
	}
	zap.L().Warn("bot: edit failed",
		zap.Int64("chat_id", n.chatID),
		zap.Int64("message_id", n.messageID),
		zap.Error(err),
	)
}
