package orchestrator

import "context"

// Notifier receives progress and terminal messages for one request. The
// orchestrator never fails a request because of a notifier: implementations
// log and swallow their own transport errors.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, text string)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, text string) { f(ctx, text) }

// NopNotifier discards all notifications.
var NopNotifier = NotifierFunc(func(context.Context, string) {})
