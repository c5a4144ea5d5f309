package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes messages to the log instead of sending them. Used in
// development and when no SMS provider is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to, message string) error {
	n.Logger.Info("notification (not delivered)", "to", to, "message", message)
	return nil
}
