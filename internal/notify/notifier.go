// Package notify delivers best-effort email notifications. Delivery failures
// are logged by callers and never abort the state change that triggered them.
package notify

import (
	"context"
	"log/slog"
)

// Notifier sends a message to a single recipient.
type Notifier interface {
	Send(ctx context.Context, message, recipient, subject string) error
}

// LogNotifier writes notifications to the application log instead of sending
// mail. Used in development and tests.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, message, recipient, subject string) error {
	slog.Info("notification", "recipient", recipient, "subject", subject, "message", message)
	return nil
}
