// Package notify defines the outbound notification port. Delivery is
// fire-and-forget: governance decisions never wait on, or fail because of,
// a notification.
package notify

import (
	"context"
	"log/slog"

	"warden/pkg/domain"
	"warden/pkg/email"
)

// Notification is one outbound message.
type Notification struct {
	UserID  domain.UserID
	Email   string
	Subject string
	Body    string
}

// Notifier delivers notifications. Implementations should return quickly;
// callers log and drop errors.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// SlogNotifier writes notifications to the log. It stands in for the real
// delivery service in development and tests.
type SlogNotifier struct {
	logger *slog.Logger
}

func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) Send(ctx context.Context, msg Notification) error {
	greeting := ""
	if msg.Email != "" {
		first, last := email.DeriveName(msg.Email)
		greeting = first + " " + last
	}
	n.logger.InfoContext(ctx, "notification dispatched",
		"user_id", msg.UserID,
		"recipient", greeting,
		"subject", msg.Subject,
	)
	return nil
}
