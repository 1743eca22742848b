package notify_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"warden/internal/notify"
	"warden/pkg/attrs"
	"warden/pkg/domain"
)

// captureHandler records emitted log records as flat attr slices.
type captureHandler struct {
	mu      sync.Mutex
	records [][]any
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	var flat []any
	r.Attrs(func(a slog.Attr) bool {
		flat = append(flat, a.Key, a.Value.Any())
		return true
	})
	h.mu.Lock()
	h.records = append(h.records, flat)
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func TestSlogNotifierDerivesRecipientName(t *testing.T) {
	handler := &captureHandler{}
	notifier := notify.NewSlogNotifier(slog.New(handler))

	err := notifier.Send(context.Background(), notify.Notification{
		UserID:  domain.NewUserID(),
		Email:   "jane.doe@example.com",
		Subject: "Account suspended",
		Body:    "Your account is on hold.",
	})
	require.NoError(t, err)

	require.Len(t, handler.records, 1)
	require.Equal(t, "Jane Doe", attrs.ExtractString(handler.records[0], "recipient"))
	require.Equal(t, "Account suspended", attrs.ExtractString(handler.records[0], "subject"))
}

func TestSlogNotifierEmptyEmail(t *testing.T) {
	handler := &captureHandler{}
	notifier := notify.NewSlogNotifier(slog.New(handler))

	err := notifier.Send(context.Background(), notify.Notification{
		UserID:  domain.NewUserID(),
		Subject: "Suspension lifted",
	})
	require.NoError(t, err)

	require.Len(t, handler.records, 1)
	require.Equal(t, "", attrs.ExtractString(handler.records[0], "recipient"))
}
