package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"warden/pkg/domain"
	audit "warden/pkg/platform/audit"
	"warden/pkg/platform/audit/publisher"
	"warden/pkg/platform/audit/store/memory"
	"warden/pkg/requestcontext"
)

func TestLogCapturesRequestMetadata(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := publisher.NewPublisher(store)
	defer pub.Close()

	userID := domain.NewUserID()
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	ctx = requestcontext.WithRequestID(ctx, "req-123")
	ctx = requestcontext.WithActor(ctx, "admin@example.test")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.9", "Googlebot/2.1")
	ctx = requestcontext.WithBot(ctx, true)

	audit.Log(ctx, pub, nil, audit.EventSuspensionCreated, userID, "suspension", "burst", "level=1")

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	require.Equal(t, "req-123", e.RequestID)
	require.Equal(t, "admin@example.test", e.ActorID)
	require.Equal(t, "203.0.113.9", e.ClientIP)
	require.True(t, e.Bot)
	require.Equal(t, audit.CategoryGovernance, e.Category)
}

func TestLogWithNilPublisherIsNoop(t *testing.T) {
	audit.Log(context.Background(), nil, nil, audit.EventSuspensionCreated, domain.NewUserID(), "suspension", "", "")
}
