package audit

import (
	"context"

	id "warden/pkg/domain"
)

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Publisher emits audit events toward a store or broker.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
