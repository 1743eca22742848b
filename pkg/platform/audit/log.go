package audit

import (
	"context"
	"log/slog"

	id "warden/pkg/domain"
	"warden/pkg/requestcontext"
)

// Log builds and emits an audit event, filling request-scoped fields from the
// context. Emission failures are logged, never propagated: audit must not
// take down the operation it describes.
func Log(ctx context.Context, pub Publisher, logger *slog.Logger, event AuditEvent, userID id.UserID, subject, reason, detail string) {
	if pub == nil {
		return
	}
	e := Event{
		Category:  event.Category(),
		Timestamp: requestcontext.Now(ctx),
		UserID:    userID,
		Subject:   subject,
		Action:    string(event),
		Reason:    reason,
		Detail:    detail,
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   requestcontext.Actor(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Bot:       requestcontext.IsBot(ctx),
	}
	if err := pub.Emit(ctx, e); err != nil && logger != nil {
		logger.WarnContext(ctx, "audit emit failed", "action", e.Action, "error", err)
	}
}
