// Package handler accepts submission events and runs the violation
// detectors over them.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"warden/internal/suspension"
	"warden/internal/triggers"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
	"warden/pkg/requestcontext"
)

// Geoblocker applies origin-based governance before the detectors run.
type Geoblocker interface {
	EnforceGeoblock(ctx context.Context, userID domain.UserID, ip string) (suspension.DetectOutcome, error)
}

// Handler serves the submission-event endpoint.
type Handler struct {
	registry *triggers.Registry
	geo      Geoblocker
	logger   *slog.Logger
}

// New builds the handler. geo may be nil when geoblocking is not wired.
func New(registry *triggers.Registry, geo Geoblocker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{registry: registry, geo: geo, logger: logger}
}

// Register mounts the submission-event route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/submissions/events", h.event)
}

type eventRequest struct {
	UserID      string `json:"user_id"`
	IdentityID  string `json:"identity_id"`
	CampaignID  string `json:"campaign_id"`
	Sector      string `json:"sector"`
	ArtifactRef string `json:"artifact_ref"`
	Status      string `json:"status"`
}

func (h *Handler) event(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[eventRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	userID, err := domain.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	identityID, err := domain.ParseIdentityID(req.IdentityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	campaignID, err := domain.ParseCampaignID(req.CampaignID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status := triggers.SubmissionStatus(req.Status)
	switch status {
	case triggers.StatusAccepted, triggers.StatusRejected, triggers.StatusPending:
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown submission status"))
		return
	}

	if h.geo != nil {
		if _, err := h.geo.EnforceGeoblock(ctx, userID, requestcontext.ClientIP(ctx)); err != nil {
			h.logger.WarnContext(ctx, "geoblock enforcement degraded", "user_id", userID, "error", err)
		}
	}

	fired := h.registry.Evaluate(ctx, triggers.SubmissionEvent{
		UserID:      userID,
		IdentityID:  identityID,
		CampaignID:  campaignID,
		Sector:      req.Sector,
		ArtifactRef: req.ArtifactRef,
		Status:      status,
		OccurredAt:  requestcontext.Now(ctx),
	})

	findings := make([]map[string]string, 0, len(fired))
	for _, f := range fired {
		findings = append(findings, map[string]string{
			"category": string(f.Category),
			"details":  f.Details,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"evaluated_at": requestcontext.Now(ctx).Format(time.RFC3339),
		"findings":     findings,
	})
}
