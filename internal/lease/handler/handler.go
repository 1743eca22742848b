// Package handler exposes work-item leases over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"warden/internal/lease"
	"warden/pkg/domain"
	"warden/pkg/platform/httputil"
	"warden/pkg/requestcontext"
)

// Claimer is the lease service surface this handler needs.
type Claimer interface {
	Claim(ctx context.Context, campaignID domain.CampaignID, userID domain.UserID) (lease.Lease, error)
	Holder(ctx context.Context, campaignID domain.CampaignID) (lease.Lease, bool, error)
}

// Handler serves the lease endpoints.
type Handler struct {
	service Claimer
	logger  *slog.Logger
}

// New builds the handler.
func New(service Claimer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the lease routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/campaigns/{campaignID}/lease", h.claim)
	r.Get("/campaigns/{campaignID}/lease", h.holder)
}

type claimRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	campaignID, err := domain.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[claimRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	userID, err := domain.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	granted, err := h.service.Claim(ctx, campaignID, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, granted)
}

func (h *Handler) holder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	campaignID, err := domain.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	current, held, err := h.service.Holder(ctx, campaignID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !held {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"held": false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"held": true, "lease": current})
}
