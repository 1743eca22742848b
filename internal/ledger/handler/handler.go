// Package handler exposes the submission gate over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"warden/internal/ledger"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
	"warden/pkg/requestcontext"
)

// Gate is the ledger service surface this handler needs.
type Gate interface {
	CanSubmit(ctx context.Context, identityID domain.IdentityID, campaignID domain.CampaignID) (ledger.Decision, error)
	RecordSubmission(ctx context.Context, identityID domain.IdentityID, sector ledger.Sector) (ledger.Identity, error)
	LogViolation(ctx context.Context, userID domain.UserID, rule string, severity ledger.Severity, detail string) (ledger.ComplianceScore, error)
	Compliance(ctx context.Context, userID domain.UserID) (ledger.ComplianceScore, error)
	RestoreCompliance(ctx context.Context, userID domain.UserID, points int, reason string) (ledger.ComplianceScore, error)
}

// Handler serves the quota ledger endpoints.
type Handler struct {
	service Gate
	logger  *slog.Logger
}

// New builds the handler.
func New(service Gate, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the ledger routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/submissions/check", h.check)
	r.Post("/submissions/record", h.record)
	r.Post("/violations", h.logViolation)
	r.Get("/users/{userID}/compliance", h.compliance)
}

// RegisterAdmin mounts the compliance restoration route; the router wraps it
// in the admin auth middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/users/{userID}/compliance/restore", h.restore)
}

type checkRequest struct {
	IdentityID string `json:"identity_id"`
	CampaignID string `json:"campaign_id"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[checkRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
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

	decision, err := h.service.CanSubmit(ctx, identityID, campaignID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decision)
}

type recordRequest struct {
	IdentityID string `json:"identity_id"`
	Sector     string `json:"sector"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[recordRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	identityID, err := domain.ParseIdentityID(req.IdentityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Sector == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "sector is required"))
		return
	}

	identity, err := h.service.RecordSubmission(ctx, identityID, ledger.Sector(req.Sector))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"identity_id":  identity.ID,
		"monthly_used": identity.MonthlyUsed,
		"monthly_max":  identity.GlobalMax(),
	})
}

type violationRequest struct {
	UserID   string `json:"user_id"`
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

func (h *Handler) logViolation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[violationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	userID, err := domain.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Rule == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "rule is required"))
		return
	}

	standing, err := h.service.LogViolation(ctx, userID, req.Rule, ledger.Severity(req.Severity), req.Detail)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, standing)
}

type restoreRequest struct {
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[restoreRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if req.Points <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "points must be positive"))
		return
	}

	standing, err := h.service.RestoreCompliance(ctx, userID, req.Points, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, standing)
}

func (h *Handler) compliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	standing, err := h.service.Compliance(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, standing)
}
