// Package handler exposes suspension governance over HTTP. Lift and config
// routes are mounted behind the admin auth middleware by the router.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"warden/internal/suspension"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
	"warden/pkg/requestcontext"
)

// Governance is the service surface this handler needs.
type Governance interface {
	DetectAndSuspend(ctx context.Context, userID domain.UserID, category suspension.ReasonCategory, details string) (suspension.DetectOutcome, error)
	Lift(ctx context.Context, suspensionID domain.SuspensionID, actor, reason string) (suspension.UserSuspension, error)
	ActiveSuspension(ctx context.Context, userID domain.UserID) (suspension.UserSuspension, bool, error)
	GetConfig(ctx context.Context) (suspension.Config, error)
	SetConfig(ctx context.Context, cfg suspension.Config) error
}

// Handler serves the suspension endpoints.
type Handler struct {
	service Governance
	logger  *slog.Logger
}

// New builds the handler.
func New(service Governance, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the public suspension routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/suspensions/detect", h.detect)
	r.Get("/users/{userID}/suspension", h.activeSuspension)
}

// RegisterAdmin mounts the admin-only routes; the router wraps them in the
// admin auth middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/suspensions/{suspensionID}/lift", h.lift)
	r.Get("/admin/governance-config", h.getConfig)
	r.Put("/admin/governance-config", h.setConfig)
}

type detectRequest struct {
	UserID   string `json:"user_id"`
	Category string `json:"category"`
	Details  string `json:"details"`
}

func (h *Handler) detect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[detectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	userID, err := domain.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Category == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "category is required"))
		return
	}

	outcome, err := h.service.DetectAndSuspend(ctx, userID, suspension.ReasonCategory(req.Category), req.Details)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, outcome)
}

type liftRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) lift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	suspensionID, err := domain.ParseSuspensionID(chi.URLParam(r, "suspensionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[liftRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	actor := requestcontext.Actor(ctx)
	if actor == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "acting admin unknown"))
		return
	}

	lifted, err := h.service.Lift(ctx, suspensionID, actor, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lifted)
}

func (h *Handler) activeSuspension(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	active, ok, err := h.service.ActiveSuspension(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !ok {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"active": true, "suspension": active})
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.GetConfig(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) setConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg, ok := httputil.DecodeAndPrepare[suspension.Config](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.SetConfig(ctx, cfg); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}
