// Package handler exposes trust evaluation over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"warden/internal/trust"
	"warden/pkg/platform/httputil"
	"warden/pkg/requestcontext"
)

// Evaluator is the service dependency of this handler.
type Evaluator interface {
	Evaluate(ctx context.Context, req trust.EvaluateRequest) (trust.Evaluation, error)
}

// Handler serves the trust endpoints.
type Handler struct {
	service Evaluator
	logger  *slog.Logger
}

// New builds the handler.
func New(service Evaluator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the trust routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/trust/evaluate", h.evaluate)
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[trust.EvaluateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	ev, err := h.service.Evaluate(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ev)
}
