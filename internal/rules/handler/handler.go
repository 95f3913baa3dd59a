// Package handler exposes the security rules admin surface.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"alphabase/internal/platform/middleware"
	"alphabase/internal/rules"
	"alphabase/pkg/platform/httputil"
	"alphabase/pkg/requestcontext"
)

// Engine is the rule table as seen by the admin surface.
type Engine interface {
	Snapshot() map[string]rules.RuleText
	Update(collection string, read, write *string) error
}

// Handler handles the /security endpoints.
type Handler struct {
	logger    *slog.Logger
	engine    Engine
	validator middleware.TokenValidator
}

// New creates a rules admin Handler.
func New(engine Engine, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		engine:    engine,
		validator: validator,
	}
}

// Register mounts the rules routes behind authentication.
func (h *Handler) Register(r chi.Router) {
	securityRouter := chi.NewRouter()
	securityRouter.Use(middleware.RequireAuth(h.validator, h.logger))
	securityRouter.Get("/rules", h.handleGetRules)
	securityRouter.Post("/rules/{collection}", h.handleUpdateRules)

	r.Mount("/security", securityRouter)
}

func (h *Handler) handleGetRules(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.engine.Snapshot())
}

type updateRequest struct {
	Read  *string `json:"read"`
	Write *string `json:"write"`
}

func (h *Handler) handleUpdateRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	collection := chi.URLParam(r, "collection")
	req, ok := httputil.DecodeJSON[updateRequest](w, r)
	if !ok {
		return
	}

	if err := h.engine.Update(collection, req.Read, req.Write); err != nil {
		h.logger.WarnContext(ctx, "rule update rejected",
			"request_id", requestcontext.RequestID(ctx),
			"collection", collection,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "rules updated",
		"collection", collection,
		"by", requestcontext.Principal(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Rules updated for " + collection,
	})
}
