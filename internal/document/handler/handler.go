// Package handler exposes the document endpoints: keyed set/get/delete,
// collection listing, and the query surface.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"alphabase/internal/document"
	"alphabase/internal/platform/middleware"
	"alphabase/internal/query"
	"alphabase/pkg/platform/httputil"
	"alphabase/pkg/requestcontext"
)

// Service defines the document operations the handler needs.
type Service interface {
	Set(ctx context.Context, principal, collection, key string, value json.RawMessage) (document.Document, error)
	Get(ctx context.Context, principal, collection, key string) (document.Document, error)
	List(ctx context.Context, principal, collection string) ([]document.Document, error)
	Query(ctx context.Context, principal, collection string, q query.Query) ([]query.Item, error)
	Delete(ctx context.Context, principal, collection, key string) error
}

// Handler handles the /data endpoints.
type Handler struct {
	logger    *slog.Logger
	documents Service
	validator middleware.TokenValidator
}

// New creates a document Handler.
func New(documents Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		documents: documents,
		validator: validator,
	}
}

// Register mounts the document routes. All of them require authentication;
// per-collection rules decide what the authenticated principal may touch.
func (h *Handler) Register(r chi.Router) {
	dataRouter := chi.NewRouter()
	dataRouter.Use(middleware.RequireAuth(h.validator, h.logger))
	dataRouter.Post("/set", h.handleSet)
	dataRouter.Get("/get/{collection}/{key}", h.handleGet)
	dataRouter.Get("/list/{collection}", h.handleList)
	dataRouter.Get("/query/{collection}", h.handleQuery)
	dataRouter.Delete("/delete/{collection}/{key}", h.handleDelete)

	r.Mount("/data", dataRouter)
}

type setRequest struct {
	Collection string          `json:"collection"`
	Key        string          `json:"key"`
	Value      json.RawMessage `json:"value"`
}

func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[setRequest](w, r)
	if !ok {
		return
	}

	_, err := h.documents.Set(ctx, requestcontext.Principal(ctx), req.Collection, req.Key, req.Value)
	if err != nil {
		h.logger.WarnContext(ctx, "set rejected",
			"request_id", requestcontext.RequestID(ctx),
			"collection", req.Collection,
			"key", req.Key,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"collection": req.Collection,
		"key":        req.Key,
		"message":    "Data stored successfully",
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	collection := chi.URLParam(r, "collection")
	key := chi.URLParam(r, "key")

	doc, err := h.documents.Get(ctx, requestcontext.Principal(ctx), collection, key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"collection": collection,
		"key":        key,
		"data":       doc.Value,
		"owner":      doc.Owner,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	collection := chi.URLParam(r, "collection")

	docs, err := h.documents.List(ctx, requestcontext.Principal(ctx), collection)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make(map[string]json.RawMessage, len(docs))
	for _, doc := range docs {
		items[doc.Key] = doc.Value
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"collection": collection,
		"count":      len(items),
		"items":      items,
	})
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	collection := chi.URLParam(r, "collection")
	q := query.ParseParams(r.URL.Query())

	results, err := h.documents.Query(ctx, requestcontext.Principal(ctx), collection, q)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// items is the compact key->value view; results carries full metadata.
	items := make(map[string]json.RawMessage, len(results))
	for _, item := range results {
		items[item.Key] = item.Data
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"collection": collection,
		"count":      len(results),
		"query":      q,
		"items":      items,
		"results":    results,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	collection := chi.URLParam(r, "collection")
	key := chi.URLParam(r, "key")

	err := h.documents.Delete(ctx, requestcontext.Principal(ctx), collection, key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Data deleted successfully",
	})
}
