// Package handler exposes the file storage endpoints.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"alphabase/internal/files"
	"alphabase/internal/platform/middleware"
	dErrors "alphabase/pkg/domain-errors"
	"alphabase/pkg/platform/httputil"
	"alphabase/pkg/requestcontext"
)

// Service defines the file operations the handler needs.
type Service interface {
	Upload(ctx context.Context, owner, originalFilename, mimeType string, public bool, content io.Reader) (files.File, error)
	Open(ctx context.Context, principal, id string) (files.File, io.ReadCloser, error)
	List(ctx context.Context, owner string) ([]files.File, error)
	Delete(ctx context.Context, principal, id string) error
}

// Handler handles the /storage endpoints.
type Handler struct {
	logger    *slog.Logger
	files     Service
	validator middleware.TokenValidator
}

// New creates a file storage Handler.
func New(filesService Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		files:     filesService,
		validator: validator,
	}
}

// Register mounts the storage routes, all behind authentication.
func (h *Handler) Register(r chi.Router) {
	storageRouter := chi.NewRouter()
	storageRouter.Use(middleware.RequireAuth(h.validator, h.logger))
	storageRouter.Post("/upload", h.handleUpload)
	storageRouter.Get("/download/{fileID}", h.handleDownload)
	storageRouter.Get("/files", h.handleList)
	storageRouter.Delete("/delete/{fileID}", h.handleDelete)

	r.Mount("/storage", storageRouter)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The memory threshold only bounds buffering; the service enforces the
	// actual size cap while streaming to disk.
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing file field"))
		return
	}
	defer part.Close()

	public := strings.EqualFold(r.FormValue("is_public"), "true")
	file, err := h.files.Upload(ctx, requestcontext.Principal(ctx),
		header.Filename, header.Header.Get("Content-Type"), public, part)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"file_id":      file.ID,
		"filename":     file.OriginalFilename,
		"file_size":    file.Size,
		"mime_type":    file.MimeType,
		"is_public":    file.Public,
		"download_url": "/storage/download/" + file.ID,
		"message":      "File uploaded successfully",
	})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	file, blob, err := h.files.Open(ctx, requestcontext.Principal(ctx), chi.URLParam(r, "fileID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer blob.Close()

	if file.MimeType != "" {
		w.Header().Set("Content-Type", file.MimeType)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.OriginalFilename+`"`)
	if _, err := io.Copy(w, blob); err != nil {
		h.logger.WarnContext(ctx, "download interrupted",
			"file_id", file.ID,
			"error", err,
		)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.files.List(ctx, requestcontext.Principal(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(list))
	for _, file := range list {
		out = append(out, map[string]any{
			"file_id":      file.ID,
			"filename":     file.OriginalFilename,
			"file_size":    file.Size,
			"mime_type":    file.MimeType,
			"is_public":    file.Public,
			"created_at":   file.CreatedAt.Format(time.RFC3339),
			"download_url": "/storage/download/" + file.ID,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"files":   out,
		"count":   len(out),
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.files.Delete(ctx, requestcontext.Principal(ctx), chi.URLParam(r, "fileID")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "File deleted successfully",
	})
}
