// Package system exposes the operational status endpoint.
package system

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"alphabase/internal/platform/middleware"
	"alphabase/pkg/platform/httputil"
)

// Version is reported by the status endpoint.
const Version = "4.0.0"

// SubscriberCounter reports the number of live realtime connections.
type SubscriberCounter interface {
	Count() int
}

// BusStatus reports whether the device bus connection is up.
type BusStatus interface {
	Connected() bool
}

// neverConnected is the bus status when the bridge is disabled.
type neverConnected struct{}

func (neverConnected) Connected() bool { return false }

// Handler handles /system endpoints.
type Handler struct {
	logger      *slog.Logger
	subscribers SubscriberCounter
	bus         BusStatus
	validator   middleware.TokenValidator
}

// New creates a system Handler. bus may be nil when the bridge is disabled.
func New(subscribers SubscriberCounter, bus BusStatus, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	if bus == nil {
		bus = neverConnected{}
	}
	return &Handler{
		logger:      logger,
		subscribers: subscribers,
		bus:         bus,
		validator:   validator,
	}
}

// Register mounts the system routes behind authentication.
func (h *Handler) Register(r chi.Router) {
	systemRouter := chi.NewRouter()
	systemRouter.Use(middleware.RequireAuth(h.validator, h.logger))
	systemRouter.Get("/status", h.handleStatus)

	r.Mount("/system", systemRouter)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"websocket_clients": h.subscribers.Count(),
		"mqtt_connected":    h.bus.Connected(),
		"timestamp":         time.Now().Format(time.RFC3339),
		"version":           Version,
	})
}
