// Package httptransport assembles the public HTTP surface from the per-domain
// handlers.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alphabase/internal/platform/middleware"
	"alphabase/internal/system"
	"alphabase/pkg/platform/httputil"
)

// Registrar is implemented by every domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries everything the router mounts.
type Deps struct {
	Logger    *slog.Logger
	Auth      Registrar
	Documents Registrar
	Files     Registrar
	Rules     Registrar
	System    Registrar

	// WebSocket is the realtime upgrade endpoint.
	WebSocket http.Handler
}

// NewRouter wires all public endpoints: domain routes, the realtime websocket,
// health, and Prometheus metrics.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	deps.Auth.Register(r)
	deps.Documents.Register(r)
	deps.Files.Register(r)
	deps.Rules.Register(r)
	deps.System.Register(r)

	r.Get("/", handleRoot)
	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/ws", deps.WebSocket)

	return r
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to AlphaBase v" + system.Version + "!",
		"status":  "running",
		"features": []string{
			"Authentication", "Persistent Storage", "Real-time WebSockets",
			"MQTT Integration", "Security Rules", "Query System", "File Storage",
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
