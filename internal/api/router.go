package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Supervisor endpoints
			r.Get("/status", s.handleStatus)
			r.Route("/supervisor", func(r chi.Router) {
				r.Post("/start", s.handleSupervisorStart)
				r.Post("/stop", s.handleSupervisorStop)
				r.Post("/sweep", s.handleSupervisorSweep)
			})

			// Audit trail
			r.Get("/audit", s.handleListAuditEntries)

			// Endpoints proxied through the versioned syncthing client
			r.Route("/syncthing", func(r chi.Router) {
				r.Get("/version", s.handleSyncthingVersion)
				r.Get("/connections", s.handleSyncthingConnections)
				r.Get("/config", s.handleSyncthingConfig)
				r.Post("/restart", s.handleSyncthingRestart)
				r.Post("/shutdown", s.handleSyncthingShutdown)
				r.Route("/folders/{id}", func(r chi.Router) {
					r.Get("/ignores", s.handleFolderIgnores)
					r.Post("/scan", s.handleFolderScan)
				})
			})

			// WebSocket log stream (auth via middleware like any route)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
