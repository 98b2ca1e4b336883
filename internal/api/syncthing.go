package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/syncbridge-core/internal/audit"
	"github.com/nerrad567/syncbridge-core/internal/syncthing"
)

// syncthingClient returns the versioned client, or answers 503 when
// the daemon version has not been probed yet.
func (s *Server) syncthingClient(w http.ResponseWriter) (syncthing.Client, bool) {
	s.stMu.RLock()
	client := s.st
	s.stMu.RUnlock()

	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "daemon_unavailable",
			"syncthing api client not ready")
		return nil, false
	}
	return client, true
}

// writeSyncthingError maps the client error taxonomy onto HTTP
// responses: unreachable daemon → 503, daemon-reported errors → 502
// with the daemon's status and message, decode failures → 502.
func (s *Server) writeSyncthingError(w http.ResponseWriter, err error) {
	var apiErr *syncthing.APIError
	switch {
	case errors.Is(err, syncthing.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "daemon_unavailable", err.Error())
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, "daemon_error", apiErr.Message)
	case errors.Is(err, syncthing.ErrProtocolMismatch):
		writeError(w, http.StatusBadGateway, "protocol_mismatch", err.Error())
	default:
		s.logger.Error("syncthing proxy error", "error", err)
		writeInternalError(w, "syncthing request failed")
	}
}

func (s *Server) handleSyncthingVersion(w http.ResponseWriter, r *http.Request) {
	client, ok := s.syncthingClient(w)
	if !ok {
		return
	}
	ver, err := client.Version(r.Context())
	if err != nil {
		s.writeSyncthingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ver)
}

func (s *Server) handleSyncthingConnections(w http.ResponseWriter, r *http.Request) {
	client, ok := s.syncthingClient(w)
	if !ok {
		return
	}
	conns, err := client.Connections(r.Context())
	if err != nil {
		s.writeSyncthingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":             conns.Total,
		"deviceConnections": conns.Devices,
	})
}

func (s *Server) handleSyncthingConfig(w http.ResponseWriter, r *http.Request) {
	client, ok := s.syncthingClient(w)
	if !ok {
		return
	}
	cfg, err := client.Config(r.Context())
	if err != nil {
		s.writeSyncthingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSyncthingRestart(w http.ResponseWriter, r *http.Request) {
	client, ok := s.syncthingClient(w)
	if !ok {
		return
	}
	if err := client.Restart(r.Context()); err != nil {
		s.writeSyncthingError(w, err)
		return
	}
	s.auditLog(audit.ActionRestarted, audit.EntityProcess, "syncthing",
		map[string]any{"via": "api", "kind": "daemon_restart"})
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "restarting"})
}

func (s *Server) handleSyncthingShutdown(w http.ResponseWriter, r *http.Request) {
	client, ok := s.syncthingClient(w)
	if !ok {
		return
	}
	if err := client.Shutdown(r.Context()); err != nil {
		s.writeSyncthingError(w, err)
		return
	}
	s.auditLog(audit.ActionShutdown, audit.EntityProcess, "syncthing",
		map[string]any{"via": "api"})
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "shutting_down"})
}

func (s *Server) handleFolderIgnores(w http.ResponseWriter, r *http.Request) {
	client, ok := s.syncthingClient(w)
	if !ok {
		return
	}

	folder := chi.URLParam(r, "id")
	ig, err := client.Ignores(r.Context(), folder)
	if err != nil {
		s.writeSyncthingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ig)
}

func (s *Server) handleFolderScan(w http.ResponseWriter, r *http.Request) {
	client, ok := s.syncthingClient(w)
	if !ok {
		return
	}

	folder := chi.URLParam(r, "id")
	subpath := r.URL.Query().Get("sub")
	if err := client.Scan(r.Context(), folder, subpath); err != nil {
		s.writeSyncthingError(w, err)
		return
	}

	details := map[string]any{"via": "api"}
	if subpath != "" {
		details["sub"] = subpath
	}
	s.auditLog(audit.ActionScan, audit.EntityFolder, folder, details)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"folder": folder,
		"status": "scanning",
	})
}
