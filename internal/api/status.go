package api

import (
	"net/http"

	"github.com/nerrad567/syncbridge-core/internal/audit"
)

// handleStatus returns the supervisor's current statistics.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	stats := s.sup.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"state":         stats.State,
		"pid":           stats.PID,
		"uptime_s":      int64(stats.Uptime.Seconds()),
		"restart_count": stats.RestartCount,
		"last_status":   stats.LastStatus,
		"version":       s.version,
	})
}

// handleSupervisorStart launches (or relaunches) the supervised process.
func (s *Server) handleSupervisorStart(w http.ResponseWriter, _ *http.Request) {
	if err := s.sup.Start(); err != nil {
		s.logger.Error("start via api failed", "error", err)
		writeInternalError(w, "start failed: "+err.Error())
		return
	}

	stats := s.sup.Stats()
	s.auditLog(audit.ActionStarted, audit.EntityProcess, "syncthing",
		map[string]any{"pid": stats.PID, "via": "api"})

	writeJSON(w, http.StatusOK, map[string]any{
		"state": stats.State,
		"pid":   stats.PID,
	})
}

// handleSupervisorStop terminates the supervised process.
func (s *Server) handleSupervisorStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.sup.Kill(); err != nil {
		s.logger.Error("stop via api failed", "error", err)
		writeInternalError(w, "stop failed: "+err.Error())
		return
	}
	s.auditLog(audit.ActionStopped, audit.EntityProcess, "syncthing",
		map[string]any{"via": "api"})

	writeJSON(w, http.StatusOK, map[string]any{
		"state": s.sup.Stats().State,
	})
}

// handleSupervisorSweep kills every process matching the supervised
// binary's name, tracked or not.
func (s *Server) handleSupervisorSweep(w http.ResponseWriter, _ *http.Request) {
	found, killed := s.sup.KillAllMatching()
	s.auditLog(audit.ActionSweep, audit.EntityProcess, "syncthing",
		map[string]any{"found": found, "killed": killed, "via": "api"})

	writeJSON(w, http.StatusOK, map[string]any{
		"found":  found,
		"killed": killed,
	})
}
