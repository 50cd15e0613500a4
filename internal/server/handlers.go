package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dooshek/laughmeter/internal/session"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

// handleTap starts a new session. The response carries the snapshot after
// the press, so a denied permission shows up as state idle.
func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	err := s.controller.Press(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, s.controller.Snapshot())
	case errors.Is(err, session.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrClosed):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "statistics are disabled"})
		return
	}
	data, err := s.stats.GetStatsJSON()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(data))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
