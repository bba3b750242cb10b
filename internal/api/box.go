package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/paketbox-core/internal/box"
	"github.com/nerrad567/paketbox-core/internal/command"
	"github.com/nerrad567/paketbox-core/internal/controller"
	"github.com/nerrad567/paketbox-core/internal/maintenance"
	"github.com/nerrad567/paketbox-core/internal/motor"
)

// boxResponse is the response body for GET /box.
type boxResponse struct {
	box.Snapshot
	Locked bool `json:"locked"`
	Error  bool `json:"error"`
}

func (s *Server) boxView() boxResponse {
	snap := s.box.Snapshot()
	return boxResponse{Snapshot: snap, Locked: s.box.IsLocked(), Error: snap.AnyError()}
}

// handleGetBox returns the current box state.
func (s *Server) handleGetBox(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.boxView())
}

// handleCommand runs an operator command and returns the resulting state.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	err := command.Execute(s.box, name)
	switch {
	case err == nil:
	case errors.Is(err, command.ErrUnknownCommand):
		writeNotFound(w, "unknown command: "+name)
		return
	case errors.Is(err, motor.ErrFaultActive),
		errors.Is(err, command.ErrNotCleared),
		errors.Is(err, command.ErrNothingPending):
		writeConflict(w, err.Error())
		return
	case errors.Is(err, controller.ErrStopped):
		writeUnavailable(w, err.Error())
		return
	default:
		s.logger.Error("box command failed", "command", name, "error", err)
		writeInternalError(w, err.Error())
		return
	}

	s.logger.Info("box command executed", "command", name, "operator", subjectFrom(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"command": name,
		"state":   s.boxView(),
	})
}

// handleListCounters returns every maintenance counter.
func (s *Server) handleListCounters(w http.ResponseWriter, r *http.Request) {
	if s.counters == nil {
		writeUnavailable(w, "counters not available")
		return
	}
	counters, err := s.counters.List(r.Context())
	if err != nil {
		s.logger.Error("listing counters failed", "error", err)
		writeInternalError(w, "failed to list counters")
		return
	}
	if counters == nil {
		counters = []maintenance.Counter{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"counters": counters,
		"count":    len(counters),
	})
}

// handleResetCounter zeroes a maintenance counter.
func (s *Server) handleResetCounter(w http.ResponseWriter, r *http.Request) {
	if s.counters == nil {
		writeUnavailable(w, "counters not available")
		return
	}
	name := chi.URLParam(r, "name")
	err := s.counters.Reset(r.Context(), name)
	if errors.Is(err, maintenance.ErrCounterNotFound) {
		writeNotFound(w, "counter not found: "+name)
		return
	}
	if err != nil {
		s.logger.Error("resetting counter failed", "counter", name, "error", err)
		writeInternalError(w, "failed to reset counter")
		return
	}
	s.logger.Info("counter reset", "counter", name, "operator", subjectFrom(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "value": 0})
}
