package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/doormanhub/doorman-core/internal/action"
	"github.com/doormanhub/doorman-core/internal/hardware"
)

// handleListActions returns a page of action definitions.
// GET /api/v1/actions
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	actions, total, err := s.actions.List(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("listing actions failed", "error", err)
		writeInternalError(w, "listing actions failed")
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:  actions,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// actionRequest is the create/update payload for an action.
type actionRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	DeviceID    string          `json:"device_id"`
	ActorID     string          `json:"actor_id"`
	Params      hardware.Params `json:"params"`
}

// handleCreateAction creates an action definition.
// POST /api/v1/actions
func (s *Server) handleCreateAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	a := &action.Action{
		Name:        req.Name,
		Description: req.Description,
		DeviceID:    req.DeviceID,
		ActorID:     req.ActorID,
		Params:      req.Params,
	}

	if err := s.actions.Create(r.Context(), a); err != nil {
		s.writeActionSaveError(w, err)
		return
	}

	s.auditAdmin(r, "action "+a.Name+" created")
	writeJSON(w, http.StatusCreated, a)
}

// handleUpdateAction replaces an action's fields wholesale.
// PUT /api/v1/actions/{id}
func (s *Server) handleUpdateAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	a := &action.Action{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		Description: req.Description,
		DeviceID:    req.DeviceID,
		ActorID:     req.ActorID,
		Params:      req.Params,
	}

	if err := s.actions.Update(r.Context(), a); err != nil {
		s.writeActionSaveError(w, err)
		return
	}

	s.auditAdmin(r, "action "+a.Name+" updated")
	writeJSON(w, http.StatusOK, a)
}

// writeActionSaveError maps create/update failures to responses.
func (s *Server) writeActionSaveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, action.ErrInvalidAction):
		writeBadRequest(w, err.Error())
	case errors.Is(err, action.ErrNameExists):
		writeConflict(w, "action name already in use")
	case errors.Is(err, action.ErrActionNotFound):
		writeNotFound(w, "action not found")
	default:
		s.logger.Error("saving action failed", "error", err)
		writeInternalError(w, "saving action failed")
	}
}

// handleRemoveActions deletes the listed actions. Absent IDs are ignored.
// POST /api/v1/actions/remove
func (s *Server) handleRemoveActions(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	count, err := s.actions.Remove(r.Context(), req.IDs...)
	if err != nil {
		s.logger.Error("removing actions failed", "error", err)
		writeInternalError(w, "removing actions failed")
		return
	}

	s.auditAdmin(r, fmt.Sprintf("%d actions removed", count))
	writeJSON(w, http.StatusOK, removedResponse{Removed: count})
}

// handleRemoveAllActions deletes every action.
// DELETE /api/v1/actions
func (s *Server) handleRemoveAllActions(w http.ResponseWriter, r *http.Request) {
	count, err := s.actions.RemoveAll(r.Context())
	if err != nil {
		s.logger.Error("removing all actions failed", "error", err)
		writeInternalError(w, "removing actions failed")
		return
	}

	s.auditAdmin(r, fmt.Sprintf("all actions removed (%d)", count))
	writeJSON(w, http.StatusOK, removedResponse{Removed: count})
}

// handleStartAction dispatches an action against the hardware registry.
// Any authenticated user can trigger; the event log records who did.
// POST /api/v1/actions/{id}/start
func (s *Server) handleStartAction(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r.Context())

	a, err := s.actions.Dispatch(r.Context(), chi.URLParam(r, "id"), id.user.ID, clientIP(r))
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// writeDispatchError maps dispatch failures to responses. Stale device
// and stale actor collapse into not_found for clients; the distinction
// lives in the logs and the event trail. Actuation failures are a
// generic 500: hardware detail never reaches the wire.
func (s *Server) writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, action.ErrActionNotFound):
		writeNotFound(w, "action not found")
	case errors.Is(err, action.ErrStaleDevice), errors.Is(err, action.ErrStaleActor):
		writeNotFound(w, "action references unavailable hardware")
	case errors.Is(err, action.ErrActuationFailed):
		writeInternalError(w, "actuation failed")
	default:
		s.logger.Error("dispatch failed", "error", err)
		writeInternalError(w, "dispatch failed")
	}
}
