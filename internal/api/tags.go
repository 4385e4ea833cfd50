package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/doormanhub/doorman-core/internal/nfc"
)

// handleListTags returns a page of registered NFC tags.
// GET /api/v1/tags
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	tags, total, err := s.tags.List(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("listing tags failed", "error", err)
		writeInternalError(w, "listing tags failed")
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:  tags,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// tagRequest is the create/update payload for a tag binding.
type tagRequest struct {
	ID       string `json:"id"` // physical UID; ignored on update
	ActionID string `json:"action_id"`
}

// handleCreateTag registers an NFC tag.
// POST /api/v1/tags
func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	tag := &nfc.Tag{ID: req.ID, ActionID: req.ActionID}
	if err := s.tags.Create(r.Context(), tag); err != nil {
		switch {
		case errors.Is(err, nfc.ErrInvalidTag):
			writeBadRequest(w, err.Error())
		case errors.Is(err, nfc.ErrTagExists):
			writeConflict(w, "tag already registered")
		default:
			s.logger.Error("creating tag failed", "error", err)
			writeInternalError(w, "creating tag failed")
		}
		return
	}

	s.auditAdmin(r, "tag "+tag.ID+" registered")
	writeJSON(w, http.StatusCreated, tag)
}

// handleUpdateTag rebinds a tag to a different action.
// PUT /api/v1/tags/{id}
func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	tag := &nfc.Tag{ID: chi.URLParam(r, "id"), ActionID: req.ActionID}
	if err := s.tags.Update(r.Context(), tag); err != nil {
		switch {
		case errors.Is(err, nfc.ErrInvalidTag):
			writeBadRequest(w, err.Error())
		case errors.Is(err, nfc.ErrTagNotFound):
			writeNotFound(w, "tag not found")
		default:
			s.logger.Error("updating tag failed", "tag_id", tag.ID, "error", err)
			writeInternalError(w, "updating tag failed")
		}
		return
	}

	s.auditAdmin(r, "tag "+tag.ID+" rebound")
	writeJSON(w, http.StatusOK, tag)
}

// handleRemoveTags deletes the listed tags. Absent IDs are ignored.
// POST /api/v1/tags/remove
func (s *Server) handleRemoveTags(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	count, err := s.tags.Remove(r.Context(), req.IDs...)
	if err != nil {
		s.logger.Error("removing tags failed", "error", err)
		writeInternalError(w, "removing tags failed")
		return
	}

	s.auditAdmin(r, fmt.Sprintf("%d tags removed", count))
	writeJSON(w, http.StatusOK, removedResponse{Removed: count})
}

// handleRemoveAllTags deletes every tag.
// DELETE /api/v1/tags
func (s *Server) handleRemoveAllTags(w http.ResponseWriter, r *http.Request) {
	count, err := s.tags.RemoveAll(r.Context())
	if err != nil {
		s.logger.Error("removing all tags failed", "error", err)
		writeInternalError(w, "removing tags failed")
		return
	}

	s.auditAdmin(r, fmt.Sprintf("all tags removed (%d)", count))
	writeJSON(w, http.StatusOK, removedResponse{Removed: count})
}

// handleStartTag dispatches the action bound to a tag, exactly as a
// physical scan would. Used to verify a binding after registration.
// POST /api/v1/tags/{id}/start
func (s *Server) handleStartTag(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r.Context())

	a, err := s.nfc.TriggerTag(r.Context(), chi.URLParam(r, "id"), id.user.ID, clientIP(r))
	if err != nil {
		if errors.Is(err, nfc.ErrTagNotFound) {
			writeNotFound(w, "tag not found")
			return
		}
		s.writeDispatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}
